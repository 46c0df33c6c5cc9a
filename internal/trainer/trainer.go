// Package trainer is the boundary to the external object-detection
// framework. The framework's internals are opaque; this package only
// describes a job and launches it.
package trainer

import (
	"context"
	"fmt"
	"strconv"
)

// Job is a single training run.
type Job struct {
	Descriptor string // dataset descriptor path
	Model      string // base weights, e.g. yolo11n.pt
	Epochs     int
	ImageSize  int
	Device     string // device token, e.g. "cpu"
	Extra      []string
}

// Args renders the job as key=value arguments for the framework CLI.
func (j Job) Args() []string {
	args := []string{
		"data=" + j.Descriptor,
		"model=" + j.Model,
		"epochs=" + strconv.Itoa(j.Epochs),
		"imgsz=" + strconv.Itoa(j.ImageSize),
		"device=" + j.Device,
		"verbose=True",
	}
	return append(args, j.Extra...)
}

// Trainer runs training jobs.
type Trainer interface {
	Train(ctx context.Context, job Job) error
}

// Error wraps any failure reported by the framework.
type Error struct {
	Device string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("training on %s failed: %v", e.Device, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
