package app

import (
	"time"

	"github.com/specialistvlad/detprep/internal/archive"
	"github.com/specialistvlad/detprep/internal/device"
	"github.com/specialistvlad/detprep/internal/split"
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeNoArchive   Outcome = "no-archive"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeTrainFailed Outcome = "train-failed"
	OutcomePrepared    Outcome = "prepared"
	OutcomeTrained     Outcome = "trained"
)

// Failed reports whether the outcome should end the process unsuccessfully.
func (o Outcome) Failed() bool {
	return o == OutcomeInvalid || o == OutcomeTrainFailed
}

// Report summarises a run.
type Report struct {
	Outcome Outcome
	Device  device.Device
	Archive archive.Result
	Unpack  *archive.UnpackReport
	Split   *split.Result
	// Err explains a failed outcome: a validation error matching
	// validate.ErrIntegrity or a *trainer.Error.
	Err      error
	Duration time.Duration
}
