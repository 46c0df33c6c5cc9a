package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"
)

// Pipeline is the complete, resolved configuration of one run.
type Pipeline struct {
	BaseDir        string
	ArchivePattern string
	Clean          bool // empty the split folders before unpacking
	Split          Split
	Classes        []string
	Training       Training
}

// Split configures the train/validation partition.
type Split struct {
	ValRatio float64
	Seed     int64
}

// Training configures the external training job.
type Training struct {
	Descriptor string // relative paths resolve against BaseDir
	Model      string
	Epochs     int
	ImageSize  int
	Command    string
	Args       []string
}

// Default returns the settings used when nothing else is configured.
func Default() Pipeline {
	return Pipeline{
		BaseDir:        ".",
		ArchivePattern: "project-*-*.zip",
		Clean:          true,
		Split: Split{
			ValRatio: 0.2,
			Seed:     42,
		},
		Classes: []string{"apple", "defect", "orange", "pear"},
		Training: Training{
			Descriptor: "data.yaml",
			Model:      "yolo11n.pt",
			Epochs:     100,
			ImageSize:  640,
			Command:    "yolo",
		},
	}
}

// DescriptorPath resolves the dataset descriptor against BaseDir.
func (p Pipeline) DescriptorPath() string {
	if filepath.IsAbs(p.Training.Descriptor) {
		return p.Training.Descriptor
	}
	return filepath.Join(p.BaseDir, p.Training.Descriptor)
}

// Clone returns a deep copy so callers cannot alias the slices.
func (p Pipeline) Clone() Pipeline {
	p.Classes = slices.Clone(p.Classes)
	p.Training.Args = slices.Clone(p.Training.Args)
	return p
}

// Validate reports every invalid setting at once.
func (p Pipeline) Validate() error {
	var errs []error
	if strings.TrimSpace(p.BaseDir) == "" {
		errs = append(errs, errors.New("base_dir must not be empty"))
	}
	if _, err := filepath.Match(p.ArchivePattern, ""); err != nil || p.ArchivePattern == "" {
		errs = append(errs, fmt.Errorf("archive_pattern %q is not a valid glob", p.ArchivePattern))
	}
	if math.IsNaN(p.Split.ValRatio) || p.Split.ValRatio < 0 || p.Split.ValRatio >= 1 {
		errs = append(errs, fmt.Errorf("split.val_ratio must be in [0, 1), got %v", p.Split.ValRatio))
	}
	if len(p.Classes) == 0 {
		errs = append(errs, errors.New("classes must list at least one class"))
	}
	for i, c := range p.Classes {
		if strings.TrimSpace(c) == "" || c != strings.TrimSpace(c) {
			errs = append(errs, fmt.Errorf("classes[%d] %q must be non-blank without surrounding spaces", i, c))
		}
	}
	if p.Training.Descriptor == "" {
		errs = append(errs, errors.New("training.descriptor must not be empty"))
	}
	if p.Training.Model == "" {
		errs = append(errs, errors.New("training.model must not be empty"))
	}
	if p.Training.Epochs <= 0 {
		errs = append(errs, fmt.Errorf("training.epochs must be positive, got %d", p.Training.Epochs))
	}
	if p.Training.ImageSize <= 0 {
		errs = append(errs, fmt.Errorf("training.image_size must be positive, got %d", p.Training.ImageSize))
	}
	if p.Training.Command == "" {
		errs = append(errs, errors.New("training.command must not be empty"))
	}
	return errors.Join(errs...)
}

// Overrides holds values set explicitly on the command line. Nil fields
// leave the pipeline untouched.
type Overrides struct {
	BaseDir   *string
	ValRatio  *float64
	Seed      *int64
	Clean     *bool
	Epochs    *int
	ImageSize *int
	Model     *string
	Command   *string
}

// Apply returns p with every non-nil override set.
func (o Overrides) Apply(p Pipeline) Pipeline {
	p = p.Clone()
	if o.BaseDir != nil {
		p.BaseDir = *o.BaseDir
	}
	if o.ValRatio != nil {
		p.Split.ValRatio = *o.ValRatio
	}
	if o.Seed != nil {
		p.Split.Seed = *o.Seed
	}
	if o.Clean != nil {
		p.Clean = *o.Clean
	}
	if o.Epochs != nil {
		p.Training.Epochs = *o.Epochs
	}
	if o.ImageSize != nil {
		p.Training.ImageSize = *o.ImageSize
	}
	if o.Model != nil {
		p.Training.Model = *o.Model
	}
	if o.Command != nil {
		p.Training.Command = *o.Command
	}
	return p
}
