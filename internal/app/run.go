package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/specialistvlad/detprep/internal/archive"
	"github.com/specialistvlad/detprep/internal/ctxlog"
	"github.com/specialistvlad/detprep/internal/dataset"
	"github.com/specialistvlad/detprep/internal/descriptor"
	"github.com/specialistvlad/detprep/internal/pipeline"
	"github.com/specialistvlad/detprep/internal/split"
	"github.com/specialistvlad/detprep/internal/trainer"
	"github.com/specialistvlad/detprep/internal/validate"
	"github.com/specialistvlad/detprep/internal/workspace"
)

// Run executes one preparation and training run. The returned error is
// reserved for unexpected failures (I/O errors, cancellation); expected
// failures are reported through Report.Outcome and Report.Err.
func (a *App) Run(ctx context.Context) (*Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	start := time.Now()

	a.startStatusServer()
	defer a.closeStatusServer()
	a.status.update(func(s *statusSnapshot) { s.StartedAt = start })

	r := &run{App: a, layout: dataset.NewLayout(a.pipeline.BaseDir), report: &Report{}}
	p := pipeline.New(
		pipeline.Stage{Name: "device", Run: r.selectDevice},
		pipeline.Stage{Name: "prepare", Run: r.prepare},
		pipeline.Stage{Name: "locate", Run: r.locate},
		pipeline.Stage{Name: "unpack", Run: r.unpack},
		pipeline.Stage{Name: "partition", Run: r.partition},
		pipeline.Stage{Name: "validate", Run: r.validate},
		pipeline.Stage{Name: "descriptor", Run: r.checkDescriptor},
		pipeline.Stage{Name: "train", Run: r.train},
	)
	p.OnStage(func(name string) {
		a.status.update(func(s *statusSnapshot) { s.Stage = name })
	})

	a.logger.Info("🚀 Starting dataset run.", "base_dir", a.pipeline.BaseDir)
	err := p.Run(ctx)
	r.report.Duration = time.Since(start)
	a.status.update(func(s *statusSnapshot) {
		s.Stage = "done"
		s.Outcome = r.report.Outcome
	})
	if err != nil {
		return r.report, err
	}

	a.logSummary(r.report)
	return r.report, nil
}

func (a *App) logSummary(rep *Report) {
	attrs := []any{
		"outcome", rep.Outcome,
		"device", rep.Device.Token,
		"elapsed", rep.Duration.Round(time.Millisecond),
	}
	if rep.Archive.Found {
		attrs = append(attrs, "archive", rep.Archive.Path, "archive_size", humanize.Bytes(uint64(rep.Archive.Size)))
	}
	if rep.Split != nil {
		attrs = append(attrs, "train", len(rep.Split.Train), "val", len(rep.Split.Val))
	}
	if rep.Err != nil {
		attrs = append(attrs, "error", rep.Err)
	}

	if rep.Outcome.Failed() {
		a.logger.Error("🏁 Run finished.", attrs...)
		return
	}
	a.logger.Info("🏁 Run finished.", attrs...)
}

// run holds the state shared by the stages of one App.Run call.
type run struct {
	*App
	layout dataset.Layout
	report *Report
}

func (r *run) selectDevice(ctx context.Context) error {
	dev := r.selector.Select(ctx)
	r.report.Device = dev
	r.status.update(func(s *statusSnapshot) { s.Device = dev.Token })
	ctxlog.FromContext(ctx).Info("Using compute device.",
		"device", dev.Token,
		"kind", dev.Kind.String(),
		"description", dev.Description,
	)
	return nil
}

func (r *run) prepare(ctx context.Context) error {
	if err := workspace.Ensure(ctx, r.fs, r.layout.DataDir); err != nil {
		return err
	}
	if r.pipeline.Clean {
		return workspace.Reset(ctx, r.fs, r.layout.SplitDirs()...)
	}
	ctxlog.FromContext(ctx).Info("Cleaning disabled, keeping existing split directories.")
	return workspace.Ensure(ctx, r.fs, r.layout.SplitDirs()...)
}

func (r *run) locate(ctx context.Context) error {
	res, err := archive.Locate(ctx, r.fs, r.pipeline.BaseDir, r.pipeline.ArchivePattern)
	if err != nil {
		return err
	}
	r.report.Archive = res
	if !res.Found {
		ctxlog.FromContext(ctx).Warn("No archive found, nothing to process.",
			"dir", r.pipeline.BaseDir,
			"pattern", r.pipeline.ArchivePattern,
		)
		r.report.Outcome = OutcomeNoArchive
		return pipeline.ErrStop
	}
	return nil
}

func (r *run) unpack(ctx context.Context) error {
	rep, err := archive.Unpack(ctx, r.fs, r.report.Archive, r.layout)
	r.report.Unpack = rep
	return err
}

func (r *run) partition(ctx context.Context) error {
	res, err := split.Partition(ctx, r.fs, r.layout, split.Options{
		Ratio: r.pipeline.Split.ValRatio,
		Seed:  r.pipeline.Split.Seed,
	})
	if err != nil {
		return err
	}
	r.report.Split = res
	return nil
}

func (r *run) validate(ctx context.Context) error {
	err := validate.Structure(ctx, r.fs, validate.Options{
		Layout:     r.layout,
		Descriptor: r.pipeline.DescriptorPath(),
		Classes:    r.pipeline.Classes,
	})
	switch {
	case errors.Is(err, validate.ErrIntegrity):
		ctxlog.FromContext(ctx).Error("Dataset structure is invalid.", "error", err)
		r.report.Outcome = OutcomeInvalid
		r.report.Err = err
		return pipeline.ErrStop
	case err != nil:
		return err
	}
	return nil
}

// checkDescriptor warns when the descriptor disagrees with the expected
// classes. The descriptor belongs to the training framework, so nothing here
// is fatal.
func (r *run) checkDescriptor(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	path := r.pipeline.DescriptorPath()

	desc, err := descriptor.Load(r.fs, path)
	if err != nil {
		logger.Warn("Dataset descriptor could not be read, skipping class check.", "path", path, "error", err)
		return nil
	}
	if drift := desc.Drift(r.pipeline.Classes); len(drift) > 0 {
		logger.Warn("Dataset descriptor disagrees with the class list.", "path", path, "differences", drift)
		return nil
	}
	logger.Debug("Dataset descriptor matches the class list.", "path", path)
	return nil
}

func (r *run) train(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if r.config.SkipTrain {
		logger.Info("Training skipped, dataset is prepared.")
		r.report.Outcome = OutcomePrepared
		return nil
	}

	job := trainer.Job{
		Descriptor: r.pipeline.DescriptorPath(),
		Model:      r.pipeline.Training.Model,
		Epochs:     r.pipeline.Training.Epochs,
		ImageSize:  r.pipeline.Training.ImageSize,
		Device:     r.report.Device.Token,
		Extra:      r.pipeline.Training.Args,
	}
	logger.Info("Training started.", "device", job.Device, "model", job.Model, "epochs", job.Epochs)

	err := r.trainer.Train(ctx, job)
	if ctx.Err() != nil {
		return fmt.Errorf("training interrupted: %w", ctx.Err())
	}
	if err != nil {
		var trainErr *trainer.Error
		if !errors.As(err, &trainErr) {
			err = &trainer.Error{Device: job.Device, Err: err}
		}
		logger.Error("Training failed.", "device", job.Device, "error", err)
		r.report.Outcome = OutcomeTrainFailed
		r.report.Err = err
		return pipeline.ErrStop
	}

	logger.Info("Training finished.", "device", job.Device)
	r.report.Outcome = OutcomeTrained
	return nil
}
