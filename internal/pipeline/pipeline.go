// Package pipeline runs named stages strictly one after another. A stage may
// end the run early and successfully by returning ErrStop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/detprep/internal/ctxlog"
)

// ErrStop ends the pipeline without an error. Stages return it when the
// outcome is already decided (nothing to process, data rejected, ...).
var ErrStop = errors.New("pipeline stopped")

// Stage is one step of the run.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pipeline is an ordered list of stages.
type Pipeline struct {
	stages  []Stage
	onStage func(name string)
}

// New returns a pipeline running stages in the given order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// OnStage registers a callback invoked with each stage name right before the
// stage runs.
func (p *Pipeline) OnStage(fn func(name string)) {
	p.onStage = fn
}

// Run executes the stages. It returns nil when all stages finish or one
// returns ErrStop, and the wrapped error of the first failing stage otherwise.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, stage := range p.stages {
		stageCtx, logger := ctxlog.With(ctx, "stage", stage.Name)
		if p.onStage != nil {
			p.onStage(stage.Name)
		}

		logger.Info("▶️ Starting stage")
		start := time.Now()
		err := stage.Run(stageCtx)
		elapsed := time.Since(start)

		switch {
		case errors.Is(err, ErrStop):
			logger.Info("⏹️ Stage ended the run", "duration", elapsed)
			return nil
		case err != nil:
			logger.Error("Stage failed", "duration", elapsed, "error", err)
			return fmt.Errorf("stage %s failed: %w", stage.Name, err)
		}
		logger.Info("✅ Finished stage", "duration", elapsed)
	}
	return nil
}
