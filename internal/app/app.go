package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/config"
	"github.com/specialistvlad/detprep/internal/ctxlog"
	"github.com/specialistvlad/detprep/internal/device"
	"github.com/specialistvlad/detprep/internal/trainer"
)

// DeviceSelector picks the compute device for training.
type DeviceSelector interface {
	Select(ctx context.Context) device.Device
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	pipeline config.Pipeline

	fs       afero.Fs
	trainer  trainer.Trainer
	selector DeviceSelector

	status     *status
	httpServer *http.Server
}

// Option customises the dependencies of an App.
type Option func(*App)

// WithFs sets the filesystem the dataset lives on. Defaults to the OS.
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// WithTrainer replaces the external training command.
func WithTrainer(t trainer.Trainer) Option {
	return func(a *App) { a.trainer = t }
}

// WithDeviceSelector replaces the host device probes.
func WithDeviceSelector(s DeviceSelector) Option {
	return func(a *App) { a.selector = s }
}

// NewApp is the constructor for the main application. It resolves the
// pipeline settings (defaults, then the pipeline file, then overrides) and
// panics if they cannot be loaded or are invalid.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	pipeline := config.Default()
	if cfg.ConfigPath != "" {
		loaded, err := loader.Load(ctx, pipeline, cfg.ConfigPath)
		if err != nil {
			// A failure to load config is a fatal startup error.
			panic(fmt.Errorf("failed to load configuration: %w", err))
		}
		pipeline = loaded
		logger.Debug("Pipeline file applied.", "path", cfg.ConfigPath)
	}
	pipeline = cfg.Overrides.Apply(pipeline)
	if err := pipeline.Validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		pipeline: pipeline,
		status:   newStatus(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	if a.trainer == nil {
		a.trainer = trainer.NewCommandTrainer(pipeline.Training.Command)
	}
	if a.selector == nil {
		a.selector = device.NewSelector()
	}

	logger.Debug("Application configured.",
		"base_dir", pipeline.BaseDir,
		"val_ratio", pipeline.Split.ValRatio,
		"seed", pipeline.Split.Seed,
		"clean", pipeline.Clean,
	)
	return a
}

// Pipeline returns the resolved pipeline settings. This is primarily for testing.
func (a *App) Pipeline() config.Pipeline {
	return a.pipeline.Clone()
}
