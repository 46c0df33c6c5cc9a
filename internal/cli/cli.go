package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/detprep/internal/app"
	"github.com/specialistvlad/detprep/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("detprep", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
detprep - Prepare a YOLO dataset from an annotation export and train on it.

Usage:
  detprep [options] [BASE_DIR]

Arguments:
  BASE_DIR
    Directory holding the exported project-*.zip archives and the dataset
    descriptor. Defaults to the current directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := config.Default()
	configFlag := flagSet.String("config", "", "Path to an HCL pipeline file.")
	cFlag := flagSet.String("c", "", "Path to an HCL pipeline file (shorthand).")
	baseDirFlag := flagSet.String("base-dir", "", "Dataset base directory. Overrides the positional argument.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	skipTrainFlag := flagSet.Bool("skip-train", false, "Prepare and validate the dataset without training.")
	noCleanFlag := flagSet.Bool("no-clean", false, "Keep existing split directories instead of emptying them.")
	valRatioFlag := flagSet.Float64("val-ratio", defaults.Split.ValRatio, "Fraction of images moved to the validation pool.")
	seedFlag := flagSet.Int64("seed", defaults.Split.Seed, "Seed for the validation selection.")
	epochsFlag := flagSet.Int("epochs", defaults.Training.Epochs, "Training epochs.")
	imgSizeFlag := flagSet.Int("img-size", defaults.Training.ImageSize, "Training image size.")
	modelFlag := flagSet.String("model", defaults.Training.Model, "Base model weights.")
	trainerFlag := flagSet.String("trainer", defaults.Training.Command, "Training command to invoke.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected at most one BASE_DIR argument, got %d", flagSet.NArg())}
	}
	slog.Debug("Arguments parsed successfully.")

	// Only flags given explicitly override the pipeline file.
	set := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var overrides config.Overrides
	switch {
	case set["base-dir"]:
		overrides.BaseDir = baseDirFlag
	case flagSet.NArg() == 1:
		dir := flagSet.Arg(0)
		overrides.BaseDir = &dir
	}
	if set["val-ratio"] {
		overrides.ValRatio = valRatioFlag
	}
	if set["seed"] {
		overrides.Seed = seedFlag
	}
	if set["no-clean"] {
		clean := !*noCleanFlag
		overrides.Clean = &clean
	}
	if set["epochs"] {
		overrides.Epochs = epochsFlag
	}
	if set["img-size"] {
		overrides.ImageSize = imgSizeFlag
	}
	if set["model"] {
		overrides.Model = modelFlag
	}
	if set["trainer"] {
		overrides.Command = trainerFlag
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = *cFlag
	}

	cfg, err := app.NewConfig(app.Config{
		ConfigPath: configPath,
		LogFormat:  strings.ToLower(*logFormatFlag),
		LogLevel:   strings.ToLower(*logLevelFlag),
		StatusPort: *statusPortFlag,
		SkipTrain:  *skipTrainFlag,
		Overrides:  overrides,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config_path", cfg.ConfigPath)
	return cfg, false, nil
}
