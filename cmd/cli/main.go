package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/app"
	"github.com/specialistvlad/detprep/internal/cli"
	"github.com/specialistvlad/detprep/internal/hcl_adapter"
)

// main is the entrypoint for the detprep application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) (err error) {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical config errors; turn that into an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := afero.NewOsFs()
	loader := hcl_adapter.NewLoader(fs)
	detprepApp := app.NewApp(outW, appConfig, loader, app.WithFs(fs))

	report, err := detprepApp.Run(ctx)
	if err != nil {
		return err
	}
	if report.Outcome.Failed() {
		return &cli.ExitError{Code: 1, Message: fmt.Sprintf("run %s: %v", report.Outcome, report.Err)}
	}
	return nil
}
