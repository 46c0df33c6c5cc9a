// Package workspace prepares the output directory tree before a run.
package workspace

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/ctxlog"
	"github.com/specialistvlad/detprep/internal/fsutil"
)

// Reset leaves every dir existing and empty. Existing directories have all
// of their contents removed; missing ones are created with their parents.
// Deletion is irreversible and filesystem errors are returned as-is.
func Reset(ctx context.Context, fs afero.Fs, dirs ...string) error {
	logger := ctxlog.FromContext(ctx)

	for _, dir := range dirs {
		exists, err := afero.DirExists(fs, dir)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", dir, err)
		}

		if !exists {
			if err := fs.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
			logger.Info("Created directory.", "path", dir)
			continue
		}

		entries, err := fsutil.ReadDir(fs, dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := fs.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
				return fmt.Errorf("failed to remove %s: %w", filepath.Join(dir, e.Name()), err)
			}
		}
		logger.Info("Cleaned directory.", "path", dir, "removed", len(entries))
	}
	return nil
}

// Ensure creates any missing dirs without touching existing contents.
func Ensure(ctx context.Context, fs afero.Fs, dirs ...string) error {
	logger := ctxlog.FromContext(ctx)
	for _, dir := range dirs {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		logger.Debug("Directory ensured.", "path", dir)
	}
	return nil
}
