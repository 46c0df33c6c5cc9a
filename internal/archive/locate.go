package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/ctxlog"
	"github.com/specialistvlad/detprep/internal/fsutil"
)

// DefaultPattern matches exports produced by the annotation tool.
const DefaultPattern = "project-*-*.zip"

// Result is the outcome of a search. Found is false when no entry matched;
// that is an expected outcome, not an error.
type Result struct {
	Found   bool
	Path    string
	ModTime time.Time
	Size    int64
}

// NotFound is the empty search result.
var NotFound = Result{}

// Locate searches dir (non-recursively) for regular files matching pattern
// and returns the one with the greatest modification time. Among equal
// timestamps the lexically greatest path wins so repeated calls agree.
func Locate(ctx context.Context, fs afero.Fs, dir, pattern string) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	if pattern == "" {
		pattern = DefaultPattern
	}
	// Only base names are matched, so dir is taken literally even when it
	// contains glob metacharacters.
	if _, err := filepath.Match(pattern, ""); err != nil {
		return NotFound, fmt.Errorf("invalid archive pattern %q: %w", pattern, err)
	}
	entries, err := fsutil.ReadDir(fs, dir)
	if err != nil {
		return NotFound, err
	}

	best := NotFound
	matched := 0
	for _, info := range entries {
		if info.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, info.Name()); !ok {
			continue
		}
		matched++

		path := filepath.Join(dir, info.Name())
		newer := info.ModTime().After(best.ModTime)
		tie := info.ModTime().Equal(best.ModTime) && path > best.Path
		if !best.Found || newer || tie {
			best = Result{Found: true, Path: path, ModTime: info.ModTime(), Size: info.Size()}
		}
	}
	logger.Debug("Archive candidates matched.", "dir", dir, "pattern", pattern, "count", matched)

	if best.Found {
		logger.Info("Latest archive located.",
			"path", best.Path,
			"size", humanize.Bytes(uint64(best.Size)),
			"modified", humanize.Time(best.ModTime),
		)
	}
	return best, nil
}
