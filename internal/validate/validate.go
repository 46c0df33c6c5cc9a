// Package validate is the gate between data preparation and training. It
// only reads: required paths, non-empty pools, and the exact class list.
package validate

import (
	"bufio"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/ctxlog"
	"github.com/specialistvlad/detprep/internal/dataset"
	"github.com/specialistvlad/detprep/internal/fsutil"
)

// Options names what Structure checks.
type Options struct {
	Layout     dataset.Layout
	Descriptor string   // dataset descriptor consumed by the trainer
	Classes    []string // expected class list, in order
}

// RequiredPaths returns the paths that must exist, in reporting order.
func (o Options) RequiredPaths() []string {
	paths := []string{o.Descriptor}
	paths = append(paths, o.Layout.SplitDirs()...)
	return append(paths, o.Layout.ClassesFile())
}

// Structure runs every check in order and returns the first failing stage:
// a *MissingPathError naming all absent paths, an *EmptyPoolError for the
// train pool and then the val pool, or a *ClassMismatchError.
func Structure(ctx context.Context, fs afero.Fs, opts Options) error {
	logger := ctxlog.FromContext(ctx)

	var missing []string
	for _, p := range opts.RequiredPaths() {
		ok, err := afero.Exists(fs, p)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", p, err)
		}
		if !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &MissingPathError{Paths: missing}
	}
	logger.Debug("Required paths present.", "count", len(opts.RequiredPaths()))

	for _, pool := range []dataset.Pool{dataset.Train, dataset.Val} {
		dir := opts.Layout.Images(pool)
		images, err := fsutil.ListFiles(fs, dir)
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return &EmptyPoolError{Pool: pool, Dir: dir}
		}
		logger.Debug("Pool has images.", "pool", pool, "count", len(images))
	}

	classes, err := ReadClasses(fs, opts.Layout.ClassesFile())
	if err != nil {
		return err
	}
	if !slices.Equal(classes, opts.Classes) {
		return &ClassMismatchError{Actual: classes, Expected: slices.Clone(opts.Classes)}
	}

	logger.Debug("Class list matches.", "classes", classes)
	return nil
}

// ReadClasses reads a class list: one name per line, surrounding whitespace
// trimmed, blank lines ignored, order preserved.
func ReadClasses(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class list: %w", err)
	}
	defer f.Close()

	var classes []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			classes = append(classes, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class list %s: %w", path, err)
	}
	return classes, nil
}
