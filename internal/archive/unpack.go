package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mholt/archiver"
	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/ctxlog"
	"github.com/specialistvlad/detprep/internal/dataset"
	"github.com/specialistvlad/detprep/internal/fsutil"
)

// UnpackReport summarises what an Unpack call did.
type UnpackReport struct {
	ExtractDir string
	Extracted  int      // regular files written from the archive
	Images     int      // entries moved into the training images pool
	Labels     int      // entries moved into the training labels pool
	Metadata   []string // metadata files copied into the training root
	// ExtractErr is set when the archive could not be fully decoded. It is
	// reported, not returned; see the package documentation.
	ExtractErr error
}

// Unpack extracts res into a fresh directory named after the archive (minus
// extension) under the layout's base directory, moves everything from its
// images/ and labels/ folders into the training pool, and copies the
// metadata files that are present into the training root.
func Unpack(ctx context.Context, fs afero.Fs, res Result, layout dataset.Layout) (*UnpackReport, error) {
	if !res.Found {
		return nil, errors.New("no archive to unpack")
	}
	logger := ctxlog.FromContext(ctx)

	name := filepath.Base(res.Path)
	report := &UnpackReport{
		ExtractDir: filepath.Join(layout.BaseDir, fsutil.Stem(name)),
	}

	// The extraction dir is cleared below; it must never overlap the
	// prepared data tree (an export named data.zip, or .zip).
	if fsutil.Within(layout.DataDir, report.ExtractDir) || fsutil.Within(report.ExtractDir, layout.DataDir) {
		return nil, fmt.Errorf("archive %s would extract into %s, which overlaps the data directory %s",
			name, report.ExtractDir, layout.DataDir)
	}
	if err := fs.RemoveAll(report.ExtractDir); err != nil {
		return nil, fmt.Errorf("failed to clear extraction dir %s: %w", report.ExtractDir, err)
	}
	if err := fs.MkdirAll(report.ExtractDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create extraction dir %s: %w", report.ExtractDir, err)
	}

	report.Extracted, report.ExtractErr = extractZip(ctx, fs, res.Path, report.ExtractDir)
	if report.ExtractErr != nil {
		logger.Warn("Archive was not fully extracted.", "archive", res.Path, "error", report.ExtractErr)
	}
	logger.Info("Archive extracted.", "archive", name, "dir", report.ExtractDir, "files", report.Extracted)

	moves := []struct {
		category string
		dest     string
		count    *int
	}{
		{dataset.ImagesDirName, layout.Images(dataset.Train), &report.Images},
		{dataset.LabelsDirName, layout.Labels(dataset.Train), &report.Labels},
	}
	for _, m := range moves {
		n, err := moveAll(fs, filepath.Join(report.ExtractDir, m.category), m.dest)
		if err != nil {
			return report, err
		}
		*m.count = n
		logger.Info("Moved extracted files.", "category", m.category, "count", n, "dest", m.dest)
	}

	trainRoot := layout.PoolDir(dataset.Train)
	for _, meta := range dataset.MetadataFiles {
		src := filepath.Join(report.ExtractDir, meta)
		ok, err := afero.Exists(fs, src)
		if err != nil {
			return report, fmt.Errorf("failed to inspect %s: %w", src, err)
		}
		if !ok {
			continue
		}
		if err := fsutil.CopyFile(fs, src, filepath.Join(trainRoot, meta)); err != nil {
			return report, err
		}
		report.Metadata = append(report.Metadata, meta)
		logger.Info("Copied metadata file.", "file", meta, "dest", trainRoot)
	}

	return report, nil
}

// moveAll moves every entry of src into dest, creating dest first. A missing
// src moves nothing.
func moveAll(fs afero.Fs, src, dest string) (int, error) {
	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	entries, err := fsutil.ReadDir(fs, src)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if err := fsutil.Move(fs, filepath.Join(src, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return i, err
		}
	}
	return len(entries), nil
}

// extractZip writes every entry of the zip at path into dir and returns the
// number of regular files written. Entries that fail to open are skipped and
// the first such error is returned alongside the count.
func extractZip(ctx context.Context, fs afero.Fs, path, dir string) (int, error) {
	logger := ctxlog.FromContext(ctx)

	f, err := fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat archive: %w", err)
	}

	z := archiver.NewZip()
	if err := z.Open(f, info.Size()); err != nil {
		return 0, fmt.Errorf("failed to read zip: %w", err)
	}
	defer z.Close()

	var (
		written  int
		firstErr error
	)
	for {
		entry, err := z.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logger.Debug("Skipping unreadable zip entry.", "error", err)
			continue
		}

		name := entry.Name()
		if hdr, ok := entry.Header.(zip.FileHeader); ok {
			name = hdr.Name
		}
		target := filepath.Join(dir, filepath.FromSlash(name))

		err = writeEntry(fs, dir, target, entry)
		entry.Close()
		if err != nil {
			return written, err
		}
		if !entry.IsDir() {
			written++
		}
	}
	return written, firstErr
}

func writeEntry(fs afero.Fs, dir, target string, entry archiver.File) error {
	if !fsutil.Within(dir, target) {
		return fmt.Errorf("zip entry %q escapes extraction dir", target)
	}
	if entry.IsDir() {
		return fs.MkdirAll(target, 0o755)
	}
	if err := afero.WriteReader(fs, target, entry); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
