// Package dataset describes the on-disk layout of a prepared detection
// dataset: the train/val pools, their images/labels folders, and the metadata
// copied next to the training pool.
package dataset

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/fsutil"
)

// Folder and file names shared by the archive export and the prepared tree.
const (
	DataDirName     = "data"
	ImagesDirName   = "images"
	LabelsDirName   = "labels"
	ClassesFileName = "classes.txt"
	NotesFileName   = "notes.json"
	LabelExt        = ".txt"
)

// MetadataFiles are copied from an extracted archive into the training root
// when present.
var MetadataFiles = []string{ClassesFileName, NotesFileName}

// Pool identifies one side of the train/validation split.
type Pool string

const (
	Train Pool = "train"
	Val   Pool = "val"
)

// Layout holds every path the pipeline touches, derived once from the base
// directory.
type Layout struct {
	BaseDir string
	DataDir string
}

// NewLayout returns the canonical layout rooted at baseDir.
func NewLayout(baseDir string) Layout {
	return Layout{
		BaseDir: baseDir,
		DataDir: filepath.Join(baseDir, DataDirName),
	}
}

// PoolDir is the root of a pool, e.g. <base>/data/train.
func (l Layout) PoolDir(p Pool) string {
	return filepath.Join(l.DataDir, string(p))
}

// Images is the images folder of a pool.
func (l Layout) Images(p Pool) string {
	return filepath.Join(l.PoolDir(p), ImagesDirName)
}

// Labels is the labels folder of a pool.
func (l Layout) Labels(p Pool) string {
	return filepath.Join(l.PoolDir(p), LabelsDirName)
}

// ClassesFile is the class list copied into the training root.
func (l Layout) ClassesFile() string {
	return filepath.Join(l.PoolDir(Train), ClassesFileName)
}

// SplitDirs returns the four images/labels folders in a fixed order:
// train images, train labels, val images, val labels.
func (l Layout) SplitDirs() []string {
	return []string{
		l.Images(Train),
		l.Labels(Train),
		l.Images(Val),
		l.Labels(Val),
	}
}

// Sample is an image and its optional label, linked by filename stem.
type Sample struct {
	Image string
	Label string // empty when the image has no label file
}

// HasLabel reports whether the sample carries a label file.
func (s Sample) HasLabel() bool { return s.Label != "" }

// LabelName returns the label filename that belongs to an image filename.
func LabelName(image string) string {
	return fsutil.Stem(image) + LabelExt
}

// SampleFor resolves the sample for an image currently in pool p.
func (l Layout) SampleFor(fs afero.Fs, p Pool, image string) (Sample, error) {
	s := Sample{Image: filepath.Join(l.Images(p), image)}

	label := filepath.Join(l.Labels(p), LabelName(image))
	ok, err := afero.Exists(fs, label)
	if err != nil {
		return s, err
	}
	if ok {
		s.Label = label
	}
	return s, nil
}
