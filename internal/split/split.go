// Package split partitions the training pool into train and validation
// subsets, moving each selected image together with its label.
package split

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/ctxlog"
	"github.com/specialistvlad/detprep/internal/dataset"
	"github.com/specialistvlad/detprep/internal/fsutil"
	"github.com/specialistvlad/detprep/internal/workspace"
)

// Options controls a partition run.
type Options struct {
	Ratio float64 // fraction of images moved to validation, in [0, 1]
	Seed  int64
}

// Result lists the image filenames in each pool after partitioning.
type Result struct {
	Train       []string
	Val         []string
	LabelsMoved int
}

// Plan returns the images that go to validation for the given candidate set.
// Candidates are sorted before the seeded shuffle, so the selection depends
// only on the set of names, the seed and the ratio.
func Plan(images []string, opts Options) []string {
	sorted := append([]string(nil), images...)
	sort.Strings(sorted)

	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(sorted), func(i, j int) {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	})

	numVal := int(math.Floor(float64(len(sorted)) * opts.Ratio))
	return sorted[:numVal]
}

// Partition moves floor(total*ratio) images from the training pool into the
// validation pool. A moved image's same-stem label moves with it; images
// without a label move alone.
func Partition(ctx context.Context, fs afero.Fs, layout dataset.Layout, opts Options) (*Result, error) {
	if opts.Ratio < 0 || opts.Ratio > 1 || math.IsNaN(opts.Ratio) {
		return nil, fmt.Errorf("validation ratio must be within [0, 1], got %v", opts.Ratio)
	}
	logger := ctxlog.FromContext(ctx)

	images, err := fsutil.ListFiles(fs, layout.Images(dataset.Train))
	if err != nil {
		return nil, err
	}
	if err := workspace.Ensure(ctx, fs, layout.Images(dataset.Val), layout.Labels(dataset.Val)); err != nil {
		return nil, err
	}

	val := Plan(images, opts)
	logger.Debug("Validation selection planned.", "total", len(images), "val", len(val), "seed", opts.Seed)

	res := &Result{}
	for _, image := range val {
		sample, err := layout.SampleFor(fs, dataset.Train, image)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sample %s: %w", image, err)
		}
		if err := moveSample(fs, layout, sample); err != nil {
			return nil, err
		}
		if sample.HasLabel() {
			res.LabelsMoved++
		}
	}

	if res.Train, err = fsutil.ListFiles(fs, layout.Images(dataset.Train)); err != nil {
		return nil, err
	}
	if res.Val, err = fsutil.ListFiles(fs, layout.Images(dataset.Val)); err != nil {
		return nil, err
	}

	logger.Info("Validation set created.",
		"val", len(res.Val),
		"train", len(res.Train),
		"labels_moved", res.LabelsMoved,
		"ratio", opts.Ratio,
	)
	return res, nil
}

// moveSample moves the image and, when present, its label into the
// validation pool. If the label cannot follow, the image is moved back so the
// sample stays whole in one pool.
func moveSample(fs afero.Fs, layout dataset.Layout, s dataset.Sample) error {
	imageDst := filepath.Join(layout.Images(dataset.Val), filepath.Base(s.Image))
	if err := fsutil.Move(fs, s.Image, imageDst); err != nil {
		return err
	}
	if !s.HasLabel() {
		return nil
	}

	labelDst := filepath.Join(layout.Labels(dataset.Val), filepath.Base(s.Label))
	if err := fsutil.Move(fs, s.Label, labelDst); err != nil {
		if rbErr := fsutil.Move(fs, imageDst, s.Image); rbErr != nil {
			return fmt.Errorf("%w (rollback of %s also failed: %v)", err, s.Image, rbErr)
		}
		return err
	}
	return nil
}
