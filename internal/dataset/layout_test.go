package dataset

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_Paths(t *testing.T) {
	t.Parallel()

	l := NewLayout("/work")

	want := []string{
		filepath.Join("/work", "data", "train", "images"),
		filepath.Join("/work", "data", "train", "labels"),
		filepath.Join("/work", "data", "val", "images"),
		filepath.Join("/work", "data", "val", "labels"),
	}
	if diff := cmp.Diff(want, l.SplitDirs()); diff != "" {
		t.Errorf("SplitDirs() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, filepath.Join("/work", "data", "train", "classes.txt"), l.ClassesFile())
}

func TestLayout_SampleFor(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	l := NewLayout("/work")
	require.NoError(t, afero.WriteFile(fs, filepath.Join(l.Images(Train), "a.jpg"), []byte("img"), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(l.Labels(Train), "a.txt"), []byte("0 0.5 0.5 0.1 0.1"), 0o644))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(l.Images(Train), "b.jpg"), []byte("img"), 0o644))

	labeled, err := l.SampleFor(fs, Train, "a.jpg")
	require.NoError(t, err)
	assert.True(t, labeled.HasLabel())
	assert.Equal(t, filepath.Join(l.Labels(Train), "a.txt"), labeled.Label)

	background, err := l.SampleFor(fs, Train, "b.jpg")
	require.NoError(t, err)
	assert.False(t, background.HasLabel())
}
