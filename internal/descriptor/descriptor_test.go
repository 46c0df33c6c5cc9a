package descriptor

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expected = []string{"apple", "defect", "orange", "pear"}

func load(t *testing.T, content string) (*Descriptor, error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/base/data.yaml", []byte(content), 0o644))
	return Load(fs, "/base/data.yaml")
}

func TestLoad_ListNames(t *testing.T) {
	t.Parallel()

	d, err := load(t, `
path: /base/data
train: train/images
val: val/images
nc: 4
names: [apple, defect, orange, pear]
`)
	require.NoError(t, err)
	assert.Equal(t, "/base/data", d.Root)
	assert.Equal(t, "train/images", d.Train)
	assert.Equal(t, "val/images", d.Val)
	assert.Equal(t, Names(expected), d.Names)
	assert.Empty(t, d.Drift(expected))
}

func TestLoad_IndexedNames(t *testing.T) {
	t.Parallel()

	d, err := load(t, `
train: train/images
val: val/images
names:
  2: orange
  0: apple
  3: pear
  1: defect
`)
	require.NoError(t, err)
	assert.Equal(t, Names(expected), d.Names)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := load(t, "names:\n  0: apple\n  2: pear\n")
	assert.Error(t, err, "gaps in the index map are rejected")

	_, err = load(t, "names: [unterminated\n")
	assert.Error(t, err)

	_, err = Load(afero.NewMemMapFs(), "/missing.yaml")
	assert.Error(t, err)
}

func TestDrift(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		d    Descriptor
		want int
	}{
		{name: "nothing declared", d: Descriptor{Train: "x"}, want: 0},
		{name: "matching", d: Descriptor{NC: 4, Names: expected}, want: 0},
		{name: "wrong count", d: Descriptor{NC: 3}, want: 1},
		{name: "wrong order", d: Descriptor{Names: Names{"pear", "apple", "defect", "orange"}}, want: 1},
		{name: "both wrong", d: Descriptor{NC: 2, Names: Names{"apple", "pear"}}, want: 2},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Len(t, tc.d.Drift(expected), tc.want)
		})
	}
}
