package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/detprep/internal/dataset"
	"github.com/specialistvlad/detprep/internal/fsutil"
	"github.com/specialistvlad/detprep/internal/trainer"
	"github.com/specialistvlad/detprep/internal/validate"
)

const exportPath = testBase + "/project-7-at-2024-05-01-10-00-1a2b3c4d.zip"

func TestRun_PreparesAndTrains(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := afero.NewMemMapFs()
	writeExport(t, fs, exportPath, exportFiles(10, 5))
	writeDescriptor(t, fs)
	tr := &fakeTrainer{}
	a, logs := setupAppTest(t, &Config{}, WithFs(fs), WithTrainer(tr), cpuOnly())

	// --- Act ---
	report, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, OutcomeTrained, report.Outcome)
	require.NoError(t, report.Err)
	assert.Equal(t, "cpu", report.Device.Token)
	assert.Equal(t, exportPath, report.Archive.Path)
	assert.Equal(t, 10, report.Unpack.Images)
	assert.Equal(t, 5, report.Unpack.Labels)
	assert.Len(t, report.Split.Val, 2)
	assert.Len(t, report.Split.Train, 8)

	layout := dataset.NewLayout(testBase)
	trainLabels, err := fsutil.ListFiles(fs, layout.Labels(dataset.Train))
	require.NoError(t, err)
	valLabels, err := fsutil.ListFiles(fs, layout.Labels(dataset.Val))
	require.NoError(t, err)
	assert.Len(t, append(trainLabels, valLabels...), 5, "every label ends up in exactly one pool")

	jobs := tr.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "cpu", jobs[0].Device)
	assert.Equal(t, filepath.Join(testBase, "data.yaml"), jobs[0].Descriptor)
	assert.Equal(t, 100, jobs[0].Epochs)
	assert.Equal(t, 640, jobs[0].ImageSize)

	out := logs.String()
	assert.Contains(t, out, "Using compute device.")
	assert.Less(t, strings.Index(out, "Using compute device."), strings.Index(out, "Archive extracted."),
		"device is reported before any filesystem work")
	assert.Contains(t, out, "outcome=trained")
}

func TestRun_NoArchive(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := afero.NewMemMapFs()
	tr := &fakeTrainer{}
	a, logs := setupAppTest(t, &Config{}, WithFs(fs), WithTrainer(tr), cpuOnly())

	// --- Act ---
	report, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoArchive, report.Outcome)
	assert.False(t, report.Outcome.Failed())
	assert.Empty(t, tr.Jobs())
	assert.Contains(t, logs.String(), "No archive found")

	for _, dir := range dataset.NewLayout(testBase).SplitDirs() {
		ok, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, ok, "split directory %s is initialised even without an archive", dir)
	}
}

func TestRun_InvalidStructure(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		files   map[string]string
		wantErr any
	}{
		{
			name: "classes file missing",
			files: func() map[string]string {
				f := exportFiles(10, 5)
				delete(f, "classes.txt")
				return f
			}(),
			wantErr: &validate.MissingPathError{},
		},
		{
			name:    "too few images for a validation pool",
			files:   exportFiles(3, 3),
			wantErr: &validate.EmptyPoolError{},
		},
		{
			name: "class list differs",
			files: func() map[string]string {
				f := exportFiles(10, 5)
				f["classes.txt"] = "apple\npear\n"
				return f
			}(),
			wantErr: &validate.ClassMismatchError{},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			fs := afero.NewMemMapFs()
			writeExport(t, fs, exportPath, tc.files)
			writeDescriptor(t, fs)
			tr := &fakeTrainer{}
			a, _ := setupAppTest(t, &Config{}, WithFs(fs), WithTrainer(tr), cpuOnly())

			// --- Act ---
			report, err := a.Run(context.Background())

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, OutcomeInvalid, report.Outcome)
			assert.True(t, report.Outcome.Failed())
			assert.ErrorIs(t, report.Err, validate.ErrIntegrity)
			assert.IsType(t, tc.wantErr, report.Err)
			assert.Empty(t, tr.Jobs(), "training never starts on an invalid dataset")
		})
	}
}

func TestRun_TrainingFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := afero.NewMemMapFs()
	writeExport(t, fs, exportPath, exportFiles(10, 5))
	writeDescriptor(t, fs)
	tr := &fakeTrainer{err: errors.New("out of memory")}
	a, logs := setupAppTest(t, &Config{}, WithFs(fs), WithTrainer(tr), cpuOnly())

	// --- Act ---
	report, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, OutcomeTrainFailed, report.Outcome)
	var trainErr *trainer.Error
	require.ErrorAs(t, report.Err, &trainErr)
	assert.Equal(t, "cpu", trainErr.Device)
	assert.Contains(t, report.Err.Error(), "out of memory")
	assert.Contains(t, logs.String(), "Training failed.")
}

func TestRun_SkipTrain(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeExport(t, fs, exportPath, exportFiles(10, 5))
	writeDescriptor(t, fs)
	tr := &fakeTrainer{}
	a, _ := setupAppTest(t, &Config{SkipTrain: true}, WithFs(fs), WithTrainer(tr), cpuOnly())

	report, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomePrepared, report.Outcome)
	assert.Empty(t, tr.Jobs())
}

func TestRun_DescriptorDriftOnlyWarns(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := afero.NewMemMapFs()
	writeExport(t, fs, exportPath, exportFiles(10, 5))
	require.NoError(t, afero.WriteFile(fs, testBase+"/data.yaml", []byte("nc: 2\nnames: [cat, dog]\n"), 0o644))
	tr := &fakeTrainer{}
	a, logs := setupAppTest(t, &Config{}, WithFs(fs), WithTrainer(tr), cpuOnly())

	// --- Act ---
	report, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, OutcomeTrained, report.Outcome)
	assert.Contains(t, logs.String(), "Dataset descriptor disagrees with the class list.")
}

func TestRun_CleanToggle(t *testing.T) {
	t.Parallel()

	for _, clean := range []bool{true, false} {
		clean := clean
		name := map[bool]string{true: "clean", false: "keep"}[clean]
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			fs := afero.NewMemMapFs()
			stale := filepath.Join(dataset.NewLayout(testBase).Images(dataset.Val), "stale.jpg")
			require.NoError(t, afero.WriteFile(fs, stale, []byte("old"), 0o644))
			cfg := &Config{SkipTrain: true}
			cfg.Overrides.Clean = &clean
			a, _ := setupAppTest(t, cfg, WithFs(fs), cpuOnly())

			// --- Act ---
			_, err := a.Run(context.Background())

			// --- Assert ---
			require.NoError(t, err)
			ok, err := afero.Exists(fs, stale)
			require.NoError(t, err)
			assert.Equal(t, !clean, ok)
		})
	}
}

func TestStatusEndpoints(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	fs := afero.NewMemMapFs()
	a, _ := setupAppTest(t, &Config{}, WithFs(fs), WithTrainer(&fakeTrainer{}), cpuOnly())
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	srv := httptest.NewServer(a.statusMux())
	t.Cleanup(srv.Close)

	// --- Act ---
	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	// --- Assert ---
	assert.Equal(t, http.StatusOK, health.StatusCode)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got statusSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "done", got.Stage)
	assert.Equal(t, OutcomeNoArchive, got.Outcome)
	assert.Equal(t, "cpu", got.Device)
	assert.False(t, got.StartedAt.IsZero())
}
