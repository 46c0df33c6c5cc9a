package app

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/detprep/internal/config"
	"github.com/specialistvlad/detprep/internal/device"
	"github.com/specialistvlad/detprep/internal/trainer"
)

const testBase = "/work"

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// fakeTrainer records every job it is asked to run.
type fakeTrainer struct {
	mu   sync.Mutex
	jobs []trainer.Job
	err  error
}

func (f *fakeTrainer) Train(_ context.Context, job trainer.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.err
}

func (f *fakeTrainer) Jobs() []trainer.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trainer.Job(nil), f.jobs...)
}

// staticLoader returns a fixed pipeline or error, ignoring the path.
type staticLoader struct {
	pipeline *config.Pipeline
	err      error
}

func (l staticLoader) Load(_ context.Context, base config.Pipeline, _ string) (config.Pipeline, error) {
	if l.err != nil {
		return config.Pipeline{}, l.err
	}
	if l.pipeline != nil {
		return *l.pipeline, nil
	}
	return base, nil
}

// cpuOnly selects the CPU without touching the host.
func cpuOnly() Option {
	return WithDeviceSelector(device.NewSelector(device.WithProbes(nil, nil)))
}

// exportFiles describes an annotation export with n images, the first
// labelled of which carry labels.
func exportFiles(n, labelled int) map[string]string {
	files := map[string]string{
		"classes.txt": "apple\ndefect\norange\npear\n",
		"notes.json":  `{"categories": []}`,
	}
	for i := 0; i < n; i++ {
		files[fmt.Sprintf("images/img%02d.jpg", i)] = "jpeg"
		if i < labelled {
			files[fmt.Sprintf("labels/img%02d.txt", i)] = "0 0.5 0.5 0.1 0.1"
		}
	}
	return files
}

// writeExport stores files as a zip archive at path.
func writeExport(t *testing.T, fs afero.Fs, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
}

func writeDescriptor(t *testing.T, fs afero.Fs) {
	t.Helper()
	yaml := "path: /work/data\ntrain: train/images\nval: val/images\nnc: 4\nnames: [apple, defect, orange, pear]\n"
	require.NoError(t, afero.WriteFile(fs, testBase+"/data.yaml", []byte(yaml), 0o644))
}

// setupAppTest creates an App over fs with debug logging captured.
func setupAppTest(t *testing.T, cfg *Config, opts ...Option) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	cfg.LogLevel = "debug"
	base := testBase
	cfg.Overrides.BaseDir = &base
	testApp := NewApp(logBuffer, cfg, staticLoader{}, opts...)

	t.Cleanup(func() {
		if os.Getenv("DETPREP_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
