package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"

	"github.com/specialistvlad/detprep/internal/config"
	"github.com/specialistvlad/detprep/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	fs afero.Fs
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a loader that reads pipeline files from fs.
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{fs: fs}
}

// Load parses the pipeline file at path and applies the settings it declares
// on top of base.
func (l *Loader) Load(ctx context.Context, base config.Pipeline, path string) (config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	logger.Debug("Loading pipeline configuration.")

	src, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return config.Pipeline{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return config.Pipeline{}, fmt.Errorf("failed to parse config %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return config.Pipeline{}, fmt.Errorf("failed to decode config %s: %w", path, diags)
	}

	out := base.Clone()
	evalCtx := newEvalContext(filepath.Dir(path))
	if err := apply(ctx, &root, evalCtx, &out); err != nil {
		return config.Pipeline{}, fmt.Errorf("config %s: %w", path, err)
	}

	logger.Debug("Pipeline configuration loaded.", "base_dir", out.BaseDir, "classes", len(out.Classes))
	return out, nil
}

type binding struct {
	expr   hcl.Expression
	name   string
	target any
}

// apply evaluates every declared attribute onto out.
func apply(ctx context.Context, root *fileRoot, evalCtx *hcl.EvalContext, out *config.Pipeline) error {
	bindings := []binding{
		{root.BaseDir, "base_dir", &out.BaseDir},
		{root.ArchivePattern, "archive_pattern", &out.ArchivePattern},
		{root.Clean, "clean", &out.Clean},
		{root.Classes, "classes", &out.Classes},
	}
	if s := root.Split; s != nil {
		bindings = append(bindings,
			binding{s.ValRatio, "split.val_ratio", &out.Split.ValRatio},
			binding{s.Seed, "split.seed", &out.Split.Seed},
		)
	}
	if t := root.Training; t != nil {
		bindings = append(bindings,
			binding{t.Descriptor, "training.descriptor", &out.Training.Descriptor},
			binding{t.Model, "training.model", &out.Training.Model},
			binding{t.Epochs, "training.epochs", &out.Training.Epochs},
			binding{t.ImageSize, "training.image_size", &out.Training.ImageSize},
			binding{t.Command, "training.command", &out.Training.Command},
			binding{t.Args, "training.args", &out.Training.Args},
		)
	}

	for _, b := range bindings {
		if err := assign(ctx, b.expr, evalCtx, b.name, b.target); err != nil {
			return err
		}
	}
	return nil
}
