package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top level of a pipeline file. Attributes are kept as
// expressions so that omitted ones can be told apart from zero values.
type fileRoot struct {
	BaseDir        hcl.Expression `hcl:"base_dir,optional"`
	ArchivePattern hcl.Expression `hcl:"archive_pattern,optional"`
	Clean          hcl.Expression `hcl:"clean,optional"`
	Classes        hcl.Expression `hcl:"classes,optional"`
	Split          *splitBlock    `hcl:"split,block"`
	Training       *trainingBlock `hcl:"training,block"`
}

type splitBlock struct {
	ValRatio hcl.Expression `hcl:"val_ratio,optional"`
	Seed     hcl.Expression `hcl:"seed,optional"`
}

type trainingBlock struct {
	Descriptor hcl.Expression `hcl:"descriptor,optional"`
	Model      hcl.Expression `hcl:"model,optional"`
	Epochs     hcl.Expression `hcl:"epochs,optional"`
	ImageSize  hcl.Expression `hcl:"image_size,optional"`
	Command    hcl.Expression `hcl:"command,optional"`
	Args       hcl.Expression `hcl:"args,optional"`
}
