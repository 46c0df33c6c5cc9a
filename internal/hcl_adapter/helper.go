package hcl_adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/specialistvlad/detprep/internal/ctxlog"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The decoder populates omitted optional attributes with zero-width
// placeholder expressions, so a nil check is insufficient: a real attribute
// occupies bytes in the file.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		return false
	}
	r := expr.Range()
	isDefined := r.End.Byte > r.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// assign evaluates expr, converts it to the cty type implied by target and
// stores it there. Omitted or null attributes leave target untouched.
func assign(ctx context.Context, expr hcl.Expression, evalCtx *hcl.EvalContext, attrName string, target any) error {
	if !isExprDefined(ctx, expr, attrName) {
		return nil
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return fmt.Errorf("invalid value for %s: %w", attrName, diags)
	}
	if val.IsNull() {
		return nil
	}

	ty, err := gocty.ImpliedType(target)
	if err != nil {
		return fmt.Errorf("unsupported target for %s: %w", attrName, err)
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("%s must be %s: %w", attrName, ty.FriendlyName(), err)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return fmt.Errorf("%s: %w", attrName, err)
	}
	return nil
}

// envFunc exposes environment variables to pipeline files: env("HOME").
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

// newEvalContext builds the context pipeline expressions are evaluated in.
func newEvalContext(configDir string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"config_dir": cty.StringVal(configDir),
		},
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}
}
