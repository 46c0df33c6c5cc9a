// Package hcl_adapter provides the HCL implementation of config.Loader. It
// parses a pipeline file, evaluates its expressions against a small
// evaluation context, and binds the results onto a config.Pipeline.
package hcl_adapter
