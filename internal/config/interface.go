package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the file at path and applies every setting it declares on
	// top of base. Settings the file omits keep their value from base.
	Load(ctx context.Context, base Pipeline, path string) (Pipeline, error)
}
