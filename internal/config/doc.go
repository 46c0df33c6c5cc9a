// Package config defines the format-agnostic pipeline configuration and the
// Loader interface that file formats implement.
//
// A Pipeline is resolved once at startup (defaults, then a config file, then
// explicit command-line overrides) and passed by value to every stage.
package config
