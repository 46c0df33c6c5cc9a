package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/detprep/internal/config"
)

// Config holds the process-level settings of an App. Pipeline settings come
// from the optional pipeline file and the Overrides.
type Config struct {
	ConfigPath string // optional pipeline file

	LogFormat  string
	LogLevel   string
	StatusPort int
	SkipTrain  bool

	Overrides config.Overrides
}

// NewConfig validates cfg and fills the logging defaults.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	var errs []error
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, errors.New("invalid log-format: must be 'text' or 'json'"))
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'"))
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid status-port %d: must be between 0 and 65535", cfg.StatusPort))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
