package main

import (
	"fmt"
	"io"

	"github.com/user/objtrack/pkg/adapters/logger"
	"github.com/user/objtrack/pkg/config"
	"github.com/user/objtrack/pkg/ports"
)

// newLogger selects the logger adapter for the configured format.
func newLogger(cfg config.Config, quiet bool, stderr io.Writer) (ports.Logger, error) {
	if quiet {
		return logger.NewNoop(), nil
	}
	level, err := ports.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	switch cfg.LogFormat {
	case "text":
		return logger.NewStructured(level, stderr, false), nil
	case "json":
		return logger.NewStructured(level, stderr, true), nil
	default:
		return logger.NewConsole(level), nil
	}
}
