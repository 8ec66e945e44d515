package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateProgress(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Limits.CPUPercent <= 0 || c.Limits.CPUPercent > 100 {
		return fmt.Errorf("limits.cpu_percent must be in (0, 100], got %v", c.Limits.CPUPercent)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateProgress() error {
	if c.Progress.IntervalSeconds < 0 {
		return errors.New("progress.interval_seconds must not be negative")
	}
	return nil
}
