package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvCPULimit overrides limits.cpu_percent when set.
const EnvCPULimit = "GTFSCACHE_CPU_LIMIT"

func (c *Config) normalize() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Progress.IntervalSeconds == 0 {
		c.Progress.IntervalSeconds = defaultProgressInterval
	}

	if raw, ok := os.LookupEnv(EnvCPULimit); ok && strings.TrimSpace(raw) != "" {
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCPULimit, err)
		}
		c.Limits.CPUPercent = value
	}
	return nil
}
