package config

const (
	defaultCPUPercent       = 50
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultProgressInterval = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Limits: Limits{
			CPUPercent: defaultCPUPercent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Progress: Progress{
			Enabled:         true,
			IntervalSeconds: defaultProgressInterval,
		},
	}
}
