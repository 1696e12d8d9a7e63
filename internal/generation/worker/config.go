package worker

import "time"

// Config controls the generation worker loop.
type Config struct {
	PollInterval time.Duration
	RunTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 1 * time.Hour,
		RunTimeout:   5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
