package scheduler

import (
	"time"

	"github.com/smallbiznis/gescom/internal/config"
)

// Config controls the run loop and per-job deadlines.
type Config struct {
	RunInterval  time.Duration
	SweepTimeout time.Duration
	// EnabledJobs restricts RunOnce to the named jobs. Empty enables all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:  15 * time.Minute,
		SweepTimeout: 2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{RunInterval: cfg.Billing.OverdueSweepInterval}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	return c
}
