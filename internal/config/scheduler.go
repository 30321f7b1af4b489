package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

type SchedulerConfig struct {
	// OwnerTopUpCron is a 6 field cron spec (with seconds). Empty disables the job.
	OwnerTopUpCron string `mapstructure:"owner-top-up-cron"`
}

var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (cfg *SchedulerConfig) Validate() error {
	if cfg.OwnerTopUpCron == "" {
		return nil
	}
	if _, err := cronParser.Parse(cfg.OwnerTopUpCron); err != nil {
		return fmt.Errorf("invalid owner-top-up-cron: %w", err)
	}
	return nil
}

func (cfg *SchedulerConfig) OwnerTopUpEnabled() bool {
	return cfg.OwnerTopUpCron != ""
}
