package config

import (
	"errors"
	"time"
)

const (
	defaultDepositBatchSize   = 100
	defaultDepositConcurrency = 4
)

type PollerConfig struct {
	DepositPollingInterval time.Duration `mapstructure:"deposit-polling-interval"`
	// DepositStartHeight is where the deposit watcher starts on an empty database
	DepositStartHeight uint64 `mapstructure:"deposit-start-height"`
	DepositBatchSize   uint64 `mapstructure:"deposit-batch-size"`
	DepositConcurrency int    `mapstructure:"deposit-concurrency"`
}

func (cfg *PollerConfig) Validate() error {
	if cfg.DepositPollingInterval <= 0 {
		return errors.New("deposit-polling-interval must be positive")
	}

	if cfg.DepositBatchSize == 0 {
		cfg.DepositBatchSize = defaultDepositBatchSize
	}

	if cfg.DepositConcurrency <= 0 {
		cfg.DepositConcurrency = defaultDepositConcurrency
	}

	return nil
}
