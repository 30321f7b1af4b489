package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Faucet    FaucetConfig    `mapstructure:"faucet"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Db        DbConfig        `mapstructure:"db"`
	Queue     *QueueConfig    `mapstructure:"queue"`
	Poller    PollerConfig    `mapstructure:"poller"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	if err := cfg.Faucet.Validate(); err != nil {
		return fmt.Errorf("invalid faucet config: %w", err)
	}
	if err := cfg.Chain.Validate(); err != nil {
		return fmt.Errorf("invalid chain config: %w", err)
	}
	if err := cfg.Db.Validate(); err != nil {
		return fmt.Errorf("invalid db config: %w", err)
	}
	// queue is optional, events are only journaled in db without it
	if cfg.Queue != nil {
		if err := cfg.Queue.Validate(); err != nil {
			return fmt.Errorf("invalid queue config: %w", err)
		}
	}
	if err := cfg.Poller.Validate(); err != nil {
		return fmt.Errorf("invalid poller config: %w", err)
	}
	// a live chain is far too long to scan from genesis
	if cfg.Chain.Backend == ChainBackendEVM && cfg.Poller.DepositStartHeight == 0 {
		return errors.New("invalid poller config: deposit-start-height is required with the evm backend")
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return fmt.Errorf("invalid scheduler config: %w", err)
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

// New returns a fully parsed Config object from a given file path.
// Every key can be overridden through the environment, e.g. FAUCET_OWNER
// for faucet.owner.
func New(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
