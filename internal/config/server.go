package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 3 * time.Minute
	defaultIdleTimeout  = 60 * time.Second
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// OwnerAPIKey authenticates requests acting as the faucet owner
	OwnerAPIKey  string        `mapstructure:"owner-api-key"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle-timeout"`
}

func (cfg *ServerConfig) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535 (inclusive)")
	}
	if net.ParseIP(cfg.Host) == nil {
		return errors.New("invalid server host")
	}
	if len(cfg.OwnerAPIKey) < 16 {
		return errors.New("owner-api-key must be at least 16 characters")
	}

	// write timeout covers a payout waiting for its receipt
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	return nil
}

func (cfg *ServerConfig) Addr() string {
	return net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
}
