package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

type ChainBackend string

const (
	ChainBackendEVM    ChainBackend = "evm"
	ChainBackendMemory ChainBackend = "memory"
)

const (
	defaultChainTimeout        = 20 * time.Second
	defaultChainMaxRetryTimes  = 5
	defaultChainRetryInterval  = 500 * time.Millisecond
	defaultReceiptTimeout      = 2 * time.Minute
	defaultReceiptPollInterval = 2 * time.Second
)

// ChainConfig defines configuration for the chain client
type ChainConfig struct {
	Backend ChainBackend `mapstructure:"backend"`
	RPCAddr string       `mapstructure:"rpc-addr"`
	// PrivateKey is the hex encoded key of the hot wallet holding the pool
	PrivateKey          string        `mapstructure:"private-key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRetryTimes       uint          `mapstructure:"max-retry-times"`
	RetryInterval       time.Duration `mapstructure:"retry-interval"`
	ReceiptTimeout      time.Duration `mapstructure:"receipt-timeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt-poll-interval"`
}

func DefaultChainConfig() *ChainConfig {
	return &ChainConfig{
		Backend:             ChainBackendEVM,
		Timeout:             defaultChainTimeout,
		MaxRetryTimes:       defaultChainMaxRetryTimes,
		RetryInterval:       defaultChainRetryInterval,
		ReceiptTimeout:      defaultReceiptTimeout,
		ReceiptPollInterval: defaultReceiptPollInterval,
	}
}

func (cfg *ChainConfig) Validate() error {
	switch cfg.Backend {
	case ChainBackendMemory:
		return nil
	case ChainBackendEVM:
	default:
		return fmt.Errorf("unsupported chain backend %q", cfg.Backend)
	}

	if cfg.RPCAddr == "" {
		return errors.New("rpc-addr cannot be empty")
	}
	if _, err := cfg.WalletKey(); err != nil {
		return err
	}

	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return errors.New("max-retry-times must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("retry-interval must be positive")
	}
	if cfg.ReceiptTimeout <= 0 {
		return errors.New("receipt-timeout must be positive")
	}
	if cfg.ReceiptPollInterval <= 0 {
		return errors.New("receipt-poll-interval must be positive")
	}

	return nil
}

// WalletKey decodes the hot wallet key.
func (cfg *ChainConfig) WalletKey() (*ecdsa.PrivateKey, error) {
	if cfg.PrivateKey == "" {
		return nil, errors.New("private-key cannot be empty")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private-key: %w", err)
	}
	return key, nil
}
