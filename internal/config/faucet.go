package config

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// 0.001 native units
	defaultPayoutAmount = "1000000000000000"
	// one week
	defaultLockDuration = 7 * 24 * 60 * 60
	// 2 native units
	defaultOwnerMinBalance = "2000000000000000000"
	// 0.5 native units
	defaultOwnerTopUpAmount = "500000000000000000"
)

// FaucetConfig holds the initial engine parameters. Amounts are decimal wei
// strings. Once the engine state is persisted, payout amount and lock
// duration come from the database and these values only seed a fresh faucet.
type FaucetConfig struct {
	Owner        string `mapstructure:"owner"`
	PayoutAmount string `mapstructure:"payout-amount"`
	// LockDuration is in seconds; unset means one week, 0 disables the lock
	LockDuration     *uint64 `mapstructure:"lock-duration"`
	OwnerMinBalance  string  `mapstructure:"owner-min-balance"`
	OwnerTopUpAmount string  `mapstructure:"owner-top-up-amount"`
	// AllowContracts disables the deployed-code check on payout recipients
	AllowContracts bool `mapstructure:"allow-contracts"`
}

func DefaultFaucetConfig() *FaucetConfig {
	lockDuration := uint64(defaultLockDuration)
	return &FaucetConfig{
		PayoutAmount:     defaultPayoutAmount,
		LockDuration:     &lockDuration,
		OwnerMinBalance:  defaultOwnerMinBalance,
		OwnerTopUpAmount: defaultOwnerTopUpAmount,
	}
}

func (cfg *FaucetConfig) Validate() error {
	if !common.IsHexAddress(cfg.Owner) {
		return fmt.Errorf("owner must be a hex address, got %q", cfg.Owner)
	}
	if cfg.OwnerAddress() == (common.Address{}) {
		return errors.New("owner cannot be the zero address")
	}

	if cfg.PayoutAmount == "" {
		cfg.PayoutAmount = defaultPayoutAmount
	}
	if _, err := sdkmath.ParseUint(cfg.PayoutAmount); err != nil {
		return fmt.Errorf("invalid payout-amount: %w", err)
	}
	if cfg.LockDuration == nil {
		lockDuration := uint64(defaultLockDuration)
		cfg.LockDuration = &lockDuration
	}

	if cfg.OwnerMinBalance == "" {
		cfg.OwnerMinBalance = defaultOwnerMinBalance
	}
	if cfg.OwnerTopUpAmount == "" {
		cfg.OwnerTopUpAmount = defaultOwnerTopUpAmount
	}
	minBalance, err := sdkmath.ParseUint(cfg.OwnerMinBalance)
	if err != nil {
		return fmt.Errorf("invalid owner-min-balance: %w", err)
	}
	topUp, err := sdkmath.ParseUint(cfg.OwnerTopUpAmount)
	if err != nil {
		return fmt.Errorf("invalid owner-top-up-amount: %w", err)
	}
	if topUp.IsZero() {
		return errors.New("owner-top-up-amount must be positive")
	}
	if !minBalance.GT(topUp) {
		return errors.New("owner-min-balance must be greater than owner-top-up-amount")
	}

	return nil
}

func (cfg *FaucetConfig) OwnerAddress() common.Address {
	return common.HexToAddress(cfg.Owner)
}

// The accessors below must only be called on a validated config.

func (cfg *FaucetConfig) PayoutAmountUint() sdkmath.Uint {
	return sdkmath.NewUintFromString(cfg.PayoutAmount)
}

func (cfg *FaucetConfig) LockDurationSeconds() uint64 {
	return *cfg.LockDuration
}

func (cfg *FaucetConfig) OwnerMinBalanceUint() sdkmath.Uint {
	return sdkmath.NewUintFromString(cfg.OwnerMinBalance)
}

func (cfg *FaucetConfig) OwnerTopUpAmountUint() sdkmath.Uint {
	return sdkmath.NewUintFromString(cfg.OwnerTopUpAmount)
}
