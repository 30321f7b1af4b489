package faucet

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/purplefaucet/purple-faucet/internal/types"
)

// OwnershipGuard answers who may run privileged operations.
type OwnershipGuard interface {
	Owner() common.Address
	IsOwner(caller common.Address) bool
	TransferOwnership(caller, newOwner common.Address) *types.Error
}

// PauseSwitch gates payouts.
type PauseSwitch interface {
	IsPaused() bool
	SetPaused(paused bool)
}

// Chain moves and inspects the native currency. Address is the account
// physically holding the pool.
type Chain interface {
	Address() common.Address
	Balance(ctx context.Context, addr common.Address) (sdkmath.Uint, error)
	IsContract(ctx context.Context, addr common.Address) (bool, error)
	Transfer(ctx context.Context, to common.Address, amount sdkmath.Uint) error
}

// TokenLedger is the ERC20 surface used by the token sweep.
type TokenLedger interface {
	TokenBalance(ctx context.Context, token, holder common.Address) (sdkmath.Uint, error)
	TransferToken(ctx context.Context, token, to common.Address, amount sdkmath.Uint) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Journal records committed changes. It is called with the engine lock held,
// so records arrive in commit order.
type Journal interface {
	RecordState(ctx context.Context, snapshot Snapshot) error
	RecordLock(ctx context.Context, recipient common.Address, paidAt time.Time) error
}

// EventSink receives the domain events of committed operations.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

type nopJournal struct{}

func (nopJournal) RecordState(context.Context, Snapshot) error                 { return nil }
func (nopJournal) RecordLock(context.Context, common.Address, time.Time) error { return nil }

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}
