package faucet

import (
	"context"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/purplefaucet/purple-faucet/internal/observability/metrics"
	"github.com/purplefaucet/purple-faucet/internal/types"
)

// OwnerFeePolicy controls the owner fee top-up: the owner is sponsored with
// TopUpAmount whenever its balance drops below MinBalance.
type OwnerFeePolicy struct {
	MinBalance  sdkmath.Uint
	TopUpAmount sdkmath.Uint
}

// Engine is the faucet distribution engine. Operations run one at a time and
// either commit all of their changes or none.
type Engine struct {
	mu sync.Mutex

	state  *State
	owner  OwnershipGuard
	pause  PauseSwitch
	chain  Chain
	tokens TokenLedger

	clock          Clock
	policy         OwnerFeePolicy
	allowContracts bool
	journal        Journal
	sink           EventSink
}

type Option func(*Engine)

func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithOwnerFeePolicy(policy OwnerFeePolicy) Option {
	return func(e *Engine) { e.policy = policy }
}

// WithContractRecipients disables the deployed-code check on payout recipients.
func WithContractRecipients(allow bool) Option {
	return func(e *Engine) { e.allowContracts = allow }
}

func WithJournal(journal Journal) Option {
	return func(e *Engine) { e.journal = journal }
}

func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

func NewEngine(
	state *State,
	owner OwnershipGuard,
	pause PauseSwitch,
	chain Chain,
	tokens TokenLedger,
	opts ...Option,
) *Engine {
	e := &Engine{
		state:   state,
		owner:   owner,
		pause:   pause,
		chain:   chain,
		tokens:  tokens,
		clock:   systemClock{},
		policy:  DefaultOwnerFeePolicy(),
		journal: nopJournal{},
		sink:    nopSink{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultOwnerFeePolicy tops the owner up with 0.5 native units when it holds
// less than 2.
func DefaultOwnerFeePolicy() OwnerFeePolicy {
	return OwnerFeePolicy{
		MinBalance:  sdkmath.NewUintFromString("2000000000000000000"),
		TopUpAmount: sdkmath.NewUintFromString("500000000000000000"),
	}
}

// ReceiveFunds credits the pool with an inbound transfer. Anyone may fund the
// faucet.
func (e *Engine) ReceiveFunds(ctx context.Context, sender common.Address, amount sdkmath.Uint) Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	e.state.credit(amount)

	event := Event{
		Type:      types.EventFaucetFunded,
		Address:   sender,
		Amount:    amount,
		Timestamp: now,
	}
	e.commit(ctx, "ReceiveFunds", nil, event)
	return event
}

// Payout sends the configured payout amount to recipient.
func (e *Engine) Payout(ctx context.Context, caller, recipient common.Address) (*Event, *types.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	event, err := e.payout(ctx, caller, recipient)
	e.observe(ctx, "Payout", err)
	return event, err
}

func (e *Engine) payout(ctx context.Context, caller, recipient common.Address) (*Event, *types.Error) {
	if err := e.onlyOwner(caller); err != nil {
		return nil, err
	}
	if e.pause.IsPaused() {
		return nil, types.NewFaucetError(types.Paused, "faucet is paused")
	}

	if !e.allowContracts {
		isContract, err := e.chain.IsContract(ctx, recipient)
		if err != nil {
			return nil, chainUnavailable("code lookup", recipient, err)
		}
		if isContract {
			return nil, types.NewFaucetError(types.RecipientIsContract, "recipient %s is a contract", recipient.Hex())
		}
	}

	amount := e.state.PayoutAmount
	balance, err := e.chain.Balance(ctx, recipient)
	if err != nil {
		return nil, chainUnavailable("balance", recipient, err)
	}
	if balance.GTE(amount) {
		return nil, types.NewFaucetError(types.RecipientAlreadyFunded,
			"recipient %s holds %s, payout amount is %s", recipient.Hex(), balance, amount)
	}

	now := e.clock.Now()
	if e.state.isLocked(recipient, now) {
		expiry, _ := e.state.lockExpiry(recipient)
		return nil, types.NewFaucetError(types.RecipientLocked,
			"recipient %s has time lock until %s", recipient.Hex(), expiry.Format(time.RFC3339))
	}

	if e.state.PoolBalance.LT(amount) {
		return nil, insufficientPool(e.state.PoolBalance, amount)
	}

	if err := e.chain.Transfer(ctx, recipient, amount); err != nil {
		return nil, types.NewFaucetError(types.TransferFailed, "payout to %s failed: %v", recipient.Hex(), err)
	}

	e.state.recordPayout(recipient, amount, now)

	event := Event{
		Type:      types.EventFaucetPayout,
		Address:   recipient,
		Amount:    amount,
		Timestamp: now,
	}
	e.commit(ctx, "Payout", &recipient, event)
	return &event, nil
}

// FundOwner sponsors the owner's transaction fees from the pool.
func (e *Engine) FundOwner(ctx context.Context, caller common.Address) (sdkmath.Uint, *types.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	amount, err := e.fundOwner(ctx, caller)
	e.observe(ctx, "FundOwner", err)
	return amount, err
}

func (e *Engine) fundOwner(ctx context.Context, caller common.Address) (sdkmath.Uint, *types.Error) {
	if err := e.onlyOwner(caller); err != nil {
		return sdkmath.ZeroUint(), err
	}

	owner := e.owner.Owner()
	balance, err := e.chain.Balance(ctx, owner)
	if err != nil {
		return sdkmath.ZeroUint(), chainUnavailable("balance", owner, err)
	}
	if balance.GTE(e.policy.MinBalance) {
		return sdkmath.ZeroUint(), types.NewFaucetError(types.OwnerBalanceSufficient,
			"owner holds %s, top-up threshold is %s", balance, e.policy.MinBalance)
	}

	amount := e.policy.TopUpAmount
	if e.state.PoolBalance.LT(amount) {
		return sdkmath.ZeroUint(), insufficientPool(e.state.PoolBalance, amount)
	}

	if err := e.chain.Transfer(ctx, owner, amount); err != nil {
		return sdkmath.ZeroUint(), types.NewFaucetError(types.TransferFailed, "owner top-up failed: %v", err)
	}

	e.state.debit(amount)
	e.commit(ctx, "FundOwner", nil)
	return amount, nil
}

// WithdrawToken sweeps the faucet's whole balance of token to the owner and
// returns the amount moved. A zero balance is swept like any other.
func (e *Engine) WithdrawToken(ctx context.Context, caller, token common.Address) (sdkmath.Uint, *types.Error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		e.observe(ctx, "WithdrawToken", err)
		return sdkmath.ZeroUint(), err
	}

	balance, err := e.tokens.TokenBalance(ctx, token, e.chain.Address())
	if err != nil {
		ferr := chainUnavailable("token balance", token, err)
		e.observe(ctx, "WithdrawToken", ferr)
		return sdkmath.ZeroUint(), ferr
	}

	if err := e.tokens.TransferToken(ctx, token, e.owner.Owner(), balance); err != nil {
		ferr := types.NewFaucetError(types.TransferFailed, "sweep of token %s failed: %v", token.Hex(), err)
		e.observe(ctx, "WithdrawToken", ferr)
		return sdkmath.ZeroUint(), ferr
	}

	log.Ctx(ctx).Info().
		Str("token", token.Hex()).
		Str("amount", balance.String()).
		Msg("swept token balance to owner")
	e.observe(ctx, "WithdrawToken", nil)
	return balance, nil
}

func (e *Engine) SetPayoutAmount(ctx context.Context, caller common.Address, amount sdkmath.Uint) *types.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	e.state.PayoutAmount = amount
	e.commit(ctx, "SetPayoutAmount", nil)
	return nil
}

func (e *Engine) SetLockDuration(ctx context.Context, caller common.Address, seconds uint64) *types.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	e.state.LockDuration = seconds
	e.commit(ctx, "SetLockDuration", nil)
	return nil
}

func (e *Engine) PauseWithdrawals(ctx context.Context, caller common.Address) *types.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	if e.pause.IsPaused() {
		return types.NewFaucetError(types.AlreadyPaused, "faucet is already paused")
	}
	e.pause.SetPaused(true)
	e.commit(ctx, "PauseWithdrawals", nil)
	return nil
}

func (e *Engine) ResumeWithdrawals(ctx context.Context, caller common.Address) *types.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	if !e.pause.IsPaused() {
		return types.NewFaucetError(types.NotPaused, "faucet is not paused")
	}
	e.pause.SetPaused(false)
	e.commit(ctx, "ResumeWithdrawals", nil)
	return nil
}

func (e *Engine) TransferOwnership(ctx context.Context, caller, newOwner common.Address) *types.Error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.onlyOwner(caller); err != nil {
		return err
	}
	// the wallet would top itself up from its own pool
	if newOwner == e.chain.Address() {
		return types.NewFaucetError(types.BadRequest, "new owner %s is the faucet wallet", newOwner.Hex())
	}
	if err := e.owner.TransferOwnership(caller, newOwner); err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("previous_owner", caller.Hex()).
		Str("new_owner", newOwner.Hex()).
		Msg("faucet ownership transferred")
	e.commit(ctx, "TransferOwnership", nil)
	return nil
}

func (e *Engine) PayoutAmount() sdkmath.Uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PayoutAmount
}

func (e *Engine) LockDuration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.LockDuration
}

// RecipientLockExpiry returns when recipient may be paid again, measured from
// its last payout with the current lock duration. It returns false for
// recipients that were never paid.
func (e *Engine) RecipientLockExpiry(recipient common.Address) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.lockExpiry(recipient)
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Stats
}

func (e *Engine) PoolBalance() sdkmath.Uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PoolBalance
}

func (e *Engine) Paused() bool {
	return e.pause.IsPaused()
}

func (e *Engine) Owner() common.Address {
	return e.owner.Owner()
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		Owner:        e.owner.Owner(),
		Paused:       e.pause.IsPaused(),
		PoolBalance:  e.state.PoolBalance,
		PayoutAmount: e.state.PayoutAmount,
		LockDuration: e.state.LockDuration,
		Stats:        e.state.Stats,
	}
}

func (e *Engine) onlyOwner(caller common.Address) *types.Error {
	if !e.owner.IsOwner(caller) {
		return types.NewFaucetError(types.Unauthorized, "caller %s is not the owner", caller.Hex())
	}
	return nil
}

// commit hands a committed change to the journal and the event sink. The
// change already happened, so journal failures are logged and not returned.
func (e *Engine) commit(ctx context.Context, op string, paid *common.Address, events ...Event) {
	logger := log.Ctx(ctx)

	if err := e.journal.RecordState(ctx, e.snapshot()); err != nil {
		logger.Error().Err(err).Str("operation", op).Msg("failed to record faucet state")
	}
	if paid != nil {
		if err := e.journal.RecordLock(ctx, *paid, e.state.Locks[*paid]); err != nil {
			logger.Error().Err(err).Str("recipient", paid.Hex()).Msg("failed to record recipient lock")
		}
	}
	for _, event := range events {
		e.sink.Emit(ctx, event)
	}

	metrics.RecordPoolBalance(e.state.PoolBalance.BigInt())
	logger.Debug().
		Str("operation", op).
		Str("pool_balance", e.state.PoolBalance.String()).
		Msg("faucet state committed")
}

func (e *Engine) observe(ctx context.Context, op string, err *types.Error) {
	if err == nil {
		metrics.RecordFaucetOperation(op, "")
		return
	}
	metrics.RecordFaucetOperation(op, err.ErrorCode.String())
	log.Ctx(ctx).Debug().
		Str("operation", op).
		Str("error_code", err.ErrorCode.String()).
		Err(err).
		Msg("faucet operation rejected")
}

func chainUnavailable(what string, addr common.Address, err error) *types.Error {
	return types.NewFaucetError(types.ChainUnavailable, "failed to query %s of %s: %v", what, addr.Hex(), err)
}

func insufficientPool(pool, amount sdkmath.Uint) *types.Error {
	return types.NewFaucetError(types.InsufficientPool,
		"faucet has insufficient balance: pool %s, requested %s", pool, amount)
}
