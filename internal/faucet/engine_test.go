package faucet_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplefaucet/purple-faucet/internal/clients/chainclient"
	"github.com/purplefaucet/purple-faucet/internal/faucet"
	"github.com/purplefaucet/purple-faucet/internal/guard"
	"github.com/purplefaucet/purple-faucet/internal/types"
)

const weekSeconds = uint64(7 * 24 * 60 * 60)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	funder   = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	wallet   = common.HexToAddress("0x000000000000000000000000000000000000fa11")
	token    = common.HexToAddress("0x0000000000000000000000000000000000070c3e")

	// 0.001 and 0.1 native units.
	defaultPayout = sdkmath.NewUintFromString("1000000000000000")
	tenthUnit     = sdkmath.NewUintFromString("100000000000000000")
	oneUnit       = sdkmath.NewUintFromString("1000000000000000000")
	fiveUnits     = sdkmath.NewUintFromString("5000000000000000000")
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingSink struct {
	mu     sync.Mutex
	events []faucet.Event
}

func (s *recordingSink) Emit(_ context.Context, event faucet.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Events() []faucet.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]faucet.Event(nil), s.events...)
}

type recordingJournal struct {
	snapshots []faucet.Snapshot
	locks     map[common.Address]time.Time
	failWith  error
}

func (j *recordingJournal) RecordState(_ context.Context, snapshot faucet.Snapshot) error {
	j.snapshots = append(j.snapshots, snapshot)
	return j.failWith
}

func (j *recordingJournal) RecordLock(_ context.Context, recipient common.Address, paidAt time.Time) error {
	if j.locks == nil {
		j.locks = make(map[common.Address]time.Time)
	}
	j.locks[recipient] = paidAt
	return j.failWith
}

type testFaucet struct {
	engine  *faucet.Engine
	chain   *chainclient.MemoryChain
	clock   *fakeClock
	sink    *recordingSink
	journal *recordingJournal
}

func setupFaucet(t *testing.T, opts ...faucet.Option) *testFaucet {
	t.Helper()

	tf := &testFaucet{
		chain:   chainclient.NewMemoryChain(wallet),
		clock:   &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		sink:    &recordingSink{},
		journal: &recordingJournal{},
	}
	opts = append([]faucet.Option{
		faucet.WithClock(tf.clock),
		faucet.WithEventSink(tf.sink),
		faucet.WithJournal(tf.journal),
	}, opts...)

	tf.engine = faucet.NewEngine(
		faucet.NewState(defaultPayout, weekSeconds),
		guard.NewOwnable(owner),
		guard.NewPausable(false),
		tf.chain,
		tf.chain,
		opts...,
	)
	return tf
}

// fund deposits amount on chain and credits it to the pool the way the
// deposit watcher does.
func (tf *testFaucet) fund(amount sdkmath.Uint) {
	tf.chain.Deposit(funder, amount)
	tf.engine.ReceiveFunds(context.Background(), funder, amount)
}

func assertUint(t *testing.T, expected, actual sdkmath.Uint) {
	t.Helper()
	assert.Equal(t, expected.String(), actual.String())
}

func requireCode(t *testing.T, err *types.Error, code types.ErrorCode) {
	t.Helper()
	require.NotNil(t, err, "expected %s", code)
	assert.Equal(t, code, err.ErrorCode)
}

func TestReceiveFunds(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)

	event := tf.engine.ReceiveFunds(ctx, funder, tenthUnit)
	assert.Equal(t, types.EventFaucetFunded, event.Type)
	assert.Equal(t, funder, event.Address)
	assertUint(t, tenthUnit, event.Amount)
	assert.Equal(t, tf.clock.now, event.Timestamp)

	// anyone may fund, including the owner and a zero amount
	tf.engine.ReceiveFunds(ctx, owner, oneUnit)
	tf.engine.ReceiveFunds(ctx, stranger, sdkmath.ZeroUint())

	assertUint(t, tenthUnit.Add(oneUnit), tf.engine.PoolBalance())
	assertUint(t, tenthUnit.Add(oneUnit), tf.engine.Stats().TotalFunded)
	assert.Len(t, tf.sink.Events(), 3)
	require.Len(t, tf.journal.snapshots, 3)
	assertUint(t, tenthUnit.Add(oneUnit), tf.journal.snapshots[2].PoolBalance)
}

func TestPayoutScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("payout to a fresh recipient", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(tenthUnit)

		event, err := tf.engine.Payout(ctx, owner, alice)
		require.Nil(t, err)
		require.NotNil(t, event)
		assert.Equal(t, types.EventFaucetPayout, event.Type)
		assert.Equal(t, alice, event.Address)
		assertUint(t, defaultPayout, event.Amount)

		assertUint(t, tenthUnit.Sub(defaultPayout), tf.engine.PoolBalance())
		balance, _ := tf.chain.Balance(ctx, alice)
		assertUint(t, defaultPayout, balance)

		events := tf.sink.Events()
		require.Len(t, events, 2)
		assert.Equal(t, types.EventFaucetFunded, events[0].Type)
		assert.Equal(t, *event, events[1])

		assert.Equal(t, tf.clock.now, tf.journal.locks[alice])
	})

	t.Run("immediate repeat is locked", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(tenthUnit)

		_, err := tf.engine.Payout(ctx, owner, alice)
		require.Nil(t, err)
		// drain the recipient so the balance check passes again
		tf.chain.SetBalance(alice, sdkmath.ZeroUint())

		_, err = tf.engine.Payout(ctx, owner, alice)
		requireCode(t, err, types.RecipientLocked)
		assert.Equal(t, uint64(1), tf.engine.Stats().PayoutCount)
	})

	t.Run("payout after the lock elapses", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(tenthUnit)

		_, err := tf.engine.Payout(ctx, owner, alice)
		require.Nil(t, err)
		tf.chain.SetBalance(alice, sdkmath.ZeroUint())

		tf.clock.Advance(time.Duration(weekSeconds)*time.Second - time.Second)
		_, err = tf.engine.Payout(ctx, owner, alice)
		requireCode(t, err, types.RecipientLocked)

		tf.clock.Advance(time.Second)
		_, err = tf.engine.Payout(ctx, owner, alice)
		require.Nil(t, err)

		stats := tf.engine.Stats()
		assert.Equal(t, uint64(2), stats.PayoutCount)
		assertUint(t, defaultPayout.MulUint64(2), stats.TotalPaidOut)
	})

	t.Run("empty pool", func(t *testing.T) {
		tf := setupFaucet(t)

		_, err := tf.engine.Payout(ctx, owner, alice)
		requireCode(t, err, types.InsufficientPool)
		assert.Empty(t, tf.sink.Events())
		assert.Empty(t, tf.journal.snapshots)
	})

	t.Run("recipient already funded", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(tenthUnit)
		tf.chain.SetBalance(alice, oneUnit)

		_, err := tf.engine.Payout(ctx, owner, alice)
		requireCode(t, err, types.RecipientAlreadyFunded)

		// exactly the payout amount counts as funded
		tf.chain.SetBalance(alice, defaultPayout)
		_, err = tf.engine.Payout(ctx, owner, alice)
		requireCode(t, err, types.RecipientAlreadyFunded)
		assertUint(t, tenthUnit, tf.engine.PoolBalance())
	})

	t.Run("recipient is a contract", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(tenthUnit)
		tf.chain.SetCode(bob)

		_, err := tf.engine.Payout(ctx, owner, bob)
		requireCode(t, err, types.RecipientIsContract)
	})

	t.Run("contract recipients allowed", func(t *testing.T) {
		tf := setupFaucet(t, faucet.WithContractRecipients(true))
		tf.fund(tenthUnit)
		tf.chain.SetCode(bob)

		_, err := tf.engine.Payout(ctx, owner, bob)
		require.Nil(t, err)
	})
}

func TestPayoutCheckOrder(t *testing.T) {
	ctx := context.Background()

	// every check fails: empty pool, paused, recipient is a funded contract
	tf := setupFaucet(t)
	require.Nil(t, tf.engine.PauseWithdrawals(ctx, owner))
	tf.chain.SetCode(alice)
	tf.chain.SetBalance(alice, oneUnit)

	_, err := tf.engine.Payout(ctx, stranger, alice)
	requireCode(t, err, types.Unauthorized)

	_, err = tf.engine.Payout(ctx, owner, alice)
	requireCode(t, err, types.Paused)

	require.Nil(t, tf.engine.ResumeWithdrawals(ctx, owner))
	_, err = tf.engine.Payout(ctx, owner, alice)
	requireCode(t, err, types.RecipientIsContract)

	_, err = tf.engine.Payout(ctx, owner, bob)
	requireCode(t, err, types.InsufficientPool)

	tf.fund(tenthUnit)
	_, err = tf.engine.Payout(ctx, owner, bob)
	require.Nil(t, err)
	tf.chain.SetBalance(bob, oneUnit)

	// balance is checked before the lock
	_, err = tf.engine.Payout(ctx, owner, bob)
	requireCode(t, err, types.RecipientAlreadyFunded)
	tf.chain.SetBalance(bob, sdkmath.ZeroUint())

	// the lock is checked before the pool
	require.Nil(t, tf.engine.SetPayoutAmount(ctx, owner, fiveUnits))
	_, err = tf.engine.Payout(ctx, owner, bob)
	requireCode(t, err, types.RecipientLocked)
}

func TestPayoutTransferFailure(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)
	tf.fund(tenthUnit)
	before := tf.engine.Snapshot()
	eventsBefore := len(tf.sink.Events())

	tf.chain.FailTransfers(errors.New("recipient rejected funds"))
	_, err := tf.engine.Payout(ctx, owner, alice)
	requireCode(t, err, types.TransferFailed)

	assert.Equal(t, before, tf.engine.Snapshot())
	_, locked := tf.engine.RecipientLockExpiry(alice)
	assert.False(t, locked)
	assert.Len(t, tf.sink.Events(), eventsBefore)

	tf.chain.FailTransfers(nil)
	_, err = tf.engine.Payout(ctx, owner, alice)
	require.Nil(t, err)
}

func TestPoolAccounting(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t, faucet.WithOwnerFeePolicy(faucet.OwnerFeePolicy{
		MinBalance:  sdkmath.NewUint(1000),
		TopUpAmount: sdkmath.NewUint(50),
	}))
	require.Nil(t, tf.engine.SetPayoutAmount(ctx, owner, sdkmath.NewUint(100)))

	funded := sdkmath.ZeroUint()
	out := sdkmath.ZeroUint()
	recipients := []common.Address{alice, bob, stranger}

	for round := 0; round < 3; round++ {
		tf.fund(sdkmath.NewUint(250))
		funded = funded.Add(sdkmath.NewUint(250))

		for _, r := range recipients {
			event, err := tf.engine.Payout(ctx, owner, r)
			if err == nil {
				out = out.Add(event.Amount)
			}
			tf.chain.SetBalance(r, sdkmath.ZeroUint())
		}
		amount, err := tf.engine.FundOwner(ctx, owner)
		if err == nil {
			out = out.Add(amount)
			tf.chain.SetBalance(owner, sdkmath.ZeroUint())
		}

		assertUint(t, funded.Sub(out), tf.engine.PoolBalance())
		tf.clock.Advance(time.Duration(weekSeconds) * time.Second)
	}

	stats := tf.engine.Stats()
	assertUint(t, funded, stats.TotalFunded)
	assertUint(t, sdkmath.NewUint(100).MulUint64(stats.PayoutCount), stats.TotalPaidOut)
}

func TestLockSpacing(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)
	tf.fund(tenthUnit)
	require.Nil(t, tf.engine.SetLockDuration(ctx, owner, 3600))

	var paidAt []time.Time
	for i := 0; i < 20; i++ {
		if event, err := tf.engine.Payout(ctx, owner, alice); err == nil {
			paidAt = append(paidAt, event.Timestamp)
		} else {
			requireCode(t, err, types.RecipientLocked)
		}
		tf.chain.SetBalance(alice, sdkmath.ZeroUint())
		tf.clock.Advance(17 * time.Minute)
	}

	require.Greater(t, len(paidAt), 1)
	for i := 1; i < len(paidAt); i++ {
		assert.GreaterOrEqual(t, paidAt[i].Sub(paidAt[i-1]), time.Hour)
	}
	assert.Equal(t, uint64(len(paidAt)), tf.engine.Stats().PayoutCount)
}

func TestStatsAfterPayoutAmountChange(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)
	tf.fund(tenthUnit)

	_, err := tf.engine.Payout(ctx, owner, alice)
	require.Nil(t, err)
	require.Nil(t, tf.engine.SetPayoutAmount(ctx, owner, defaultPayout.MulUint64(3)))
	_, err = tf.engine.Payout(ctx, owner, bob)
	require.Nil(t, err)

	stats := tf.engine.Stats()
	assert.Equal(t, uint64(2), stats.PayoutCount)
	assertUint(t, defaultPayout.MulUint64(4), stats.TotalPaidOut)
}

func TestSetters(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)

	require.Nil(t, tf.engine.SetPayoutAmount(ctx, owner, oneUnit))
	assertUint(t, oneUnit, tf.engine.PayoutAmount())
	require.Nil(t, tf.engine.SetLockDuration(ctx, owner, 60))
	assert.Equal(t, uint64(60), tf.engine.LockDuration())

	requireCode(t, tf.engine.SetPayoutAmount(ctx, stranger, tenthUnit), types.Unauthorized)
	requireCode(t, tf.engine.SetLockDuration(ctx, stranger, 1), types.Unauthorized)
	assertUint(t, oneUnit, tf.engine.PayoutAmount())
	assert.Equal(t, uint64(60), tf.engine.LockDuration())

	// zero amount makes every recipient count as already funded
	tf.fund(tenthUnit)
	require.Nil(t, tf.engine.SetPayoutAmount(ctx, owner, sdkmath.ZeroUint()))
	_, err := tf.engine.Payout(ctx, owner, alice)
	requireCode(t, err, types.RecipientAlreadyFunded)
}

func TestRecipientLockExpiry(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)
	tf.fund(tenthUnit)

	_, ok := tf.engine.RecipientLockExpiry(alice)
	assert.False(t, ok)

	paidAt := tf.clock.now
	_, err := tf.engine.Payout(ctx, owner, alice)
	require.Nil(t, err)

	expiry, ok := tf.engine.RecipientLockExpiry(alice)
	require.True(t, ok)
	assert.Equal(t, paidAt.Add(7*24*time.Hour), expiry)

	// expiry follows the current lock duration
	require.Nil(t, tf.engine.SetLockDuration(ctx, owner, 0))
	expiry, _ = tf.engine.RecipientLockExpiry(alice)
	assert.Equal(t, paidAt, expiry)

	require.Nil(t, tf.engine.SetLockDuration(ctx, owner, ^uint64(0)))
	expiry, _ = tf.engine.RecipientLockExpiry(alice)
	assert.True(t, expiry.After(paidAt.Add(100*365*24*time.Hour)))
}

func TestPauseResume(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)

	requireCode(t, tf.engine.ResumeWithdrawals(ctx, owner), types.NotPaused)
	requireCode(t, tf.engine.PauseWithdrawals(ctx, stranger), types.Unauthorized)

	require.Nil(t, tf.engine.PauseWithdrawals(ctx, owner))
	assert.True(t, tf.engine.Paused())
	requireCode(t, tf.engine.PauseWithdrawals(ctx, owner), types.AlreadyPaused)
	// unauthorized wins over the paused-state check
	requireCode(t, tf.engine.ResumeWithdrawals(ctx, stranger), types.Unauthorized)

	// only payout is gated
	tf.fund(tenthUnit)
	require.Nil(t, tf.engine.SetLockDuration(ctx, owner, 10))
	_, err := tf.engine.WithdrawToken(ctx, owner, token)
	require.Nil(t, err)

	require.Nil(t, tf.engine.ResumeWithdrawals(ctx, owner))
	assert.False(t, tf.engine.Paused())
	assert.False(t, tf.journal.snapshots[len(tf.journal.snapshots)-1].Paused)
}

func TestFundOwner(t *testing.T) {
	ctx := context.Background()
	policy := faucet.DefaultOwnerFeePolicy()

	t.Run("owner balance sufficient", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(fiveUnits)
		tf.chain.SetBalance(owner, fiveUnits)

		_, err := tf.engine.FundOwner(ctx, owner)
		requireCode(t, err, types.OwnerBalanceSufficient)
		assertUint(t, fiveUnits, tf.engine.PoolBalance())

		tf.chain.SetBalance(owner, policy.MinBalance)
		_, err = tf.engine.FundOwner(ctx, owner)
		requireCode(t, err, types.OwnerBalanceSufficient)
	})

	t.Run("owner topped up", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(fiveUnits)
		tf.chain.SetBalance(owner, oneUnit)
		events := len(tf.sink.Events())

		amount, err := tf.engine.FundOwner(ctx, owner)
		require.Nil(t, err)
		assertUint(t, policy.TopUpAmount, amount)
		assertUint(t, fiveUnits.Sub(policy.TopUpAmount), tf.engine.PoolBalance())

		balance, _ := tf.chain.Balance(ctx, owner)
		assertUint(t, oneUnit.Add(policy.TopUpAmount), balance)

		// no stats and no events
		assert.Zero(t, tf.engine.Stats().PayoutCount)
		assert.True(t, tf.engine.Stats().TotalPaidOut.IsZero())
		assert.Len(t, tf.sink.Events(), events)
	})

	t.Run("pool cannot cover the top-up", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(tenthUnit)

		_, err := tf.engine.FundOwner(ctx, owner)
		requireCode(t, err, types.InsufficientPool)
		assertUint(t, tenthUnit, tf.engine.PoolBalance())
	})

	t.Run("unauthorized", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.fund(fiveUnits)

		_, err := tf.engine.FundOwner(ctx, stranger)
		requireCode(t, err, types.Unauthorized)
	})
}

func TestWithdrawToken(t *testing.T) {
	ctx := context.Background()

	t.Run("sweeps the whole balance", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.chain.SetTokenBalance(token, wallet, sdkmath.NewUint(4242))

		amount, err := tf.engine.WithdrawToken(ctx, owner, token)
		require.Nil(t, err)
		assertUint(t, sdkmath.NewUint(4242), amount)

		balance, _ := tf.chain.TokenBalance(ctx, token, owner)
		assertUint(t, sdkmath.NewUint(4242), balance)
		balance, _ = tf.chain.TokenBalance(ctx, token, wallet)
		assert.True(t, balance.IsZero())
	})

	t.Run("zero balance succeeds", func(t *testing.T) {
		tf := setupFaucet(t)

		amount, err := tf.engine.WithdrawToken(ctx, owner, token)
		require.Nil(t, err)
		assert.True(t, amount.IsZero())
	})

	t.Run("unauthorized", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.chain.SetTokenBalance(token, wallet, sdkmath.NewUint(1))

		_, err := tf.engine.WithdrawToken(ctx, stranger, token)
		requireCode(t, err, types.Unauthorized)
	})

	t.Run("token transfer fails", func(t *testing.T) {
		tf := setupFaucet(t)
		tf.chain.SetTokenBalance(token, wallet, sdkmath.NewUint(1))
		tf.chain.FailTransfers(errors.New("execution reverted"))

		_, err := tf.engine.WithdrawToken(ctx, owner, token)
		requireCode(t, err, types.TransferFailed)
	})
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)

	requireCode(t, tf.engine.TransferOwnership(ctx, stranger, stranger), types.Unauthorized)
	requireCode(t, tf.engine.TransferOwnership(ctx, owner, common.Address{}), types.BadRequest)
	requireCode(t, tf.engine.TransferOwnership(ctx, owner, wallet), types.BadRequest)
	requireCode(t, tf.engine.TransferOwnership(ctx, stranger, wallet), types.Unauthorized)
	assert.Equal(t, owner, tf.engine.Owner())

	require.Nil(t, tf.engine.TransferOwnership(ctx, owner, stranger))
	assert.Equal(t, stranger, tf.engine.Owner())
	requireCode(t, tf.engine.SetLockDuration(ctx, owner, 1), types.Unauthorized)
	require.Nil(t, tf.engine.SetLockDuration(ctx, stranger, 1))
	assert.Equal(t, stranger, tf.journal.snapshots[len(tf.journal.snapshots)-1].Owner)
}

func TestJournalFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)
	tf.journal.failWith = errors.New("db down")
	tf.fund(tenthUnit)

	_, err := tf.engine.Payout(ctx, owner, alice)
	require.Nil(t, err)
	assertUint(t, tenthUnit.Sub(defaultPayout), tf.engine.PoolBalance())
}

func TestConcurrentPayouts(t *testing.T) {
	ctx := context.Background()
	tf := setupFaucet(t)
	// enough for exactly 10 payouts
	tf.fund(defaultPayout.MulUint64(10))

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recipient := common.BigToAddress(sdkmath.NewUint(uint64(0x1000 + i)).BigInt())
			_, _ = tf.engine.Payout(ctx, owner, recipient)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, uint64(10), tf.engine.Stats().PayoutCount)
	assert.True(t, tf.engine.PoolBalance().IsZero())
}
