package faucet

import (
	"math"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/purplefaucet/purple-faucet/internal/types"
)

// maxLockSeconds is the longest lock representable as a time.Duration. Longer
// durations saturate to it.
const maxLockSeconds = uint64(math.MaxInt64 / int64(time.Second))

type Stats struct {
	PayoutCount  uint64       `json:"payoutCount"`
	TotalPaidOut sdkmath.Uint `json:"totalPaidOut"`
	TotalFunded  sdkmath.Uint `json:"totalFunded"`
}

func ZeroStats() Stats {
	return Stats{
		TotalPaidOut: sdkmath.ZeroUint(),
		TotalFunded:  sdkmath.ZeroUint(),
	}
}

// State is the aggregate owned by the engine. It is only ever mutated by the
// engine while it holds its lock.
type State struct {
	PoolBalance  sdkmath.Uint
	PayoutAmount sdkmath.Uint
	LockDuration uint64
	Locks        map[common.Address]time.Time
	Stats        Stats
}

func NewState(payoutAmount sdkmath.Uint, lockDuration uint64) *State {
	return &State{
		PoolBalance:  sdkmath.ZeroUint(),
		PayoutAmount: payoutAmount,
		LockDuration: lockDuration,
		Locks:        make(map[common.Address]time.Time),
		Stats:        ZeroStats(),
	}
}

// lockExpiry returns the moment the recipient may be paid again. The second
// value is false when the recipient has never been paid.
func (s *State) lockExpiry(recipient common.Address) (time.Time, bool) {
	paidAt, ok := s.Locks[recipient]
	if !ok {
		return time.Time{}, false
	}
	secs := s.LockDuration
	if secs > maxLockSeconds {
		secs = maxLockSeconds
	}
	return paidAt.Add(time.Duration(secs) * time.Second), true
}

func (s *State) isLocked(recipient common.Address, now time.Time) bool {
	expiry, ok := s.lockExpiry(recipient)
	return ok && now.Before(expiry)
}

func (s *State) credit(amount sdkmath.Uint) {
	s.PoolBalance = s.PoolBalance.Add(amount)
	s.Stats.TotalFunded = s.Stats.TotalFunded.Add(amount)
}

// debit panics on underflow; callers check the pool first.
func (s *State) debit(amount sdkmath.Uint) {
	s.PoolBalance = s.PoolBalance.Sub(amount)
}

func (s *State) recordPayout(recipient common.Address, amount sdkmath.Uint, now time.Time) {
	s.debit(amount)
	s.Locks[recipient] = now
	s.Stats.PayoutCount++
	s.Stats.TotalPaidOut = s.Stats.TotalPaidOut.Add(amount)
}

// Snapshot is the scalar part of the faucet state, everything but the lock
// table.
type Snapshot struct {
	Owner        common.Address `json:"owner"`
	Paused       bool           `json:"paused"`
	PoolBalance  sdkmath.Uint   `json:"poolBalance"`
	PayoutAmount sdkmath.Uint   `json:"payoutAmount"`
	LockDuration uint64         `json:"lockDuration"`
	Stats        Stats          `json:"stats"`
}

// Event is a domain event emitted by a committed operation. Address is the
// sender for FaucetFunded and the recipient for FaucetPayout.
type Event struct {
	Type      types.EventType
	Address   common.Address
	Amount    sdkmath.Uint
	Timestamp time.Time
}
