package services

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/purplefaucet/purple-faucet/internal/clients/chainclient"
	"github.com/purplefaucet/purple-faucet/internal/db"
	"github.com/purplefaucet/purple-faucet/internal/faucet"
	"github.com/purplefaucet/purple-faucet/internal/guard"
)

// bootstrapEngine builds the engine from the persisted faucet state. When the
// database holds no state yet, the engine is seeded from the faucet config and
// the seed is written back so that later restarts ignore the config values.
func (s *Service) bootstrapEngine(ctx context.Context) (*faucet.Engine, error) {
	logger := log.Ctx(ctx)

	state, owner, paused, fresh, err := s.loadState(ctx)
	if err != nil {
		return nil, err
	}
	if owner == s.chain.Address() {
		return nil, fmt.Errorf("faucet owner %s cannot be the hot wallet holding the pool", owner.Hex())
	}

	journal := newDbJournal(s.db)
	engine := faucet.NewEngine(
		state,
		guard.NewOwnable(owner),
		guard.NewPausable(paused),
		s.chain,
		s.chain,
		faucet.WithOwnerFeePolicy(faucet.OwnerFeePolicy{
			MinBalance:  s.cfg.Faucet.OwnerMinBalanceUint(),
			TopUpAmount: s.cfg.Faucet.OwnerTopUpAmountUint(),
		}),
		faucet.WithContractRecipients(s.cfg.Faucet.AllowContracts),
		faucet.WithJournal(journal),
		faucet.WithEventSink(newEventSink(s.db, s.publisher)),
	)

	if fresh {
		if err := journal.RecordState(ctx, engine.Snapshot()); err != nil {
			return nil, fmt.Errorf("failed to persist initial faucet state: %w", err)
		}
		logger.Info().
			Str("owner", owner.Hex()).
			Str("payout_amount", state.PayoutAmount.String()).
			Uint64("lock_duration", state.LockDuration).
			Msg("seeded faucet state from config")
	} else {
		logger.Info().
			Str("owner", owner.Hex()).
			Str("pool_balance", state.PoolBalance.String()).
			Int("recipient_locks", len(state.Locks)).
			Bool("paused", paused).
			Msg("restored faucet state from database")

		if memory, ok := chainclient.AsMemoryChain(s.chain); ok {
			if err := s.resumeMemoryChain(ctx, memory, state.PoolBalance); err != nil {
				return nil, err
			}
		}
	}

	return engine, nil
}

// resumeMemoryChain lines a freshly started in-process chain up with the
// persisted pool and deposit cursor.
func (s *Service) resumeMemoryChain(ctx context.Context, memory *chainclient.MemoryChain, pool sdkmath.Uint) error {
	tip, err := memory.LatestBlockNumber(ctx)
	if err != nil {
		return err
	}
	if tip > 0 {
		// already running, e.g. shared between services in one process
		return nil
	}
	height, err := s.db.GetLastProcessedHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last processed height: %w", err)
	}

	memory.Resume(pool, height)
	log.Ctx(ctx).Info().
		Str("wallet_balance", pool.String()).
		Uint64("height", height).
		Msg("resumed memory chain from database")
	return nil
}

func (s *Service) loadState(ctx context.Context) (
	state *faucet.State, owner common.Address, paused bool, fresh bool, err error,
) {
	doc, err := s.db.GetFaucetState(ctx)
	if err != nil {
		if !db.IsNotFoundError(err) {
			return nil, common.Address{}, false, false, fmt.Errorf("failed to load faucet state: %w", err)
		}
		state = faucet.NewState(s.cfg.Faucet.PayoutAmountUint(), s.cfg.Faucet.LockDurationSeconds())
		return state, s.cfg.Faucet.OwnerAddress(), false, true, nil
	}

	locks, err := s.db.GetRecipientLocks(ctx)
	if err != nil {
		return nil, common.Address{}, false, false, fmt.Errorf("failed to load recipient locks: %w", err)
	}

	state, owner, paused, err = stateFromDocuments(doc, locks)
	if err != nil {
		return nil, common.Address{}, false, false, err
	}
	return state, owner, paused, false, nil
}
