package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/purplefaucet/purple-faucet/internal/clients/chainclient"
	"github.com/purplefaucet/purple-faucet/internal/db"
	"github.com/purplefaucet/purple-faucet/internal/db/model"
	"github.com/purplefaucet/purple-faucet/internal/observability/metrics"
	"github.com/purplefaucet/purple-faucet/internal/utils/poller"
)

// StartDepositWatcher credits inbound transfers to the faucet pool. It blocks
// until ctx is cancelled.
func (s *Service) StartDepositWatcher(ctx context.Context) {
	depositPoller := poller.NewPoller(
		"deposits",
		s.cfg.Poller.DepositPollingInterval,
		metrics.RecordJobDuration("deposit_watcher", s.syncDeposits),
	)
	depositPoller.Start(ctx)
}

// syncDeposits processes one batch of blocks past the last processed height.
// Blocks are fetched concurrently and credited in height order.
func (s *Service) syncDeposits(ctx context.Context) error {
	logger := log.Ctx(ctx)

	lastProcessed, err := s.db.GetLastProcessedHeight(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last processed height: %w", err)
	}
	from := lastProcessed + 1
	if lastProcessed == 0 && s.cfg.Poller.DepositStartHeight > from {
		from = s.cfg.Poller.DepositStartHeight
	}

	tip, err := s.chain.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest block number: %w", err)
	}
	if from > tip {
		logger.Debug().Uint64("tip", tip).Msg("no new blocks to scan for deposits")
		return nil
	}
	to := min(tip, from+s.cfg.Poller.DepositBatchSize-1)

	blocks := make([][]chainclient.InboundTransfer, to-from+1)
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(s.cfg.Poller.DepositConcurrency)
	for height := from; height <= to; height++ {
		idx := height - from
		p.Go(func(ctx context.Context) error {
			transfers, err := s.chain.InboundTransfers(ctx, height)
			if err != nil {
				return fmt.Errorf("failed to get inbound transfers of block %d: %w", height, err)
			}
			blocks[idx] = transfers
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	credited := 0
	for _, transfers := range blocks {
		for _, transfer := range transfers {
			ok, err := s.creditDeposit(ctx, transfer)
			if err != nil {
				return err
			}
			if ok {
				credited++
			}
		}
	}

	if err := s.db.UpdateLastProcessedHeight(ctx, to); err != nil {
		return fmt.Errorf("failed to update last processed height: %w", err)
	}
	metrics.RecordDepositHeight(to)

	logger.Debug().
		Uint64("from", from).
		Uint64("to", to).
		Int("credited", credited).
		Msg("scanned blocks for deposits")
	return nil
}

// creditDeposit marks the transfer as seen before crediting it, so a block
// scanned twice never funds the pool twice.
func (s *Service) creditDeposit(ctx context.Context, transfer chainclient.InboundTransfer) (bool, error) {
	doc := &model.DepositDocument{
		TxHash: transfer.TxHash.Hex(),
		From:   transfer.From.Hex(),
		Amount: transfer.Amount.String(),
		Height: transfer.Height,
	}
	if err := s.db.SaveDeposit(ctx, doc); err != nil {
		if db.IsDuplicateKeyError(err) {
			log.Ctx(ctx).Debug().Str("tx_hash", doc.TxHash).Msg("deposit already credited")
			return false, nil
		}
		return false, fmt.Errorf("failed to save deposit %s: %w", doc.TxHash, err)
	}

	s.engine.ReceiveFunds(ctx, transfer.From, transfer.Amount)
	log.Ctx(ctx).Info().
		Str("tx_hash", doc.TxHash).
		Str("from", doc.From).
		Str("amount", doc.Amount).
		Msg("credited deposit to faucet pool")
	return true, nil
}
