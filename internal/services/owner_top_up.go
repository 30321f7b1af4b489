package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/purplefaucet/purple-faucet/internal/observability/metrics"
	"github.com/purplefaucet/purple-faucet/internal/observability/tracing"
	"github.com/purplefaucet/purple-faucet/internal/types"
)

// StartOwnerTopUpScheduler runs fundOwner on behalf of the owner on the
// configured cron schedule. The caller stops the returned scheduler.
func (s *Service) StartOwnerTopUpScheduler(ctx context.Context) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.cfg.Scheduler.OwnerTopUpCron, func() {
		topUp := metrics.RecordJobDuration("owner_top_up", s.topUpOwner)
		_ = topUp(tracing.InjectTraceID(ctx))
	}); err != nil {
		return nil, fmt.Errorf("register owner top-up job: %w", err)
	}

	c.Start()
	log.Ctx(ctx).Info().
		Str("schedule", s.cfg.Scheduler.OwnerTopUpCron).
		Msg("owner top-up scheduler started")
	return c, nil
}

// topUpOwner fails only when the top-up was due but could not be made.
func (s *Service) topUpOwner(ctx context.Context) error {
	logger := log.Ctx(ctx)

	owner := s.engine.Owner()
	amount, err := s.engine.FundOwner(ctx, owner)
	switch {
	case err == nil:
		logger.Info().
			Str("owner", owner.Hex()).
			Str("amount", amount.String()).
			Msg("topped up owner fee balance")
	case err.ErrorCode == types.OwnerBalanceSufficient:
		logger.Debug().Msg("owner balance sufficient, skipping top-up")
	default:
		logger.Warn().Err(err).
			Str("error_code", err.ErrorCode.String()).
			Msg("owner top-up failed")
		return err
	}
	return nil
}
