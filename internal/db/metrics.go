package db

import (
	"context"
	"time"

	"github.com/purplefaucet/purple-faucet/internal/db/model"
	"github.com/purplefaucet/purple-faucet/internal/observability/metrics"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) GetFaucetState(ctx context.Context) (result *model.FaucetStateDocument, err error) {
	//nolint:errcheck
	d.run("GetFaucetState", func() error {
		result, err = d.db.GetFaucetState(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) UpsertFaucetState(ctx context.Context, state *model.FaucetStateDocument) error {
	return d.run("UpsertFaucetState", func() error {
		return d.db.UpsertFaucetState(ctx, state)
	})
}

func (d *DbWithMetrics) SaveRecipientLock(ctx context.Context, recipient string, paidAt time.Time) error {
	return d.run("SaveRecipientLock", func() error {
		return d.db.SaveRecipientLock(ctx, recipient, paidAt)
	})
}

func (d *DbWithMetrics) GetRecipientLocks(ctx context.Context) (result []model.RecipientLockDocument, err error) {
	//nolint:errcheck
	d.run("GetRecipientLocks", func() error {
		result, err = d.db.GetRecipientLocks(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveEvent(ctx context.Context, event *model.FaucetEventDocument) error {
	return d.run("SaveEvent", func() error {
		return d.db.SaveEvent(ctx, event)
	})
}

func (d *DbWithMetrics) GetRecentEvents(ctx context.Context, limit int64) (result []model.FaucetEventDocument, err error) {
	//nolint:errcheck
	d.run("GetRecentEvents", func() error {
		result, err = d.db.GetRecentEvents(ctx, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveDeposit(ctx context.Context, deposit *model.DepositDocument) error {
	return d.run("SaveDeposit", func() error {
		return d.db.SaveDeposit(ctx, deposit)
	})
}

func (d *DbWithMetrics) GetLastProcessedHeight(ctx context.Context) (result uint64, err error) {
	//nolint:errcheck
	d.run("GetLastProcessedHeight", func() error {
		result, err = d.db.GetLastProcessedHeight(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdateLastProcessedHeight(ctx context.Context, height uint64) error {
	return d.run("UpdateLastProcessedHeight", func() error {
		return d.db.UpdateLastProcessedHeight(ctx, height)
	})
}

func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
