package db

import (
	"context"
	"time"

	"github.com/purplefaucet/purple-faucet/internal/db/model"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	// GetFaucetState returns NotFoundError if the faucet state was never persisted.
	GetFaucetState(ctx context.Context) (*model.FaucetStateDocument, error)
	UpsertFaucetState(ctx context.Context, state *model.FaucetStateDocument) error
	SaveRecipientLock(ctx context.Context, recipient string, paidAt time.Time) error
	GetRecipientLocks(ctx context.Context) ([]model.RecipientLockDocument, error)
	SaveEvent(ctx context.Context, event *model.FaucetEventDocument) error
	// GetRecentEvents returns up to limit events, newest first.
	GetRecentEvents(ctx context.Context, limit int64) ([]model.FaucetEventDocument, error)
	// SaveDeposit returns DuplicateKeyError if the transfer was already credited.
	SaveDeposit(ctx context.Context, deposit *model.DepositDocument) error
	GetLastProcessedHeight(ctx context.Context) (uint64, error)
	UpdateLastProcessedHeight(ctx context.Context, height uint64) error
}
