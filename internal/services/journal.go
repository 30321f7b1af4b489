package services

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/purplefaucet/purple-faucet/internal/db"
	"github.com/purplefaucet/purple-faucet/internal/faucet"
)

// dbJournal persists committed engine state to mongo.
type dbJournal struct {
	db db.DbInterface
}

func newDbJournal(db db.DbInterface) *dbJournal {
	return &dbJournal{db: db}
}

func (j *dbJournal) RecordState(ctx context.Context, snapshot faucet.Snapshot) error {
	return j.db.UpsertFaucetState(ctx, snapshotToDocument(snapshot, time.Now().UTC()))
}

func (j *dbJournal) RecordLock(ctx context.Context, recipient common.Address, paidAt time.Time) error {
	return j.db.SaveRecipientLock(ctx, recipient.Hex(), paidAt)
}
