package db

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/purplefaucet/purple-faucet/internal/db/model"
)

func (db *Database) SaveDeposit(ctx context.Context, deposit *model.DepositDocument) error {
	_, err := db.collection(model.DepositCollection).InsertOne(ctx, deposit)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &DuplicateKeyError{
				Key:     deposit.TxHash,
				Message: "deposit already credited",
			}
		}
		return err
	}
	return nil
}
