package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/purplefaucet/purple-faucet/internal/db/model"
)

// GetLastProcessedHeight returns 0 when the watcher has not processed any
// block yet.
func (db *Database) GetLastProcessedHeight(ctx context.Context) (uint64, error) {
	var cursor model.DepositCursorDocument
	err := db.collection(model.DepositCursorCollection).
		FindOne(ctx, bson.M{"_id": model.DepositCursorID}).
		Decode(&cursor)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cursor.Height, nil
}

func (db *Database) UpdateLastProcessedHeight(ctx context.Context, height uint64) error {
	update := bson.M{"$set": bson.M{
		"height":     height,
		"updated_at": time.Now().UTC(),
	}}
	_, err := db.collection(model.DepositCursorCollection).
		UpdateOne(ctx, bson.M{"_id": model.DepositCursorID}, update, options.Update().SetUpsert(true))
	return err
}
