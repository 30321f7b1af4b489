package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/purplefaucet/purple-faucet/internal/db/model"
)

func (db *Database) SaveRecipientLock(ctx context.Context, recipient string, paidAt time.Time) error {
	filter := bson.M{"_id": recipient}
	update := bson.M{"$set": bson.M{"paid_at": paidAt}}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.RecipientLockCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetRecipientLocks(ctx context.Context) ([]model.RecipientLockDocument, error) {
	cursor, err := db.collection(model.RecipientLockCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var locks []model.RecipientLockDocument
	if err := cursor.All(ctx, &locks); err != nil {
		return nil, err
	}
	return locks, nil
}
