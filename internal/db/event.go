package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/purplefaucet/purple-faucet/internal/db/model"
)

func (db *Database) SaveEvent(ctx context.Context, event *model.FaucetEventDocument) error {
	_, err := db.collection(model.FaucetEventCollection).InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &DuplicateKeyError{
				Key:     event.ID,
				Message: "faucet event already exists",
			}
		}
		return err
	}
	return nil
}

func (db *Database) GetRecentEvents(ctx context.Context, limit int64) ([]model.FaucetEventDocument, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := db.collection(model.FaucetEventCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []model.FaucetEventDocument
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
