package db

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/purplefaucet/purple-faucet/internal/db/model"
)

func (db *Database) GetFaucetState(ctx context.Context) (*model.FaucetStateDocument, error) {
	filter := bson.M{"_id": model.FaucetStateSingletonID}
	res := db.collection(model.FaucetStateCollection).FindOne(ctx, filter)

	var doc model.FaucetStateDocument
	err := res.Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     model.FaucetStateSingletonID,
				Message: "faucet state not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

func (db *Database) UpsertFaucetState(ctx context.Context, state *model.FaucetStateDocument) error {
	doc := *state
	doc.ID = model.FaucetStateSingletonID

	filter := bson.M{"_id": model.FaucetStateSingletonID}
	opts := options.Replace().SetUpsert(true)

	_, err := db.collection(model.FaucetStateCollection).ReplaceOne(ctx, filter, doc, opts)
	return err
}
