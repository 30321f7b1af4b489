package model

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/purplefaucet/purple-faucet/internal/config"
)

const (
	FaucetStateCollection   = "faucet_state"
	RecipientLockCollection = "recipient_locks"
	FaucetEventCollection   = "faucet_events"
	DepositCollection       = "deposits"
	DepositCursorCollection = "deposit_cursor"
)

type index struct {
	Keys   bson.D
	Unique bool
}

var collections = map[string][]index{
	FaucetStateCollection:   nil,
	RecipientLockCollection: {{Keys: bson.D{{Key: "paid_at", Value: 1}}}},
	FaucetEventCollection: {
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "address", Value: 1}, {Key: "timestamp", Value: -1}}},
	},
	DepositCollection:       {{Keys: bson.D{{Key: "height", Value: 1}}}},
	DepositCursorCollection: nil,
}

// CollectionNames lists every collection Setup creates.
func CollectionNames() []string {
	return slices.Sorted(maps.Keys(collections))
}

// Setup creates the collections and their indexes. It is safe to run against
// an already initialised database.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	credential := options.Credential{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	clientOps := options.Client().ApplyURI(cfg.Address).SetAuth(credential)
	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to disconnect from mongo after setup")
		}
	}()

	database := client.Database(cfg.DbName)
	for name, list := range collections {
		if err := createCollection(ctx, database, name); err != nil {
			return err
		}
		for _, idx := range list {
			if err := createIndex(ctx, database, name, idx); err != nil {
				return err
			}
		}
	}

	log.Ctx(ctx).Info().Msg("collections and indexes created successfully")
	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, name string) error {
	err := database.CreateCollection(ctx, name)
	if err != nil {
		var cmdErr mongo.CommandError
		// NamespaceExists
		if errors.As(err, &cmdErr) && cmdErr.Code == 48 {
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func createIndex(ctx context.Context, database *mongo.Database, collectionName string, idx index) error {
	model := mongo.IndexModel{
		Keys:    idx.Keys,
		Options: options.Index().SetUnique(idx.Unique),
	}
	if _, err := database.Collection(collectionName).Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", collectionName, err)
	}
	return nil
}
