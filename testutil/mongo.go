//go:build integration

package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/purplefaucet/purple-faucet/internal/config"
	"github.com/purplefaucet/purple-faucet/internal/db/model"
)

// keep in sync with the production mongo image
const mongoImageTag = "7.0.5"

// MongoContainer is a disposable mongo instance with the faucet collections
// already created.
type MongoContainer struct {
	Config *config.DbConfig
	// DB is a raw handle used to inspect or truncate collections
	DB *mongo.Database

	pool     *dockertest.Pool
	resource *dockertest.Resource
}

func StartMongo(ctx context.Context) (*MongoContainer, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docker: %w", err)
	}
	pool.MaxWait = time.Minute

	suffix, err := RandomAlphaNum(6)
	if err != nil {
		return nil, err
	}
	cfg := &config.DbConfig{
		Username: "faucet",
		Password: "faucet-" + suffix,
		DbName:   "purple-faucet-test",
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       "purple-faucet-mongo-" + suffix,
		Repository: "mongo",
		Tag:        mongoImageTag,
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=" + cfg.Username,
			"MONGO_INITDB_ROOT_PASSWORD=" + cfg.Password,
			"MONGO_INITDB_DATABASE=" + cfg.DbName,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start mongo: %w", err)
	}
	c := &MongoContainer{Config: cfg, pool: pool, resource: resource}
	cfg.Address = fmt.Sprintf("mongodb://localhost:%s/", resource.GetPort("27017/tcp"))

	var client *mongo.Client
	err = pool.Retry(func() error {
		client, err = mongo.Connect(ctx, options.Client().
			ApplyURI(cfg.Address).
			SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password}))
		if err != nil {
			return err
		}
		return client.Ping(ctx, nil)
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("mongo never became ready: %w", err)
	}
	c.DB = client.Database(cfg.DbName)

	if err := model.Setup(ctx, cfg); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Reset empties every faucet collection, keeping the indexes.
func (c *MongoContainer) Reset(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, name := range model.CollectionNames() {
		_, err := c.DB.Collection(name).DeleteMany(ctx, bson.M{})
		require.NoError(t, err)
	}
}

func (c *MongoContainer) Close() error {
	if c.DB != nil {
		_ = c.DB.Client().Disconnect(context.Background())
	}
	return c.pool.Purge(c.resource)
}
