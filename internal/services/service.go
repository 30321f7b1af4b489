package services

import (
	"context"

	"github.com/purplefaucet/purple-faucet/internal/clients/chainclient"
	"github.com/purplefaucet/purple-faucet/internal/config"
	"github.com/purplefaucet/purple-faucet/internal/db"
	"github.com/purplefaucet/purple-faucet/internal/faucet"
	"github.com/purplefaucet/purple-faucet/internal/queue"
)

// EventPublisher forwards faucet events to downstream consumers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, msg queue.FaucetEventMessage) error
}

type Service struct {
	cfg       *config.Config
	db        db.DbInterface
	chain     chainclient.ChainInterface
	publisher EventPublisher
	engine    *faucet.Engine
}

// NewService restores the faucet engine from the database, seeding it from
// cfg on first start. publisher may be nil, events are then only stored in
// the database.
func NewService(
	ctx context.Context,
	cfg *config.Config,
	db db.DbInterface,
	chain chainclient.ChainInterface,
	publisher EventPublisher,
) (*Service, error) {
	s := &Service{
		cfg:       cfg,
		db:        db,
		chain:     chain,
		publisher: publisher,
	}

	engine, err := s.bootstrapEngine(ctx)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	return s, nil
}

func (s *Service) Engine() *faucet.Engine {
	return s.engine
}
