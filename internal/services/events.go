package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/purplefaucet/purple-faucet/internal/db"
	"github.com/purplefaucet/purple-faucet/internal/db/model"
	"github.com/purplefaucet/purple-faucet/internal/faucet"
	"github.com/purplefaucet/purple-faucet/internal/observability/metrics"
	"github.com/purplefaucet/purple-faucet/internal/queue"
)

// eventSink stores every faucet event and forwards it to the queue when one
// is configured. Failures are logged; the operation that emitted the event
// has already been committed.
type eventSink struct {
	db        db.DbInterface
	publisher EventPublisher
}

func newEventSink(db db.DbInterface, publisher EventPublisher) *eventSink {
	return &eventSink{
		db:        db,
		publisher: publisher,
	}
}

func (s *eventSink) Emit(ctx context.Context, event faucet.Event) {
	logger := log.Ctx(ctx)

	doc := &model.FaucetEventDocument{
		ID:        uuid.NewString(),
		Type:      event.Type.String(),
		Address:   event.Address.Hex(),
		Amount:    event.Amount.String(),
		Timestamp: event.Timestamp,
	}
	if err := s.db.SaveEvent(ctx, doc); err != nil {
		logger.Error().Err(err).
			Str("event_type", doc.Type).
			Str("address", doc.Address).
			Msg("failed to save faucet event")
	}

	if s.publisher == nil {
		return
	}
	msg := queue.FaucetEventMessage{
		ID:        doc.ID,
		Type:      doc.Type,
		Address:   doc.Address,
		Amount:    doc.Amount,
		Timestamp: event.Timestamp.Unix(),
	}
	if err := s.publisher.PublishEvent(ctx, msg); err != nil {
		metrics.RecordQueueSendError()
		logger.Error().Err(err).
			Str("event_id", msg.ID).
			Str("event_type", msg.Type).
			Msg("failed to publish faucet event")
	}
}
