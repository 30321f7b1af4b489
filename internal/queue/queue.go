package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/purplefaucet/purple-faucet/internal/config"
)

// FaucetEventMessage is the wire format of faucet events published to the
// broker. Amount is a decimal string in the smallest currency unit.
type FaucetEventMessage struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

type QueueManager struct {
	mu sync.Mutex

	cfg     *config.QueueConfig
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewQueueManager(cfg *config.QueueConfig) (*QueueManager, error) {
	conn, err := amqp.Dial(cfg.AmqpURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open queue channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		queueArgs(cfg),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}

	return &QueueManager{
		cfg:     cfg,
		conn:    conn,
		channel: channel,
	}, nil
}

// PublishEvent pushes a faucet event to the configured queue. The call is
// bounded by the queue processing timeout.
func (qm *QueueManager) PublishEvent(ctx context.Context, msg FaucetEventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal faucet event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, qm.cfg.QueueProcessingTimeout)
	defer cancel()

	qm.mu.Lock()
	defer qm.mu.Unlock()

	err = qm.channel.PublishWithContext(ctx,
		"", // default exchange routes by queue name
		qm.cfg.QueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Type:         msg.Type,
			Timestamp:    time.Unix(msg.Timestamp, 0),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", msg.Type, err)
	}
	return nil
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	log.Info().Msg("Shutting down queue manager")

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if err := qm.channel.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close queue channel")
	}
	if err := qm.conn.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close queue connection")
	}
}

func queueArgs(cfg *config.QueueConfig) amqp.Table {
	return amqp.Table{
		"x-queue-type": cfg.QueueType,
	}
}
