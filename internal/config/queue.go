package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	ClassicQueueType = "classic"
	QuorumQueueType  = "quorum"
)

type QueueConfig struct {
	QueueUser              string        `mapstructure:"queue-user"`
	QueuePassword          string        `mapstructure:"queue-password"`
	Url                    string        `mapstructure:"url"`
	QueueName              string        `mapstructure:"queue-name"`
	QueueType              string        `mapstructure:"queue-type"`
	QueueProcessingTimeout time.Duration `mapstructure:"processing-timeout"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.QueueUser == "" {
		return errors.New("missing queue user")
	}
	if cfg.QueuePassword == "" {
		return errors.New("missing queue password")
	}
	if cfg.Url == "" {
		return errors.New("missing queue url")
	}
	if cfg.QueueName == "" {
		return errors.New("missing queue name")
	}
	if cfg.QueueProcessingTimeout <= 0 {
		return errors.New("invalid queue processing timeout")
	}
	if cfg.QueueType != ClassicQueueType && cfg.QueueType != QuorumQueueType {
		return fmt.Errorf("invalid queue type %q", cfg.QueueType)
	}

	return nil
}

// AmqpURL builds the broker url from the configured host and credentials.
func (cfg *QueueConfig) AmqpURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url)
}
