package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Poller struct {
	name       string
	interval   time.Duration
	quit       chan struct{}
	stopOnce   sync.Once
	pollMethod func(ctx context.Context) error
}

func NewPoller(name string, interval time.Duration, pollMethod func(ctx context.Context) error) *Poller {
	return &Poller{
		name:       name,
		interval:   interval,
		quit:       make(chan struct{}),
		pollMethod: pollMethod,
	}
}

// Start runs the poll method once immediately and then on every tick until
// the context is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logger := log.Ctx(ctx).With().Str("poller", p.name).Logger()
	logger.Info().Msgf("Starting poller with interval %s", p.interval)

	p.poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			logger.Info().Msg("Poller stopped due to context cancellation")
			return
		case <-p.quit:
			logger.Info().Msg("Poller stopped")
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	logger := log.Ctx(ctx)
	logger.Debug().Str("poller", p.name).Msg("Executing poll method")
	if err := p.pollMethod(ctx); err != nil {
		logger.Error().Err(err).Str("poller", p.name).Msg("Error polling")
	} else {
		logger.Debug().Str("poller", p.name).Msg("Poll method executed successfully")
	}
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
	})
}
