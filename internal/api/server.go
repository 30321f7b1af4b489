package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/purplefaucet/purple-faucet/internal/config"
)

type Server struct {
	httpServer *http.Server
}

// NewServer builds the api server. devChain is only set for the memory
// backend and may be nil.
func NewServer(cfg *config.ServerConfig, engine FaucetEngine, health HealthChecker, devChain DevChain) *Server {
	handlers := NewHandlers(engine, health)
	if devChain != nil {
		handlers.WithDevChain(devChain)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      NewRouter(handlers, cfg.OwnerAPIKey, engine.Owner),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start serves until ctx is cancelled, then shuts the server down.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Ctx(ctx).Info().Msgf("Starting faucet api server on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.httpServer.ReadTimeout)
		defer cancel()
		log.Ctx(ctx).Info().Msg("Shutting down faucet api server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
