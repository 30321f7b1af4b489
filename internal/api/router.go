package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handlers, ownerAPIKey string, owner func() common.Address) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(traceMiddleware)
	r.Use(metricsMiddleware)
	r.Use(callerMiddleware(ownerAPIKey, owner))

	r.Get("/healthcheck", h.HealthCheck)

	r.Route("/v1/faucet", func(r chi.Router) {
		r.Get("/", h.GetFaucet)
		r.Get("/locks/{address}", h.GetRecipientLock)

		r.Post("/payout", h.Payout)
		r.Post("/fund-owner", h.FundOwner)
		r.Post("/withdraw-token", h.WithdrawToken)
		r.Put("/payout-amount", h.SetPayoutAmount)
		r.Put("/lock-duration", h.SetLockDuration)
		r.Post("/pause", h.Pause)
		r.Post("/resume", h.Resume)
		r.Post("/owner", h.TransferOwnership)
	})

	if h.devChain != nil {
		r.Post("/v1/dev/deposit", h.DevDeposit)
	}

	return r
}
