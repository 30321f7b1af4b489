package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/purplefaucet/purple-faucet/internal/faucet"
	"github.com/purplefaucet/purple-faucet/internal/types"
	"github.com/purplefaucet/purple-faucet/pkg"
)

// FaucetEngine is the engine surface served over HTTP.
type FaucetEngine interface {
	Payout(ctx context.Context, caller, recipient common.Address) (*faucet.Event, *types.Error)
	FundOwner(ctx context.Context, caller common.Address) (sdkmath.Uint, *types.Error)
	WithdrawToken(ctx context.Context, caller, token common.Address) (sdkmath.Uint, *types.Error)
	SetPayoutAmount(ctx context.Context, caller common.Address, amount sdkmath.Uint) *types.Error
	SetLockDuration(ctx context.Context, caller common.Address, seconds uint64) *types.Error
	PauseWithdrawals(ctx context.Context, caller common.Address) *types.Error
	ResumeWithdrawals(ctx context.Context, caller common.Address) *types.Error
	TransferOwnership(ctx context.Context, caller, newOwner common.Address) *types.Error

	Owner() common.Address
	RecipientLockExpiry(recipient common.Address) (time.Time, bool)
	Snapshot() faucet.Snapshot
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	engine   FaucetEngine
	health   HealthChecker
	devChain DevChain
	now      func() time.Time
}

func NewHandlers(engine FaucetEngine, health HealthChecker) *Handlers {
	return &Handlers{
		engine: engine,
		health: health,
		now:    time.Now,
	}
}

type PayoutRequest struct {
	Recipient string `json:"recipient"`
}

type PayoutResponse struct {
	Recipient string       `json:"recipient"`
	Amount    sdkmath.Uint `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

type AmountResponse struct {
	Amount sdkmath.Uint `json:"amount"`
}

type WithdrawTokenRequest struct {
	Token string `json:"token"`
}

type WithdrawTokenResponse struct {
	Token  string       `json:"token"`
	Amount sdkmath.Uint `json:"amount"`
}

type PayoutAmountRequest struct {
	Amount string `json:"amount"`
}

type LockDurationRequest struct {
	Seconds *uint64 `json:"seconds"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"newOwner"`
}

type RecipientLockResponse struct {
	Recipient string     `json:"recipient"`
	Locked    bool       `json:"locked"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		writeError(w, r, types.NewErrorWithMsg(
			http.StatusServiceUnavailable, types.InternalServiceError, "database unavailable",
		))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) GetFaucet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.Snapshot())
}

func (h *Handlers) GetRecipientLock(w http.ResponseWriter, r *http.Request) {
	recipient, err := pkg.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}

	resp := RecipientLockResponse{Recipient: recipient.Hex()}
	if expiry, ok := h.engine.RecipientLockExpiry(recipient); ok {
		resp.ExpiresAt = &expiry
		resp.Locked = h.now().Before(expiry)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handlers) Payout(w http.ResponseWriter, r *http.Request) {
	var req PayoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	recipient, err := pkg.ParseAddress(req.Recipient)
	if err != nil {
		writeError(w, r, badRequest("recipient: %v", err))
		return
	}

	event, ferr := h.engine.Payout(r.Context(), callerFromContext(r.Context()), recipient)
	if ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeJSON(w, r, http.StatusOK, PayoutResponse{
		Recipient: event.Address.Hex(),
		Amount:    event.Amount,
		Timestamp: event.Timestamp,
	})
}

func (h *Handlers) FundOwner(w http.ResponseWriter, r *http.Request) {
	amount, ferr := h.engine.FundOwner(r.Context(), callerFromContext(r.Context()))
	if ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeJSON(w, r, http.StatusOK, AmountResponse{Amount: amount})
}

func (h *Handlers) WithdrawToken(w http.ResponseWriter, r *http.Request) {
	var req WithdrawTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := pkg.ParseAddress(req.Token)
	if err != nil {
		writeError(w, r, badRequest("token: %v", err))
		return
	}

	amount, ferr := h.engine.WithdrawToken(r.Context(), callerFromContext(r.Context()), token)
	if ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeJSON(w, r, http.StatusOK, WithdrawTokenResponse{Token: token.Hex(), Amount: amount})
}

func (h *Handlers) SetPayoutAmount(w http.ResponseWriter, r *http.Request) {
	var req PayoutAmountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := sdkmath.ParseUint(req.Amount)
	if err != nil {
		writeError(w, r, badRequest("amount must be a non-negative integer, got %q", req.Amount))
		return
	}

	if ferr := h.engine.SetPayoutAmount(r.Context(), callerFromContext(r.Context()), amount); ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeJSON(w, r, http.StatusOK, h.engine.Snapshot())
}

func (h *Handlers) SetLockDuration(w http.ResponseWriter, r *http.Request) {
	var req LockDurationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Seconds == nil {
		writeError(w, r, badRequest("seconds is required"))
		return
	}

	if ferr := h.engine.SetLockDuration(r.Context(), callerFromContext(r.Context()), *req.Seconds); ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeJSON(w, r, http.StatusOK, h.engine.Snapshot())
}

func (h *Handlers) Pause(w http.ResponseWriter, r *http.Request) {
	if ferr := h.engine.PauseWithdrawals(r.Context(), callerFromContext(r.Context())); ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeJSON(w, r, http.StatusOK, h.engine.Snapshot())
}

func (h *Handlers) Resume(w http.ResponseWriter, r *http.Request) {
	if ferr := h.engine.ResumeWithdrawals(r.Context(), callerFromContext(r.Context())); ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeJSON(w, r, http.StatusOK, h.engine.Snapshot())
}

func (h *Handlers) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req TransferOwnershipRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	// the zero address is rejected by the engine with its own error
	if !common.IsHexAddress(req.NewOwner) {
		writeError(w, r, badRequest("newOwner: invalid address %q", req.NewOwner))
		return
	}

	ferr := h.engine.TransferOwnership(r.Context(), callerFromContext(r.Context()), common.HexToAddress(req.NewOwner))
	if ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeJSON(w, r, http.StatusOK, h.engine.Snapshot())
}

func decodeBody(r *http.Request, v any) *types.Error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}
