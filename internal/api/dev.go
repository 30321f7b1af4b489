package api

import (
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/purplefaucet/purple-faucet/pkg"
)

// DevChain is the in-process chain behind the memory backend.
type DevChain interface {
	Deposit(from common.Address, amount sdkmath.Uint) uint64
}

type DevDepositRequest struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

type DevDepositResponse struct {
	Height uint64 `json:"height"`
}

// WithDevChain enables the /v1/dev routes against chain.
func (h *Handlers) WithDevChain(chain DevChain) *Handlers {
	h.devChain = chain
	return h
}

// DevDeposit mines a transfer into the faucet wallet. The pool only grows
// once the deposit watcher reaches the returned height.
func (h *Handlers) DevDeposit(w http.ResponseWriter, r *http.Request) {
	var req DevDepositRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	from, err := pkg.ParseAddress(req.From)
	if err != nil {
		writeError(w, r, badRequest("from: %v", err))
		return
	}
	amount, err := sdkmath.ParseUint(req.Amount)
	if err != nil || amount.IsZero() {
		writeError(w, r, badRequest("amount must be a positive integer, got %q", req.Amount))
		return
	}

	height := h.devChain.Deposit(from, amount)
	writeJSON(w, r, http.StatusOK, DevDepositResponse{Height: height})
}
