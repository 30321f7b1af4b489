package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/purplefaucet/purple-faucet/internal/types"
)

type ErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *types.Error
	if !errors.As(err, &apiErr) {
		apiErr = types.NewInternalServiceError(err)
	}

	logger := log.Ctx(r.Context())
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logger.Error().Err(apiErr).Str("error_code", apiErr.ErrorCode.String()).Msg("request failed")
	} else {
		logger.Debug().Err(apiErr).Str("error_code", apiErr.ErrorCode.String()).Msg("request rejected")
	}

	message := apiErr.Error()
	if apiErr.ErrorCode == types.InternalServiceError {
		message = "internal service error"
	}
	writeJSON(w, r, apiErr.StatusCode, ErrorResponse{
		ErrorCode: apiErr.ErrorCode.String(),
		Message:   message,
	})
}

func badRequest(format string, args ...any) *types.Error {
	return types.NewFaucetError(types.BadRequest, format, args...)
}
