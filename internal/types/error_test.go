package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode_StatusCode(t *testing.T) {
	cases := map[ErrorCode]int{
		Unauthorized:           http.StatusForbidden,
		RecipientLocked:        http.StatusTooManyRequests,
		InsufficientPool:       http.StatusUnprocessableEntity,
		TransferFailed:         http.StatusBadGateway,
		ErrorCode("SOMETHING"): http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, code.StatusCode(), code.String())
	}
}

func TestHasCode(t *testing.T) {
	err := NewFaucetError(RecipientLocked, "recipient %s has time lock", "0xabc")
	require.EqualError(t, err, "recipient 0xabc has time lock")
	assert.Equal(t, http.StatusTooManyRequests, err.StatusCode)

	t.Run("direct", func(t *testing.T) {
		assert.True(t, HasCode(err, RecipientLocked))
		assert.False(t, HasCode(err, Paused))
	})
	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("payout: %w", err)
		assert.True(t, HasCode(wrapped, RecipientLocked))
	})
	t.Run("plain error", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), RecipientLocked))
	})
	t.Run("unwrap", func(t *testing.T) {
		cause := errors.New("rpc down")
		e := NewError(http.StatusServiceUnavailable, ChainUnavailable, cause)
		assert.ErrorIs(t, e, cause)
	})
}
