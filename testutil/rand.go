package testutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const alphaNum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomAlphaNum generates random alphanumeric string
// in case length <= 0 it returns an error
func RandomAlphaNum(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be greater than 0")
	}

	out := make([]byte, length)
	for i := range out {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphaNum))))
		if err != nil {
			return "", err
		}
		out[i] = alphaNum[num.Int64()]
	}

	return string(out), nil
}

// RandomAPIKey returns a key long enough to pass server config validation.
func RandomAPIKey(t *testing.T) string {
	t.Helper()

	key, err := RandomAlphaNum(32)
	require.NoError(t, err)
	return key
}

// RandomAddress returns a random non-zero account address.
func RandomAddress() common.Address {
	for {
		addr := common.HexToAddress(gofakeit.HexUint(160))
		if addr != (common.Address{}) {
			return addr
		}
	}
}
