package chainclient

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/purplefaucet/purple-faucet/internal/observability/metrics"
)

type chainClientWithMetrics struct {
	chain ChainInterface
}

func NewChainClientWithMetrics(chain ChainInterface) *chainClientWithMetrics {
	return &chainClientWithMetrics{chain: chain}
}

func (c *chainClientWithMetrics) Address() common.Address {
	return c.chain.Address()
}

func (c *chainClientWithMetrics) Balance(ctx context.Context, addr common.Address) (sdkmath.Uint, error) {
	return runChainClientMethodWithMetrics("Balance", func() (sdkmath.Uint, error) {
		return c.chain.Balance(ctx, addr)
	})
}

func (c *chainClientWithMetrics) IsContract(ctx context.Context, addr common.Address) (bool, error) {
	return runChainClientMethodWithMetrics("IsContract", func() (bool, error) {
		return c.chain.IsContract(ctx, addr)
	})
}

func (c *chainClientWithMetrics) Transfer(ctx context.Context, to common.Address, amount sdkmath.Uint) error {
	// this is just auxiliary type in order to call runChainClientMethodWithMetrics which always returns 2 values
	type zero struct{}
	_, err := runChainClientMethodWithMetrics("Transfer", func() (zero, error) {
		return zero{}, c.chain.Transfer(ctx, to, amount)
	})
	return err
}

func (c *chainClientWithMetrics) TokenBalance(ctx context.Context, token, holder common.Address) (sdkmath.Uint, error) {
	return runChainClientMethodWithMetrics("TokenBalance", func() (sdkmath.Uint, error) {
		return c.chain.TokenBalance(ctx, token, holder)
	})
}

func (c *chainClientWithMetrics) TransferToken(ctx context.Context, token, to common.Address, amount sdkmath.Uint) error {
	type zero struct{}
	_, err := runChainClientMethodWithMetrics("TransferToken", func() (zero, error) {
		return zero{}, c.chain.TransferToken(ctx, token, to, amount)
	})
	return err
}

func (c *chainClientWithMetrics) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return runChainClientMethodWithMetrics("LatestBlockNumber", func() (uint64, error) {
		return c.chain.LatestBlockNumber(ctx)
	})
}

func (c *chainClientWithMetrics) InboundTransfers(ctx context.Context, height uint64) ([]InboundTransfer, error) {
	return runChainClientMethodWithMetrics("InboundTransfers", func() ([]InboundTransfer, error) {
		return c.chain.InboundTransfers(ctx, height)
	})
}

func runChainClientMethodWithMetrics[T any](method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	metrics.RecordChainClientLatency(duration, method, err != nil)
	return v, err
}
