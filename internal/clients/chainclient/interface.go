package chainclient

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// InboundTransfer is a native currency transfer into the faucet wallet.
type InboundTransfer struct {
	TxHash common.Hash
	From   common.Address
	Amount sdkmath.Uint
	Height uint64
}

type ChainInterface interface {
	// Address is the hot wallet holding the faucet pool
	Address() common.Address
	Balance(ctx context.Context, addr common.Address) (sdkmath.Uint, error)
	IsContract(ctx context.Context, addr common.Address) (bool, error)
	Transfer(ctx context.Context, to common.Address, amount sdkmath.Uint) error

	TokenBalance(ctx context.Context, token, holder common.Address) (sdkmath.Uint, error)
	TransferToken(ctx context.Context, token, to common.Address, amount sdkmath.Uint) error

	LatestBlockNumber(ctx context.Context) (uint64, error)
	InboundTransfers(ctx context.Context, height uint64) ([]InboundTransfer, error)
}
