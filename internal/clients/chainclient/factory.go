package chainclient

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/purplefaucet/purple-faucet/internal/config"
)

// devWallet holds the pool of a memory chain started without a private key.
var devWallet = common.HexToAddress("0x000000000000000000000000000000000000fa11")

// AsMemoryChain returns the in-process chain behind chain, if there is one.
func AsMemoryChain(chain ChainInterface) (*MemoryChain, bool) {
	if wrapped, ok := chain.(*chainClientWithMetrics); ok {
		chain = wrapped.chain
	}
	memory, ok := chain.(*MemoryChain)
	return memory, ok
}

// New builds the chain client selected by cfg.Backend, wrapped with latency
// metrics. The returned close function releases the underlying connection.
func New(ctx context.Context, cfg *config.ChainConfig) (ChainInterface, func(), error) {
	switch cfg.Backend {
	case config.ChainBackendMemory:
		wallet := devWallet
		if cfg.PrivateKey != "" {
			key, err := cfg.WalletKey()
			if err != nil {
				return nil, nil, err
			}
			wallet = crypto.PubkeyToAddress(key.PublicKey)
		}
		return NewChainClientWithMetrics(NewMemoryChain(wallet)), func() {}, nil
	case config.ChainBackendEVM:
		client, err := NewEVMClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewChainClientWithMetrics(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported chain backend %q", cfg.Backend)
	}
}
