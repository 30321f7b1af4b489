package chainclient

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplefaucet/purple-faucet/internal/config"
)

var (
	tenEther = new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))

	// revert(0, 0)
	revertingCode = common.FromHex("0x60006000fd")
	// return 32 zero bytes: transfer() == false, balanceOf() == 0
	refusingTokenCode = common.FromHex("0x60206000f3")
	// return uint256(1): transfer() == true, balanceOf() == 1
	acceptingTokenCode = common.FromHex("0x600160005260206000f3")

	revertingContract = common.HexToAddress("0x00000000000000000000000000000000000de7e0")
	refusingToken     = common.HexToAddress("0x00000000000000000000000000000000000070f0")
	acceptingToken    = common.HexToAddress("0x00000000000000000000000000000000000070f1")
)

type simulatedChain struct {
	backend   *simulated.Backend
	client    *EVMClient
	walletKey *ecdsa.PrivateKey
	funderKey *ecdsa.PrivateKey
	wallet    common.Address
	funder    common.Address
}

// fixedGasRPC skips gas estimation so that failing transactions still reach
// a block.
type fixedGasRPC struct {
	evmRPC
	gas uint64
}

func (f fixedGasRPC) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.gas, nil
}

func simulatedChainConfig() *config.ChainConfig {
	return &config.ChainConfig{
		Backend:             config.ChainBackendEVM,
		Timeout:             5 * time.Second,
		MaxRetryTimes:       2,
		RetryInterval:       10 * time.Millisecond,
		ReceiptTimeout:      10 * time.Second,
		ReceiptPollInterval: 20 * time.Millisecond,
	}
}

func setupSimulatedChain(t *testing.T, cfg *config.ChainConfig, wrap func(evmRPC) evmRPC) *simulatedChain {
	t.Helper()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	funderKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	s := &simulatedChain{
		walletKey: walletKey,
		funderKey: funderKey,
		wallet:    crypto.PubkeyToAddress(walletKey.PublicKey),
		funder:    crypto.PubkeyToAddress(funderKey.PublicKey),
	}
	s.backend = simulated.NewBackend(types.GenesisAlloc{
		s.wallet:          {Balance: tenEther},
		s.funder:          {Balance: tenEther},
		revertingContract: {Balance: big.NewInt(0), Code: revertingCode},
		refusingToken:     {Balance: big.NewInt(0), Code: refusingTokenCode},
		acceptingToken:    {Balance: big.NewInt(0), Code: acceptingTokenCode},
	})
	t.Cleanup(func() {
		_ = s.backend.Close()
	})

	var rpc evmRPC = s.backend.Client()
	if wrap != nil {
		rpc = wrap(rpc)
	}
	s.client, err = newEVMClient(context.Background(), rpc, func() {}, cfg, walletKey)
	require.NoError(t, err)
	require.Equal(t, s.wallet, s.client.Address())

	return s
}

// mineContinuously seals a block every few milliseconds until the test ends.
func (s *simulatedChain) mineContinuously(t *testing.T) {
	t.Helper()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.backend.Commit()
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})
}

func (s *simulatedChain) sendSigned(
	t *testing.T, key *ecdsa.PrivateKey, nonce uint64, to common.Address, value *big.Int,
) *types.Transaction {
	t.Helper()
	ctx := context.Background()
	rpc := s.backend.Client()

	chainID, err := rpc.ChainID(ctx)
	require.NoError(t, err)
	gasPrice, err := rpc.SuggestGasPrice(ctx)
	require.NoError(t, err)

	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      21000,
		GasPrice: gasPrice,
	}), types.LatestSignerForChainID(chainID), key)
	require.NoError(t, err)
	require.NoError(t, rpc.SendTransaction(ctx, tx))
	return tx
}

func (s *simulatedChain) walletNonce(t *testing.T) uint64 {
	t.Helper()
	nonce, err := s.backend.Client().PendingNonceAt(context.Background(), s.wallet)
	require.NoError(t, err)
	return nonce
}

func TestEVMClientReads(t *testing.T) {
	ctx := context.Background()
	s := setupSimulatedChain(t, simulatedChainConfig(), nil)

	balance, err := s.client.Balance(ctx, s.wallet)
	require.NoError(t, err)
	assert.Equal(t, tenEther.String(), balance.String())

	isContract, err := s.client.IsContract(ctx, revertingContract)
	require.NoError(t, err)
	assert.True(t, isContract)
	isContract, err = s.client.IsContract(ctx, alice)
	require.NoError(t, err)
	assert.False(t, isContract)

	tokenBalance, err := s.client.TokenBalance(ctx, acceptingToken, s.wallet)
	require.NoError(t, err)
	assert.Equal(t, "1", tokenBalance.String())
}

func TestEVMClientTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("mined transfer moves funds", func(t *testing.T) {
		s := setupSimulatedChain(t, simulatedChainConfig(), nil)
		s.mineContinuously(t)

		amount := sdkmath.NewUintFromString("1000000000000000")
		require.NoError(t, s.client.Transfer(ctx, alice, amount))

		balance, err := s.client.Balance(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, amount.String(), balance.String())
	})

	t.Run("reverted receipt is a failure", func(t *testing.T) {
		s := setupSimulatedChain(t, simulatedChainConfig(), func(rpc evmRPC) evmRPC {
			return fixedGasRPC{evmRPC: rpc, gas: 100_000}
		})
		s.mineContinuously(t)

		err := s.client.Transfer(ctx, revertingContract, sdkmath.NewUint(1))
		require.ErrorContains(t, err, "reverted")

		// the transaction was mined, it just failed
		assert.Equal(t, uint64(1), s.walletNonce(t))
		balance, err := s.client.Balance(ctx, revertingContract)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("receipt timeout", func(t *testing.T) {
		cfg := simulatedChainConfig()
		cfg.ReceiptTimeout = 200 * time.Millisecond
		cfg.ReceiptPollInterval = 50 * time.Millisecond
		// no blocks are sealed, the transaction stays pending
		s := setupSimulatedChain(t, cfg, nil)

		err := s.client.Transfer(ctx, alice, sdkmath.NewUint(1))
		require.ErrorIs(t, err, ErrReceiptTimeout)
		assert.Equal(t, uint64(1), s.walletNonce(t))
	})
}

func TestEVMClientTransferToken(t *testing.T) {
	ctx := context.Background()

	t.Run("token returning false is refused before sending", func(t *testing.T) {
		s := setupSimulatedChain(t, simulatedChainConfig(), nil)

		err := s.client.TransferToken(ctx, refusingToken, alice, sdkmath.NewUint(5))
		require.ErrorContains(t, err, "refused")
		assert.Zero(t, s.walletNonce(t))
	})

	t.Run("accepted transfer is sent and mined", func(t *testing.T) {
		s := setupSimulatedChain(t, simulatedChainConfig(), nil)
		s.mineContinuously(t)

		require.NoError(t, s.client.TransferToken(ctx, acceptingToken, alice, sdkmath.NewUint(1)))
		assert.Equal(t, uint64(1), s.walletNonce(t))
	})
}

func TestEVMClientInboundTransfers(t *testing.T) {
	ctx := context.Background()
	s := setupSimulatedChain(t, simulatedChainConfig(), nil)

	deposit := s.sendSigned(t, s.funderKey, 0, s.wallet, big.NewInt(1000))
	// no value
	s.sendSigned(t, s.funderKey, 1, s.wallet, big.NewInt(0))
	// not to the wallet
	s.sendSigned(t, s.funderKey, 2, alice, big.NewInt(500))
	// the wallet paying itself
	s.sendSigned(t, s.walletKey, 0, s.wallet, big.NewInt(700))
	s.backend.Commit()

	height, err := s.client.LatestBlockNumber(ctx)
	require.NoError(t, err)

	block, err := s.backend.Client().BlockByNumber(ctx, new(big.Int).SetUint64(height))
	require.NoError(t, err)
	require.Len(t, block.Transactions(), 4)

	transfers, err := s.client.InboundTransfers(ctx, height)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, deposit.Hash(), transfers[0].TxHash)
	assert.Equal(t, s.funder, transfers[0].From)
	assert.Equal(t, "1000", transfers[0].Amount.String())
	assert.Equal(t, height, transfers[0].Height)

	_, err = s.client.InboundTransfers(ctx, height+10)
	require.Error(t, err)
}
