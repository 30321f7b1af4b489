package chainclient

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"

	"github.com/purplefaucet/purple-faucet/internal/config"
)

// ErrReceiptTimeout is returned when a sent transaction was not mined in
// time. The transaction may still be mined later.
var ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")

// evmRPC is the node surface the client uses. *ethclient.Client implements
// it, as does the client of go-ethereum's simulated backend.
type evmRPC interface {
	ethereum.BlockNumberReader
	ethereum.ChainReader
	ethereum.ChainStateReader
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.PendingStateReader
	ethereum.TransactionReader
	ethereum.TransactionSender
	ethereum.ChainIDReader
}

// EVMClient talks to an EVM node over JSON-RPC and signs transfers with the
// hot wallet key.
type EVMClient struct {
	client  evmRPC
	close   func()
	cfg     *config.ChainConfig
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer

	// serializes nonce allocation
	sendMu sync.Mutex
}

func NewEVMClient(ctx context.Context, cfg *config.ChainConfig) (*EVMClient, error) {
	key, err := cfg.WalletKey()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	c, err := ethclient.DialContext(dialCtx, cfg.RPCAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCAddr, err)
	}

	client, err := newEVMClient(ctx, c, c.Close, cfg, key)
	if err != nil {
		c.Close()
		return nil, err
	}
	return client, nil
}

func newEVMClient(
	ctx context.Context, rpc evmRPC, closeFn func(), cfg *config.ChainConfig, key *ecdsa.PrivateKey,
) (*EVMClient, error) {
	callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	chainID, err := rpc.ChainID(callCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	log.Ctx(ctx).Info().
		Str("chain_id", chainID.String()).
		Str("wallet", address.Hex()).
		Msg("connected to chain")

	return &EVMClient{
		client:  rpc,
		close:   closeFn,
		cfg:     cfg,
		key:     key,
		address: address,
		signer:  types.LatestSignerForChainID(chainID),
	}, nil
}

func (c *EVMClient) Close() {
	c.close()
}

func (c *EVMClient) Address() common.Address {
	return c.address
}

func (c *EVMClient) Balance(ctx context.Context, addr common.Address) (sdkmath.Uint, error) {
	callForBalance := func() (*big.Int, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.client.BalanceAt(callCtx, addr, nil)
	}

	balance, err := clientCallWithRetry(ctx, callForBalance, c.cfg)
	if err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("failed to get balance of %s: %w", addr.Hex(), err)
	}

	return sdkmath.NewUintFromBigInt(balance), nil
}

func (c *EVMClient) IsContract(ctx context.Context, addr common.Address) (bool, error) {
	callForCode := func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.client.CodeAt(callCtx, addr, nil)
	}

	code, err := clientCallWithRetry(ctx, callForCode, c.cfg)
	if err != nil {
		return false, fmt.Errorf("failed to get code of %s: %w", addr.Hex(), err)
	}

	return len(code) > 0, nil
}

// Transfer sends amount of the native currency to `to` and waits until the
// transaction is mined successfully.
func (c *EVMClient) Transfer(ctx context.Context, to common.Address, amount sdkmath.Uint) error {
	receipt, err := c.sendAndWait(ctx, to, amount.BigInt(), nil)
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str("to", to.Hex()).
		Str("amount", amount.String()).
		Str("tx_hash", receipt.TxHash.Hex()).
		Uint64("block", receipt.BlockNumber.Uint64()).
		Msg("native transfer mined")
	return nil
}

func (c *EVMClient) TokenBalance(ctx context.Context, token, holder common.Address) (sdkmath.Uint, error) {
	data, err := packBalanceOf(holder)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}

	callForBalance := func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.client.CallContract(callCtx, ethereum.CallMsg{To: &token, Data: data}, nil)
	}

	out, err := clientCallWithRetry(ctx, callForBalance, c.cfg)
	if err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("failed to call balanceOf on %s: %w", token.Hex(), err)
	}

	balance, err := unpackBalanceOf(out)
	if err != nil {
		return sdkmath.ZeroUint(), err
	}
	return sdkmath.NewUintFromBigInt(balance), nil
}

// TransferToken moves amount of token to `to`. The call is simulated first so
// that tokens returning false instead of reverting are caught before sending.
func (c *EVMClient) TransferToken(ctx context.Context, token, to common.Address, amount sdkmath.Uint) error {
	data, err := packTransfer(to, amount.BigInt())
	if err != nil {
		return err
	}

	simCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	out, err := c.client.CallContract(simCtx, ethereum.CallMsg{From: c.address, To: &token, Data: data}, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("token transfer simulation failed: %w", err)
	}
	ok, err := unpackTransferResult(out)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("token %s refused transfer of %s", token.Hex(), amount)
	}

	receipt, err := c.sendAndWait(ctx, token, big.NewInt(0), data)
	if err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str("token", token.Hex()).
		Str("to", to.Hex()).
		Str("amount", amount.String()).
		Str("tx_hash", receipt.TxHash.Hex()).
		Msg("token transfer mined")
	return nil
}

func (c *EVMClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	callForHeight := func() (uint64, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.client.BlockNumber(callCtx)
	}

	height, err := clientCallWithRetry(ctx, callForHeight, c.cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return height, nil
}

// InboundTransfers lists the value-carrying transactions into the faucet
// wallet in the block at height. Transfers the wallet sent to itself are not
// inbound.
func (c *EVMClient) InboundTransfers(ctx context.Context, height uint64) ([]InboundTransfer, error) {
	callForBlock := func() (*types.Block, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.client.BlockByNumber(callCtx, new(big.Int).SetUint64(height))
	}

	block, err := clientCallWithRetry(ctx, callForBlock, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", height, err)
	}

	var transfers []InboundTransfer
	for _, tx := range block.Transactions() {
		if tx.To() == nil || *tx.To() != c.address || tx.Value().Sign() <= 0 {
			continue
		}
		from, err := types.Sender(c.signer, tx)
		if err != nil {
			return nil, fmt.Errorf("failed to recover sender of %s: %w", tx.Hash().Hex(), err)
		}
		if from == c.address {
			continue
		}
		transfers = append(transfers, InboundTransfer{
			TxHash: tx.Hash(),
			From:   from,
			Amount: sdkmath.NewUintFromBigInt(tx.Value()),
			Height: height,
		})
	}

	return transfers, nil
}

// sendAndWait signs and submits a transaction from the hot wallet, then waits
// for its receipt. Sending is never retried, only receipt polling is.
func (c *EVMClient) sendAndWait(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	tx, err := c.send(ctx, to, value, data)
	if err != nil {
		return nil, err
	}

	receipt, err := c.waitMined(ctx, tx.Hash())
	if err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Str("tx_hash", tx.Hash().Hex()).
			Msg("transaction sent but not confirmed")
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

func (c *EVMClient) send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	nonce, err := c.client.PendingNonceAt(callCtx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(callCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	gas, err := c.client.EstimateGas(callCtx, ethereum.CallMsg{
		From:  c.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, c.signer, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(callCtx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signed, nil
}

func (c *EVMClient) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	attempts := uint(c.cfg.ReceiptTimeout / c.cfg.ReceiptPollInterval)
	if attempts == 0 {
		attempts = 1
	}

	receipt, err := retry.DoWithData(
		func() (*types.Receipt, error) {
			callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
			return c.client.TransactionReceipt(callCtx, hash)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.cfg.ReceiptPollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ethereum.NotFound)
		}),
	)
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, hash.Hex())
	}
	return receipt, err
}

func clientCallWithRetry[T any](
	ctx context.Context, call retry.RetryableFuncWithData[T], cfg *config.ChainConfig,
) (T, error) {
	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxRetryTimes),
		retry.Delay(cfg.RetryInterval),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", cfg.MaxRetryTimes).
				Err(err).
				Msg("failed to call the chain RPC client")
		}))

	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
