package chainclient

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Transfer is a value movement recorded by MemoryChain.
type Transfer struct {
	Token  *common.Address
	To     common.Address
	Amount sdkmath.Uint
}

// MemoryChain is an in-process chain used for local development and tests.
// Every deposit is mined in its own block.
type MemoryChain struct {
	mu sync.Mutex

	address   common.Address
	balances  map[common.Address]sdkmath.Uint
	code      map[common.Address]bool
	tokens    map[common.Address]map[common.Address]sdkmath.Uint
	blocks    [][]InboundTransfer
	transfers []Transfer
	failWith  error
}

func NewMemoryChain(wallet common.Address) *MemoryChain {
	return &MemoryChain{
		address:  wallet,
		balances: make(map[common.Address]sdkmath.Uint),
		code:     make(map[common.Address]bool),
		tokens:   make(map[common.Address]map[common.Address]sdkmath.Uint),
		// genesis
		blocks: [][]InboundTransfer{nil},
	}
}

func (m *MemoryChain) Address() common.Address {
	return m.address
}

func (m *MemoryChain) SetBalance(addr common.Address, amount sdkmath.Uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] = amount
}

// SetCode marks addr as holding deployed code.
func (m *MemoryChain) SetCode(addr common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code[addr] = true
}

func (m *MemoryChain) SetTokenBalance(token, holder common.Address, amount sdkmath.Uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens[token] == nil {
		m.tokens[token] = make(map[common.Address]sdkmath.Uint)
	}
	m.tokens[token][holder] = amount
}

// FailTransfers makes every following outgoing transfer fail with err. A nil
// err restores normal behaviour.
func (m *MemoryChain) FailTransfers(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Deposit mines a block holding a transfer of amount from `from` into the
// faucet wallet and returns its height.
func (m *MemoryChain) Deposit(from common.Address, amount sdkmath.Uint) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.credit(m.address, amount)
	return m.mine(from, amount)
}

func (m *MemoryChain) mine(from common.Address, amount sdkmath.Uint) uint64 {
	height := uint64(len(m.blocks))
	m.blocks = append(m.blocks, []InboundTransfer{{
		TxHash: crypto.Keccak256Hash(from.Bytes(), amount.BigInt().Bytes(), []byte(fmt.Sprint(height))),
		From:   from,
		Amount: amount,
		Height: height,
	}})
	return height
}

// Resume restores a wallet balance and chain height persisted by an earlier
// run, so that a restarted process agrees with its database. Heights below
// the current tip are ignored.
func (m *MemoryChain) Resume(walletBalance sdkmath.Uint, height uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[m.address] = walletBalance
	for uint64(len(m.blocks)) <= height {
		m.blocks = append(m.blocks, nil)
	}
}

// Transfers returns the outgoing transfers made so far.
func (m *MemoryChain) Transfers() []Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transfer(nil), m.transfers...)
}

func (m *MemoryChain) Balance(_ context.Context, addr common.Address) (sdkmath.Uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceOf(addr), nil
}

func (m *MemoryChain) IsContract(_ context.Context, addr common.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code[addr], nil
}

func (m *MemoryChain) Transfer(_ context.Context, to common.Address, amount sdkmath.Uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	balance := m.balanceOf(m.address)
	if balance.LT(amount) {
		return fmt.Errorf("insufficient funds for transfer: have %s, want %s", balance, amount)
	}
	m.balances[m.address] = balance.Sub(amount)
	m.credit(to, amount)
	m.transfers = append(m.transfers, Transfer{To: to, Amount: amount})
	if to == m.address {
		// lands in a block like on a real chain
		m.mine(m.address, amount)
	}
	return nil
}

func (m *MemoryChain) TokenBalance(_ context.Context, token, holder common.Address) (sdkmath.Uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenBalanceOf(token, holder), nil
}

func (m *MemoryChain) TransferToken(_ context.Context, token, to common.Address, amount sdkmath.Uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}
	balance := m.tokenBalanceOf(token, m.address)
	if balance.LT(amount) {
		return fmt.Errorf("token %s: transfer amount exceeds balance", token.Hex())
	}
	if m.tokens[token] == nil {
		m.tokens[token] = make(map[common.Address]sdkmath.Uint)
	}
	m.tokens[token][m.address] = balance.Sub(amount)
	m.tokens[token][to] = m.tokenBalanceOf(token, to).Add(amount)

	tokenAddr := token
	m.transfers = append(m.transfers, Transfer{Token: &tokenAddr, To: to, Amount: amount})
	return nil
}

func (m *MemoryChain) LatestBlockNumber(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.blocks) - 1), nil
}

// InboundTransfers skips transfers the wallet sent to itself.
func (m *MemoryChain) InboundTransfers(_ context.Context, height uint64) ([]InboundTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if height >= uint64(len(m.blocks)) {
		return nil, fmt.Errorf("block %d not found", height)
	}
	var transfers []InboundTransfer
	for _, transfer := range m.blocks[height] {
		if transfer.From == m.address {
			continue
		}
		transfers = append(transfers, transfer)
	}
	return transfers, nil
}

func (m *MemoryChain) balanceOf(addr common.Address) sdkmath.Uint {
	if balance, ok := m.balances[addr]; ok {
		return balance
	}
	return sdkmath.ZeroUint()
}

func (m *MemoryChain) tokenBalanceOf(token, holder common.Address) sdkmath.Uint {
	if balance, ok := m.tokens[token][holder]; ok {
		return balance
	}
	return sdkmath.ZeroUint()
}

func (m *MemoryChain) credit(addr common.Address, amount sdkmath.Uint) {
	m.balances[addr] = m.balanceOf(addr).Add(amount)
}
