// Package guard holds the access-control and pause capabilities the faucet
// engine consults before mutating its state.
package guard

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/purplefaucet/purple-faucet/internal/types"
)

// Ownable tracks the single privileged address of the faucet.
type Ownable struct {
	mu    sync.RWMutex
	owner common.Address
}

func NewOwnable(owner common.Address) *Ownable {
	return &Ownable{owner: owner}
}

func (o *Ownable) Owner() common.Address {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.owner
}

// IsOwner reports whether caller is the current owner. The zero address is
// never an owner.
func (o *Ownable) IsOwner(caller common.Address) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return caller != (common.Address{}) && caller == o.owner
}

// TransferOwnership hands the faucet to newOwner.
func (o *Ownable) TransferOwnership(caller, newOwner common.Address) *types.Error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if caller == (common.Address{}) || caller != o.owner {
		return types.NewFaucetError(types.Unauthorized, "caller %s is not the owner", caller.Hex())
	}
	if newOwner == (common.Address{}) {
		return types.NewFaucetError(types.BadRequest, "new owner is the zero address")
	}
	o.owner = newOwner
	return nil
}
