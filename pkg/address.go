package pkg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a 0x prefixed hex account address. The zero address is
// rejected, it can never be a payout recipient or an owner.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address %q", address)
	}

	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address is not allowed")
	}
	return addr, nil
}
