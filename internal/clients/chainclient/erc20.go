package chainclient

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// only the two methods the token sweep needs
const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid erc20 abi: %v", err))
	}
	return parsed
}

func packBalanceOf(holder common.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", holder)
}

func unpackBalanceOf(data []byte) (*big.Int, error) {
	out, err := erc20ABI.Unpack("balanceOf", data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode balanceOf result: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected balanceOf result length %d", len(out))
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}
	return balance, nil
}

func packTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, amount)
}

// unpackTransferResult decodes the bool returned by transfer. Tokens that
// return nothing are treated as successful.
func unpackTransferResult(data []byte) (bool, error) {
	if len(data) == 0 {
		return true, nil
	}
	out, err := erc20ABI.Unpack("transfer", data)
	if err != nil {
		return false, fmt.Errorf("failed to decode transfer result: %w", err)
	}
	if len(out) != 1 {
		return false, fmt.Errorf("unexpected transfer result length %d", len(out))
	}
	ok, isBool := out[0].(bool)
	if !isBool {
		return false, fmt.Errorf("unexpected transfer result type %T", out[0])
	}
	return ok, nil
}
