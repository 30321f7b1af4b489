package services

import (
	"fmt"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/purplefaucet/purple-faucet/internal/db/model"
	"github.com/purplefaucet/purple-faucet/internal/faucet"
)

func snapshotToDocument(snapshot faucet.Snapshot, updatedAt time.Time) *model.FaucetStateDocument {
	return &model.FaucetStateDocument{
		ID:           model.FaucetStateSingletonID,
		Owner:        snapshot.Owner.Hex(),
		Paused:       snapshot.Paused,
		PoolBalance:  snapshot.PoolBalance.String(),
		PayoutAmount: snapshot.PayoutAmount.String(),
		LockDuration: strconv.FormatUint(snapshot.LockDuration, 10),
		PayoutCount:  snapshot.Stats.PayoutCount,
		TotalPaidOut: snapshot.Stats.TotalPaidOut.String(),
		TotalFunded:  snapshot.Stats.TotalFunded.String(),
		UpdatedAt:    updatedAt,
	}
}

func stateFromDocuments(
	doc *model.FaucetStateDocument, locks []model.RecipientLockDocument,
) (*faucet.State, common.Address, bool, error) {
	if !common.IsHexAddress(doc.Owner) {
		return nil, common.Address{}, false, fmt.Errorf("stored owner %q is not an address", doc.Owner)
	}

	amounts := map[string]string{
		"pool_balance":   doc.PoolBalance,
		"payout_amount":  doc.PayoutAmount,
		"total_paid_out": doc.TotalPaidOut,
		"total_funded":   doc.TotalFunded,
	}
	parsed := make(map[string]sdkmath.Uint, len(amounts))
	for field, value := range amounts {
		amount, err := sdkmath.ParseUint(value)
		if err != nil {
			return nil, common.Address{}, false, fmt.Errorf("invalid stored %s %q: %w", field, value, err)
		}
		parsed[field] = amount
	}

	lockDuration, err := strconv.ParseUint(doc.LockDuration, 10, 64)
	if err != nil {
		return nil, common.Address{}, false, fmt.Errorf("invalid stored lock_duration %q: %w", doc.LockDuration, err)
	}

	state := faucet.NewState(parsed["payout_amount"], lockDuration)
	state.PoolBalance = parsed["pool_balance"]
	state.Stats = faucet.Stats{
		PayoutCount:  doc.PayoutCount,
		TotalPaidOut: parsed["total_paid_out"],
		TotalFunded:  parsed["total_funded"],
	}
	for _, lock := range locks {
		if !common.IsHexAddress(lock.Recipient) {
			return nil, common.Address{}, false, fmt.Errorf("stored recipient %q is not an address", lock.Recipient)
		}
		state.Locks[common.HexToAddress(lock.Recipient)] = lock.PaidAt.UTC()
	}

	return state, common.HexToAddress(doc.Owner), doc.Paused, nil
}
