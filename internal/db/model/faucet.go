package model

import "time"

// FaucetStateSingletonID is the _id of the only faucet state document.
const FaucetStateSingletonID = "faucet"

// FaucetStateDocument holds the scalar faucet state. Amounts and the lock
// duration are decimal strings so that the full uint256 range round-trips.
type FaucetStateDocument struct {
	ID           string    `bson:"_id"`
	Owner        string    `bson:"owner"`
	Paused       bool      `bson:"paused"`
	PoolBalance  string    `bson:"pool_balance"`
	PayoutAmount string    `bson:"payout_amount"`
	LockDuration string    `bson:"lock_duration"`
	PayoutCount  uint64    `bson:"payout_count"`
	TotalPaidOut string    `bson:"total_paid_out"`
	TotalFunded  string    `bson:"total_funded"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type RecipientLockDocument struct {
	Recipient string    `bson:"_id"`
	PaidAt    time.Time `bson:"paid_at"`
}

type FaucetEventDocument struct {
	ID        string    `bson:"_id"`
	Type      string    `bson:"type"`
	Address   string    `bson:"address"`
	Amount    string    `bson:"amount"`
	Timestamp time.Time `bson:"timestamp"`
}

// DepositDocument marks an inbound transfer as credited to the pool.
type DepositDocument struct {
	TxHash string `bson:"_id"`
	From   string `bson:"from"`
	Amount string `bson:"amount"`
	Height uint64 `bson:"height"`
}

// DepositCursorID is the _id of the deposit watcher's cursor document.
const DepositCursorID = "deposits"

// DepositCursorDocument is the last block height whose inbound transfers were
// all credited.
type DepositCursorDocument struct {
	ID        string    `bson:"_id"`
	Height    uint64    `bson:"height"`
	UpdatedAt time.Time `bson:"updated_at"`
}
