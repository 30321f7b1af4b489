// Package faucet implements the faucet distribution engine: the pooled
// balance, fixed-size payouts guarded by per-recipient time locks, the owner
// fee top-up, the token sweep and the running statistics.
//
// The engine consults an OwnershipGuard before every privileged operation and
// a PauseSwitch before every payout. Value leaves the pool only after the
// chain confirmed the transfer, so a failed transfer never shows up as a
// debited pool.
package faucet
