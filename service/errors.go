package service

import (
	"errors"
)

// Sentinel errors surfaced to the front-ends. Storage-layer failures are
// wrapped with context instead and abort the whole unit of work.
var (
	// ErrInsufficientFunds is returned when a debit would take a balance negative
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is attempted outside its
	// valid state, e.g. approving a non-pending request. Nothing is mutated.
	ErrInvalidState = errors.New("invalid state")

	// ErrPacketNotActive is returned when claiming a finished, refunded or
	// fully drained packet
	ErrPacketNotActive = errors.New("packet is not active")

	// ErrAlreadyClaimed is returned when an account claims a packet twice
	ErrAlreadyClaimed = errors.New("packet already claimed")

	// ErrRiskGateBlocked is returned when a claimant's balance is below the
	// minimum required to play a mine packet
	ErrRiskGateBlocked = errors.New("balance below mine packet minimum")
)
