package models

import (
	"time"
)

// WithdrawalStatus represents the state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest represents a user's request to pay out funds.
// The amount is frozen (debited) the moment the request is created, so
// approval and rejection are pure state transitions.
type WithdrawalRequest struct {
	ID            int64            `db:"id" json:"id"`
	DiscordID     int64            `db:"discord_id" json:"discord_id"`
	Amount        int64            `db:"amount" json:"amount"`
	WalletAddress string           `db:"wallet_address" json:"wallet_address"`
	Status        WithdrawalStatus `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// IsPending checks whether the request still awaits an admin decision
func (w *WithdrawalRequest) IsPending() bool {
	return w.Status == WithdrawalStatusPending
}
