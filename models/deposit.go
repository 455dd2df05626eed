package models

import (
	"time"
)

// DepositStatus represents the state of a deposit order
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusCompleted DepositStatus = "completed"
	DepositStatusRejected  DepositStatus = "rejected"
	DepositStatusExpired   DepositStatus = "expired"
)

// DepositOrder is a pending expectation of an external transfer.
// PayAmount is the nominal amount plus a small random offset so concurrent
// orders to the shared collection address stay individually identifiable.
type DepositOrder struct {
	ID        int64         `db:"id" json:"id"`
	DiscordID int64         `db:"discord_id" json:"discord_id"`
	Amount    int64         `db:"amount" json:"amount"`
	PayAmount int64         `db:"pay_amount" json:"pay_amount"`
	Status    DepositStatus `db:"status" json:"status"`
	TxHash    *string       `db:"tx_hash" json:"tx_hash,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// IsPending checks whether the order can still be matched or acted on
func (d *DepositOrder) IsPending() bool {
	return d.Status == DepositStatusPending
}
