package models

import (
	"time"
)

// EntryKind represents the type of a ledger entry
type EntryKind string

const (
	EntryKindDeposit        EntryKind = "deposit"
	EntryKindWithdrawFreeze EntryKind = "withdraw_freeze"
	EntryKindPacketSend     EntryKind = "packet_send"
	EntryKindPacketClaim    EntryKind = "packet_claim"
	EntryKindMinePenalty    EntryKind = "mine_penalty"
	EntryKindMineIncome     EntryKind = "mine_income"
	EntryKindRefund         EntryKind = "refund"
	EntryKindSignupBonus    EntryKind = "signup_bonus"
	EntryKindAdminAdjust    EntryKind = "admin_adjust"
)

// LedgerEntry is an append-only record of a single balance change.
// The sum of all entries for an account always equals its current balance.
type LedgerEntry struct {
	ID        int64     `db:"id" json:"id"`
	DiscordID int64     `db:"discord_id" json:"discord_id"`
	Amount    int64     `db:"amount" json:"amount"`
	Kind      EntryKind `db:"kind" json:"kind"`
	Note      string    `db:"note" json:"note"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
