package models

import (
	"time"
)

// Account represents a Discord user with a minor-unit balance.
// Balances never go negative; every change is mirrored by a ledger entry.
type Account struct {
	DiscordID     int64     `db:"discord_id" json:"discord_id"`
	Username      string    `db:"username" json:"username"`
	Balance       int64     `db:"balance" json:"balance"`
	WalletAddress *string   `db:"wallet_address" json:"wallet_address,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AccountStats aggregates packet activity for a single account
type AccountStats struct {
	TotalSent    int64 `json:"total_sent"`
	TotalClaimed int64 `json:"total_claimed"`
}
