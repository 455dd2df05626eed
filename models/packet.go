package models

import (
	"time"
)

// PacketStatus represents the state of a lucky-money packet
type PacketStatus string

const (
	PacketStatusActive   PacketStatus = "active"
	PacketStatusFinished PacketStatus = "finished"
	PacketStatusRefunded PacketStatus = "refunded"
)

// Packet is a lucky-money pool funded up front by its sender and drained by
// randomized claims. TotalAmount is the distributable total after the house
// fee; the sender was debited the full nominal amount at creation.
type Packet struct {
	ID              string       `db:"id" json:"id"`
	SenderID        int64        `db:"sender_id" json:"sender_id"`
	SenderName      string       `db:"sender_name" json:"sender_name"`
	TotalAmount     int64        `db:"total_amount" json:"total_amount"`
	TotalCount      int          `db:"total_count" json:"total_count"`
	RemainingAmount int64        `db:"remaining_amount" json:"remaining_amount"`
	RemainingCount  int          `db:"remaining_count" json:"remaining_count"`
	Status          PacketStatus `db:"status" json:"status"`
	MineDigit       *int16       `db:"mine_digit" json:"mine_digit,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// PacketClaim records one account's claim against a packet.
// (packet_id, discord_id) is unique: an account claims at most once.
type PacketClaim struct {
	ID        int64     `db:"id" json:"id"`
	PacketID  string    `db:"packet_id" json:"packet_id"`
	DiscordID int64     `db:"discord_id" json:"discord_id"`
	Username  string    `db:"username" json:"username"`
	Amount    int64     `db:"amount" json:"amount"`
	Boom      bool      `db:"boom" json:"boom"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsActive checks whether the packet can still be claimed
func (p *Packet) IsActive() bool {
	return p.Status == PacketStatusActive
}

// HasMine checks whether the packet carries a hazard digit
func (p *Packet) HasMine() bool {
	return p.MineDigit != nil
}

// ClaimResult is the outcome of a single claim, including any mine penalty
type ClaimResult struct {
	Packet     *Packet
	Amount     int64
	Digit      int16
	Boom       bool
	Penalty    int64 // amount actually collected from the claimant
	NewBalance int64
}
