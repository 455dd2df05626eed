package testutil

import (
	"time"

	"luckybot/models"
)

// CreateTestPacket creates an active test packet with default values
func CreateTestPacket(id string, senderID int64, amount int64, count int) *models.Packet {
	return &models.Packet{
		ID:              id,
		SenderID:        senderID,
		SenderName:      "sender",
		TotalAmount:     amount,
		TotalCount:      count,
		RemainingAmount: amount,
		RemainingCount:  count,
		Status:          models.PacketStatusActive,
		CreatedAt:       time.Now(),
	}
}

// CreateTestMinePacket creates an active test packet carrying a hazard digit
func CreateTestMinePacket(id string, senderID int64, amount int64, count int, digit int16) *models.Packet {
	packet := CreateTestPacket(id, senderID, amount, count)
	packet.MineDigit = &digit
	return packet
}

// CreateTestDepositOrder creates a pending deposit order
func CreateTestDepositOrder(discordID int64, amount int64, payAmount int64) *models.DepositOrder {
	return &models.DepositOrder{
		DiscordID: discordID,
		Amount:    amount,
		PayAmount: payAmount,
		Status:    models.DepositStatusPending,
		CreatedAt: time.Now(),
	}
}

// CreateTestWithdrawal creates a pending withdrawal request
func CreateTestWithdrawal(discordID int64, amount int64) *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		DiscordID:     discordID,
		Amount:        amount,
		WalletAddress: "TTestWallet11111111111111111111111",
		Status:        models.WithdrawalStatusPending,
		CreatedAt:     time.Now(),
	}
}

// CreateTestLedgerEntry creates a ledger entry with default values
func CreateTestLedgerEntry(discordID int64, amount int64, kind models.EntryKind) *models.LedgerEntry {
	return &models.LedgerEntry{
		DiscordID: discordID,
		Amount:    amount,
		Kind:      kind,
		Note:      "test entry",
		CreatedAt: time.Now(),
	}
}
