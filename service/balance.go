package service

import (
	"context"
	"fmt"

	"luckybot/events"
	"luckybot/models"
)

// AdjustBalance applies a balance delta inside the caller's unit of work:
// it locks the account row, rejects debits past zero, writes the new balance,
// appends the matching ledger entry and stages a balance change event. Every
// money movement in the system funnels through here so the ledger and the
// balance column can never drift apart.
func AdjustBalance(ctx context.Context, uow UnitOfWork, discordID int64, delta int64, kind models.EntryKind, note string) (int64, error) {
	account, err := ensureAccountLocked(ctx, uow, discordID)
	if err != nil {
		return 0, err
	}

	newBalance := account.Balance + delta
	if newBalance < 0 {
		return 0, fmt.Errorf("%w: account %d has %d, needs %d", ErrInsufficientFunds, discordID, account.Balance, -delta)
	}

	if err := uow.Accounts().UpdateBalance(ctx, discordID, newBalance); err != nil {
		return 0, fmt.Errorf("failed to update balance for account %d: %w", discordID, err)
	}

	if err := uow.Ledger().Record(ctx, &models.LedgerEntry{
		DiscordID: discordID,
		Amount:    delta,
		Kind:      kind,
		Note:      note,
	}); err != nil {
		return 0, fmt.Errorf("failed to record ledger entry for account %d: %w", discordID, err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		DiscordID:  discordID,
		OldBalance: account.Balance,
		NewBalance: newBalance,
		Kind:       kind,
		Amount:     delta,
	})

	return newBalance, nil
}

// ensureAccountLocked fetches an account under its row lock, creating it with
// a zero balance first if it does not exist yet. A concurrent first-touch of
// the same account loses on the primary key and aborts its transaction, which
// is the behavior we want.
func ensureAccountLocked(ctx context.Context, uow UnitOfWork, discordID int64) (*models.Account, error) {
	account, err := uow.Accounts().GetForUpdate(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", discordID, err)
	}
	if account != nil {
		return account, nil
	}

	account, err = uow.Accounts().Create(ctx, discordID, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", discordID, err)
	}
	return account, nil
}
