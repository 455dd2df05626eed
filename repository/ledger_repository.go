package repository

import (
	"context"
	"fmt"

	"luckybot/database"
	"luckybot/models"
)

// LedgerRepository implements the service.LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository bound to a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record appends a new ledger entry. Entries are immutable once written.
func (r *LedgerRepository) Record(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (discord_id, amount, kind, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.DiscordID,
		entry.Amount,
		entry.Kind,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record ledger entry for account %d: %w", entry.DiscordID, err)
	}
	return nil
}

// GetByAccount returns the most recent ledger entries for an account
func (r *LedgerRepository) GetByAccount(ctx context.Context, discordID int64, limit int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, discord_id, amount, kind, note, created_at
		FROM ledger_entries
		WHERE discord_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for account %d: %w", discordID, err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.DiscordID,
			&entry.Amount,
			&entry.Kind,
			&entry.Note,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// SumByAccount returns the sum of all ledger entry amounts for an account.
// This must always equal the account's current balance.
func (r *LedgerRepository) SumByAccount(ctx context.Context, discordID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE discord_id = $1
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, discordID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries for account %d: %w", discordID, err)
	}
	return sum, nil
}

// GetStats aggregates packet activity for an account from its ledger
func (r *LedgerRepository) GetStats(ctx context.Context, discordID int64) (*models.AccountStats, error) {
	query := `
		SELECT
			COALESCE(ABS(SUM(amount) FILTER (WHERE kind = $2)), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = $3), 0)
		FROM ledger_entries
		WHERE discord_id = $1
	`

	var stats models.AccountStats
	err := r.q.QueryRow(ctx, query, discordID,
		models.EntryKindPacketSend,
		models.EntryKindPacketClaim,
	).Scan(&stats.TotalSent, &stats.TotalClaimed)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for account %d: %w", discordID, err)
	}
	return &stats, nil
}
