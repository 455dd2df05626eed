package repository

import (
	"context"
	"fmt"

	"luckybot/database"
	"luckybot/models"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the service.AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository bound to a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `discord_id, username, balance, wallet_address, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.DiscordID,
		&account.Username,
		&account.Balance,
		&account.WalletAddress,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByDiscordID retrieves an account by its Discord ID
func (r *AccountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE discord_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID))
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", discordID, err)
	}
	return account, nil
}

// GetForUpdate retrieves an account and takes its row lock for the duration
// of the surrounding transaction. Must be called inside a unit of work.
func (r *AccountRepository) GetForUpdate(ctx context.Context, discordID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE discord_id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", discordID, err)
	}
	return account, nil
}

// Create creates a new account with the given initial balance
func (r *AccountRepository) Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (discord_id, username, balance)
		VALUES ($1, $2, $3)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID, username, initialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", discordID, err)
	}
	return account, nil
}

// UpdateBalance sets an account's balance. Callers must hold the row lock
// via GetForUpdate; this is the only sanctioned write to the balance column.
func (r *AccountRepository) UpdateBalance(ctx context.Context, discordID int64, newBalance int64) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE discord_id = $2
	`

	result, err := r.q.Exec(ctx, query, newBalance, discordID)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", discordID)
	}
	return nil
}

// UpdateUsername refreshes the cached Discord username
func (r *AccountRepository) UpdateUsername(ctx context.Context, discordID int64, username string) error {
	query := `
		UPDATE accounts
		SET username = $1, updated_at = NOW()
		WHERE discord_id = $2 AND username <> $1
	`

	if _, err := r.q.Exec(ctx, query, username, discordID); err != nil {
		return fmt.Errorf("failed to update username for account %d: %w", discordID, err)
	}
	return nil
}

// SetWalletAddress binds a payout wallet address to an account
func (r *AccountRepository) SetWalletAddress(ctx context.Context, discordID int64, address string) error {
	query := `
		UPDATE accounts
		SET wallet_address = $1, updated_at = NOW()
		WHERE discord_id = $2
	`

	result, err := r.q.Exec(ctx, query, address, discordID)
	if err != nil {
		return fmt.Errorf("failed to set wallet address for account %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", discordID)
	}
	return nil
}

// GetAll returns all accounts ordered by creation time, newest first
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.DiscordID,
			&account.Username,
			&account.Balance,
			&account.WalletAddress,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}
