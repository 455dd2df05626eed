package repository

import (
	"context"
	"fmt"

	"luckybot/database"
	"luckybot/models"

	"github.com/jackc/pgx/v5"
)

// WithdrawalRepository implements the service.WithdrawalRepository interface
type WithdrawalRepository struct {
	q queryable
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db.Pool}
}

// newWithdrawalRepositoryWithTx creates a new withdrawal repository bound to a transaction
func newWithdrawalRepositoryWithTx(tx queryable) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `id, discord_id, amount, wallet_address, status, created_at`

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	err := row.Scan(
		&request.ID,
		&request.DiscordID,
		&request.Amount,
		&request.WalletAddress,
		&request.Status,
		&request.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Create persists a new pending withdrawal request
func (r *WithdrawalRepository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests (discord_id, amount, wallet_address, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		request.DiscordID,
		request.Amount,
		request.WalletAddress,
		models.WithdrawalStatusPending,
	).Scan(&request.ID, &request.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create withdrawal request for account %d: %w", request.DiscordID, err)
	}
	request.Status = models.WithdrawalStatusPending
	return nil
}

// GetByID retrieves a withdrawal request by its ID
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`

	request, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request %d: %w", id, err)
	}
	return request, nil
}

// Settle transitions a pending request to the given terminal status.
// Returns false without mutation when the request is not pending.
func (r *WithdrawalRepository) Settle(ctx context.Context, id int64, status models.WithdrawalStatus) (bool, error) {
	query := `
		UPDATE withdrawal_requests
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, status, id, models.WithdrawalStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to settle withdrawal request %d: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// GetRecent returns the most recent withdrawal requests for the admin console
func (r *WithdrawalRepository) GetRecent(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.WithdrawalRequest
	for rows.Next() {
		var request models.WithdrawalRequest
		err := rows.Scan(
			&request.ID,
			&request.DiscordID,
			&request.Amount,
			&request.WalletAddress,
			&request.Status,
			&request.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, &request)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawal requests: %w", err)
	}
	return requests, nil
}
