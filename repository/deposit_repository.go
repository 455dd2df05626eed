package repository

import (
	"context"
	"fmt"
	"time"

	"luckybot/database"
	"luckybot/models"

	"github.com/jackc/pgx/v5"
)

// DepositRepository implements the service.DepositRepository interface
type DepositRepository struct {
	q queryable
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *database.DB) *DepositRepository {
	return &DepositRepository{q: db.Pool}
}

// newDepositRepositoryWithTx creates a new deposit repository bound to a transaction
func newDepositRepositoryWithTx(tx queryable) *DepositRepository {
	return &DepositRepository{q: tx}
}

const depositColumns = `id, discord_id, amount, pay_amount, status, tx_hash, created_at`

func scanDeposit(row pgx.Row) (*models.DepositOrder, error) {
	var order models.DepositOrder
	err := row.Scan(
		&order.ID,
		&order.DiscordID,
		&order.Amount,
		&order.PayAmount,
		&order.Status,
		&order.TxHash,
		&order.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Create persists a new pending deposit order
func (r *DepositRepository) Create(ctx context.Context, order *models.DepositOrder) error {
	query := `
		INSERT INTO deposit_orders (discord_id, amount, pay_amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		order.DiscordID,
		order.Amount,
		order.PayAmount,
		models.DepositStatusPending,
	).Scan(&order.ID, &order.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create deposit order for account %d: %w", order.DiscordID, err)
	}
	order.Status = models.DepositStatusPending
	return nil
}

// GetByID retrieves a deposit order by its ID
func (r *DepositRepository) GetByID(ctx context.Context, id int64) (*models.DepositOrder, error) {
	query := `SELECT ` + depositColumns + ` FROM deposit_orders WHERE id = $1`

	order, err := scanDeposit(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit order %d: %w", id, err)
	}
	return order, nil
}

// GetByTxHash retrieves a deposit order by its external transaction reference
func (r *DepositRepository) GetByTxHash(ctx context.Context, txHash string) (*models.DepositOrder, error) {
	query := `SELECT ` + depositColumns + ` FROM deposit_orders WHERE tx_hash = $1`

	order, err := scanDeposit(r.q.QueryRow(ctx, query, txHash))
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit order by tx hash %s: %w", txHash, err)
	}
	return order, nil
}

// FindPendingByPayAmount locks and returns the newest pending order whose
// disambiguated amount matches the transfer exactly, or nil if none matches.
// Must be called inside a unit of work.
func (r *DepositRepository) FindPendingByPayAmount(ctx context.Context, payAmount int64) (*models.DepositOrder, error) {
	query := `
		SELECT ` + depositColumns + `
		FROM deposit_orders
		WHERE status = $1 AND pay_amount = $2
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`

	order, err := scanDeposit(r.q.QueryRow(ctx, query, models.DepositStatusPending, payAmount))
	if err != nil {
		return nil, fmt.Errorf("failed to find pending deposit order for amount %d: %w", payAmount, err)
	}
	return order, nil
}

// Complete marks a pending order completed and records the matched transfer.
// Returns false without mutation when the order is not pending.
func (r *DepositRepository) Complete(ctx context.Context, id int64, txHash *string) (bool, error) {
	query := `
		UPDATE deposit_orders
		SET status = $1, tx_hash = COALESCE($2, tx_hash)
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.Exec(ctx, query,
		models.DepositStatusCompleted, txHash, id, models.DepositStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to complete deposit order %d: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// Reject marks a pending order rejected.
// Returns false without mutation when the order is not pending.
func (r *DepositRepository) Reject(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE deposit_orders
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query,
		models.DepositStatusRejected, id, models.DepositStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to reject deposit order %d: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// ExpirePending transitions every pending order created before the cutoff to
// expired and returns how many were affected
func (r *DepositRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE deposit_orders
		SET status = $1
		WHERE status = $2 AND created_at < $3
	`

	result, err := r.q.Exec(ctx, query,
		models.DepositStatusExpired, models.DepositStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending deposit orders: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetRecent returns the most recent deposit orders for the admin console
func (r *DepositRepository) GetRecent(ctx context.Context, limit int) ([]*models.DepositOrder, error) {
	query := `
		SELECT ` + depositColumns + `
		FROM deposit_orders
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent deposit orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.DepositOrder
	for rows.Next() {
		var order models.DepositOrder
		err := rows.Scan(
			&order.ID,
			&order.DiscordID,
			&order.Amount,
			&order.PayAmount,
			&order.Status,
			&order.TxHash,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit order: %w", err)
		}
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deposit orders: %w", err)
	}
	return orders, nil
}
