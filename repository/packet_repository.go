package repository

import (
	"context"
	"fmt"
	"time"

	"luckybot/database"
	"luckybot/models"

	"github.com/jackc/pgx/v5"
)

// PacketRepository implements the service.PacketRepository interface
type PacketRepository struct {
	q queryable
}

// NewPacketRepository creates a new packet repository
func NewPacketRepository(db *database.DB) *PacketRepository {
	return &PacketRepository{q: db.Pool}
}

// newPacketRepositoryWithTx creates a new packet repository bound to a transaction
func newPacketRepositoryWithTx(tx queryable) *PacketRepository {
	return &PacketRepository{q: tx}
}

const packetColumns = `id, sender_id, sender_name, total_amount, total_count,
	remaining_amount, remaining_count, status, mine_digit, created_at`

func scanPacket(row pgx.Row) (*models.Packet, error) {
	var packet models.Packet
	err := row.Scan(
		&packet.ID,
		&packet.SenderID,
		&packet.SenderName,
		&packet.TotalAmount,
		&packet.TotalCount,
		&packet.RemainingAmount,
		&packet.RemainingCount,
		&packet.Status,
		&packet.MineDigit,
		&packet.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &packet, nil
}

// Create persists a new active packet
func (r *PacketRepository) Create(ctx context.Context, packet *models.Packet) error {
	query := `
		INSERT INTO packets
		(id, sender_id, sender_name, total_amount, total_count, remaining_amount, remaining_count, status, mine_digit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		packet.ID,
		packet.SenderID,
		packet.SenderName,
		packet.TotalAmount,
		packet.TotalCount,
		packet.RemainingAmount,
		packet.RemainingCount,
		packet.Status,
		packet.MineDigit,
	).Scan(&packet.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create packet %s: %w", packet.ID, err)
	}
	return nil
}

// GetByID retrieves a packet by its ID
func (r *PacketRepository) GetByID(ctx context.Context, id string) (*models.Packet, error) {
	query := `SELECT ` + packetColumns + ` FROM packets WHERE id = $1`

	packet, err := scanPacket(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get packet %s: %w", id, err)
	}
	return packet, nil
}

// GetForUpdate retrieves a packet and takes its row lock for the duration of
// the surrounding transaction, serializing concurrent claims.
// Must be called inside a unit of work.
func (r *PacketRepository) GetForUpdate(ctx context.Context, id string) (*models.Packet, error) {
	query := `SELECT ` + packetColumns + ` FROM packets WHERE id = $1 FOR UPDATE`

	packet, err := scanPacket(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock packet %s: %w", id, err)
	}
	return packet, nil
}

// Update persists a packet's remaining amount, remaining count and status.
// Callers must hold the row lock via GetForUpdate.
func (r *PacketRepository) Update(ctx context.Context, packet *models.Packet) error {
	query := `
		UPDATE packets
		SET remaining_amount = $1, remaining_count = $2, status = $3
		WHERE id = $4
	`

	result, err := r.q.Exec(ctx, query,
		packet.RemainingAmount,
		packet.RemainingCount,
		packet.Status,
		packet.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update packet %s: %w", packet.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("packet %s not found", packet.ID)
	}
	return nil
}

// AddClaim records a claim. The unique constraint on (packet_id, discord_id)
// backstops the already-claimed check made under the packet lock.
func (r *PacketRepository) AddClaim(ctx context.Context, claim *models.PacketClaim) error {
	query := `
		INSERT INTO packet_claims (packet_id, discord_id, username, amount, boom)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		claim.PacketID,
		claim.DiscordID,
		claim.Username,
		claim.Amount,
		claim.Boom,
	).Scan(&claim.ID, &claim.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to add claim on packet %s for account %d: %w", claim.PacketID, claim.DiscordID, err)
	}
	return nil
}

// HasClaimed checks whether an account already claimed from a packet
func (r *PacketRepository) HasClaimed(ctx context.Context, packetID string, discordID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM packet_claims WHERE packet_id = $1 AND discord_id = $2)`

	var claimed bool
	if err := r.q.QueryRow(ctx, query, packetID, discordID).Scan(&claimed); err != nil {
		return false, fmt.Errorf("failed to check claim on packet %s for account %d: %w", packetID, discordID, err)
	}
	return claimed, nil
}

// GetClaims returns all claims for a packet in claim order
func (r *PacketRepository) GetClaims(ctx context.Context, packetID string) ([]*models.PacketClaim, error) {
	query := `
		SELECT id, packet_id, discord_id, username, amount, boom, created_at
		FROM packet_claims
		WHERE packet_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, packetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claims for packet %s: %w", packetID, err)
	}
	defer rows.Close()

	var claims []*models.PacketClaim
	for rows.Next() {
		var claim models.PacketClaim
		err := rows.Scan(
			&claim.ID,
			&claim.PacketID,
			&claim.DiscordID,
			&claim.Username,
			&claim.Amount,
			&claim.Boom,
			&claim.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan packet claim: %w", err)
		}
		claims = append(claims, &claim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate packet claims: %w", err)
	}
	return claims, nil
}

// GetExpiredActive returns packets still active that were created before the
// cutoff. The sweeper re-locks each one individually before refunding.
func (r *PacketRepository) GetExpiredActive(ctx context.Context, cutoff time.Time) ([]*models.Packet, error) {
	query := `
		SELECT ` + packetColumns + `
		FROM packets
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query, models.PacketStatusActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired packets: %w", err)
	}
	defer rows.Close()

	var packets []*models.Packet
	for rows.Next() {
		var packet models.Packet
		err := rows.Scan(
			&packet.ID,
			&packet.SenderID,
			&packet.SenderName,
			&packet.TotalAmount,
			&packet.TotalCount,
			&packet.RemainingAmount,
			&packet.RemainingCount,
			&packet.Status,
			&packet.MineDigit,
			&packet.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan packet: %w", err)
		}
		packets = append(packets, &packet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate packets: %w", err)
	}
	return packets, nil
}
