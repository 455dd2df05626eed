package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"luckybot/config"
	"luckybot/events"
	"luckybot/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type packetService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
	draw       func(remaining int64, count int) int64
}

// NewPacketService creates a new packet service
func NewPacketService(uowFactory UnitOfWorkFactory, cfg *config.Config) PacketService {
	return &packetService{
		uowFactory: uowFactory,
		cfg:        cfg,
		draw:       drawClaimAmount,
	}
}

// drawClaimAmount picks one claim's share of a packet. The last slot takes
// everything left; earlier slots draw uniformly from [1, 2*average], clamped
// so every later slot can still receive at least one unit.
func drawClaimAmount(remaining int64, count int) int64 {
	if count <= 1 {
		return remaining
	}

	avg := remaining / int64(count)
	draw := rand.Int63n(2*avg) + 1
	if max := remaining - int64(count-1); draw > max {
		draw = max
	}
	return draw
}

// Create validates the send, escrows the full amount from the sender and
// opens the packet. The distributable total is the amount net of the house
// fee; the fee stays debited from the sender.
func (s *packetService) Create(ctx context.Context, senderID int64, senderName string, totalAmount int64, count int, mineDigit *int16) (*models.Packet, error) {
	if totalAmount < s.cfg.MinPacketAmount {
		return nil, fmt.Errorf("%w: packet amount %d below minimum %d", ErrInvalidState, totalAmount, s.cfg.MinPacketAmount)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: packet count must be at least 1", ErrInvalidState)
	}
	if mineDigit != nil {
		if *mineDigit < 0 || *mineDigit > 9 {
			return nil, fmt.Errorf("%w: mine digit must be 0-9", ErrInvalidState)
		}
		if count < 2 {
			return nil, fmt.Errorf("%w: mine packets need at least 2 slots", ErrInvalidState)
		}
	}

	distributable := totalAmount - totalAmount*s.cfg.PacketFeePercent/100
	if distributable < int64(count) {
		return nil, fmt.Errorf("%w: amount too small to fill %d slots", ErrInvalidState, count)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	packetID := uuid.NewString()[:8]

	if _, err := AdjustBalance(ctx, uow, senderID, -totalAmount, models.EntryKindPacketSend, "packet "+packetID); err != nil {
		return nil, err
	}

	packet := &models.Packet{
		ID:              packetID,
		SenderID:        senderID,
		SenderName:      senderName,
		TotalAmount:     distributable,
		TotalCount:      count,
		RemainingAmount: distributable,
		RemainingCount:  count,
		Status:          models.PacketStatusActive,
		MineDigit:       mineDigit,
	}
	if err := uow.Packets().Create(ctx, packet); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"packetID": packetID,
		"senderID": senderID,
		"amount":   totalAmount,
		"count":    count,
		"mine":     mineDigit != nil,
	}).Info("Packet created")

	return packet, nil
}

// Claim executes one claim against a packet. The whole claim runs under the
// packet's row lock: eligibility checks, the draw, the claimant credit and,
// on a mine hit, the penalty settlement all commit or roll back together.
func (s *packetService) Claim(ctx context.Context, packetID string, claimantID int64, claimantName string) (*models.ClaimResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	packet, err := uow.Packets().GetForUpdate(ctx, packetID)
	if err != nil {
		return nil, err
	}
	if packet == nil {
		return nil, fmt.Errorf("%w: packet %s", ErrNotFound, packetID)
	}
	if !packet.IsActive() || packet.RemainingCount <= 0 {
		return nil, fmt.Errorf("%w: packet %s", ErrPacketNotActive, packetID)
	}
	if packet.SenderID == claimantID {
		return nil, fmt.Errorf("%w: cannot claim own packet", ErrInvalidState)
	}

	claimed, err := uow.Packets().HasClaimed(ctx, packetID, claimantID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, fmt.Errorf("%w: packet %s, account %d", ErrAlreadyClaimed, packetID, claimantID)
	}

	if packet.HasMine() {
		claimant, err := uow.Accounts().GetByDiscordID(ctx, claimantID)
		if err != nil {
			return nil, err
		}
		var balance int64
		if claimant != nil {
			balance = claimant.Balance
		}
		if balance < s.cfg.MineMinBalance {
			return nil, fmt.Errorf("%w: balance %d below %d", ErrRiskGateBlocked, balance, s.cfg.MineMinBalance)
		}
	}

	amount := s.draw(packet.RemainingAmount, packet.RemainingCount)

	digit := int16((amount / 100) % 10)
	boom := packet.HasMine() && digit == *packet.MineDigit

	packet.RemainingAmount -= amount
	packet.RemainingCount--
	if packet.RemainingCount == 0 {
		packet.Status = models.PacketStatusFinished
	}
	if err := uow.Packets().Update(ctx, packet); err != nil {
		return nil, err
	}

	if err := uow.Packets().AddClaim(ctx, &models.PacketClaim{
		PacketID:  packetID,
		DiscordID: claimantID,
		Username:  claimantName,
		Amount:    amount,
		Boom:      boom,
	}); err != nil {
		return nil, err
	}

	newBalance, err := AdjustBalance(ctx, uow, claimantID, amount, models.EntryKindPacketClaim, "packet "+packetID)
	if err != nil {
		return nil, err
	}

	var collected int64
	if boom {
		collected, newBalance, err = s.settlePenalty(ctx, uow, packet, claimantID, newBalance)
		if err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.PacketClaimedEvent{
		PacketID:  packetID,
		SenderID:  packet.SenderID,
		DiscordID: claimantID,
		Amount:    amount,
		Boom:      boom,
		Penalty:   collected,
		Finished:  packet.RemainingCount == 0,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.ClaimResult{
		Packet:     packet,
		Amount:     amount,
		Digit:      digit,
		Boom:       boom,
		Penalty:    collected,
		NewBalance: newBalance,
	}, nil
}

// settlePenalty moves the mine penalty from the claimant to the sender. The
// transfer is zero-sum: the sender is credited exactly what the claimant
// paid. A claimant who cannot cover the penalty keeps the claim and pays
// nothing; partial collection would leave the two sides unequal.
func (s *packetService) settlePenalty(ctx context.Context, uow UnitOfWork, packet *models.Packet, claimantID int64, balance int64) (int64, int64, error) {
	penalty := int64(s.cfg.MinePenaltyRate * float64(packet.TotalAmount))

	newBalance, err := AdjustBalance(ctx, uow, claimantID, -penalty, models.EntryKindMinePenalty, "mine hit on packet "+packet.ID)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			log.WithFields(log.Fields{
				"packetID": packet.ID,
				"claimant": claimantID,
				"penalty":  penalty,
				"balance":  balance,
			}).Warn("Mine penalty not collectible")
			return 0, balance, nil
		}
		return 0, 0, err
	}

	if _, err := AdjustBalance(ctx, uow, packet.SenderID, penalty, models.EntryKindMineIncome, "mine hit on packet "+packet.ID); err != nil {
		return 0, 0, err
	}
	return penalty, newBalance, nil
}

// GetPacket retrieves a packet together with its claims
func (s *packetService) GetPacket(ctx context.Context, packetID string) (*models.Packet, []*models.PacketClaim, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	packet, err := uow.Packets().GetByID(ctx, packetID)
	if err != nil {
		return nil, nil, err
	}
	if packet == nil {
		return nil, nil, fmt.Errorf("%w: packet %s", ErrNotFound, packetID)
	}

	claims, err := uow.Packets().GetClaims(ctx, packetID)
	if err != nil {
		return nil, nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return packet, claims, nil
}

// RefundExpired returns the unclaimed remainder of every active packet older
// than the cutoff to its sender. Each packet settles in its own transaction
// so one failure does not hold the rest hostage.
func (s *packetService) RefundExpired(ctx context.Context, cutoff time.Time) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	expired, err := uow.Packets().GetExpiredActive(ctx, cutoff)
	uow.Rollback()
	if err != nil {
		return 0, err
	}

	refunded := 0
	for _, packet := range expired {
		if err := s.refundOne(ctx, packet.ID, cutoff); err != nil {
			log.WithError(err).WithField("packetID", packet.ID).Error("Failed to refund expired packet")
			continue
		}
		refunded++
	}
	return refunded, nil
}

func (s *packetService) refundOne(ctx context.Context, packetID string, cutoff time.Time) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	packet, err := uow.Packets().GetForUpdate(ctx, packetID)
	if err != nil {
		return err
	}
	// Re-check under the lock; a claim may have finished it in the meantime
	if packet == nil || !packet.IsActive() || !packet.CreatedAt.Before(cutoff) {
		return nil
	}

	if packet.RemainingAmount > 0 {
		if _, err := AdjustBalance(ctx, uow, packet.SenderID, packet.RemainingAmount, models.EntryKindRefund, "expired packet "+packet.ID); err != nil {
			return err
		}
	}

	packet.Status = models.PacketStatusRefunded
	if err := uow.Packets().Update(ctx, packet); err != nil {
		return err
	}

	uow.EventBus().Publish(events.PacketRefundedEvent{
		PacketID: packet.ID,
		SenderID: packet.SenderID,
		Amount:   packet.RemainingAmount,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"packetID": packet.ID,
		"senderID": packet.SenderID,
		"amount":   packet.RemainingAmount,
	}).Info("Refunded expired packet")
	return nil
}
