package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"luckybot/config"
	"luckybot/events"
	"luckybot/models"

	log "github.com/sirupsen/logrus"
)

type depositService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewDepositService creates a new deposit service
func NewDepositService(uowFactory UnitOfWorkFactory, cfg *config.Config) DepositService {
	return &depositService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// CreateOrder creates a pending deposit order. The pay amount is the nominal
// amount plus a small random offset so that concurrent depositors can be told
// apart by the exact transfer value. The account is credited the nominal
// amount on reconciliation; the offset is kept by the house.
func (s *depositService) CreateOrder(ctx context.Context, discordID int64, amount int64) (*models.DepositOrder, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidState)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The order row references the account, so make sure it exists
	if _, err := ensureAccountLocked(ctx, uow, discordID); err != nil {
		return nil, err
	}

	offset := s.cfg.DepositOffsetMin + rand.Int63n(s.cfg.DepositOffsetMax-s.cfg.DepositOffsetMin+1)
	order := &models.DepositOrder{
		DiscordID: discordID,
		Amount:    amount,
		PayAmount: amount + offset,
	}
	if err := uow.Deposits().Create(ctx, order); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"orderID":   order.ID,
		"discordID": discordID,
		"amount":    amount,
		"payAmount": order.PayAmount,
	}).Info("Deposit order created")
	return order, nil
}

// Reconcile matches observed transfers against pending orders. Each transfer
// settles in its own transaction; a duplicate or unmatched transfer is skipped
// without disturbing the others, so replaying the same feed page is harmless.
func (s *depositService) Reconcile(ctx context.Context, transfers []Transfer) error {
	for _, transfer := range transfers {
		if transfer.To != s.cfg.CollectionAddress {
			continue
		}
		if err := s.reconcileOne(ctx, transfer); err != nil {
			log.WithError(err).WithField("txID", transfer.TxID).Error("Failed to reconcile transfer")
		}
	}
	return nil
}

func (s *depositService) reconcileOne(ctx context.Context, transfer Transfer) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	seen, err := uow.Deposits().GetByTxHash(ctx, transfer.TxID)
	if err != nil {
		return err
	}
	if seen != nil {
		return nil
	}

	order, err := uow.Deposits().FindPendingByPayAmount(ctx, transfer.Amount)
	if err != nil {
		return err
	}
	if order == nil {
		// No matching order; leave the transfer for a manual sweep
		return nil
	}

	txID := transfer.TxID
	done, err := uow.Deposits().Complete(ctx, order.ID, &txID)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}

	if _, err := AdjustBalance(ctx, uow, order.DiscordID, order.Amount, models.EntryKindDeposit, "deposit order "+fmt.Sprint(order.ID)); err != nil {
		return err
	}

	uow.EventBus().Publish(events.DepositConfirmedEvent{
		OrderID:   order.ID,
		DiscordID: order.DiscordID,
		Amount:    order.Amount,
		TxHash:    transfer.TxID,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"orderID":   order.ID,
		"discordID": order.DiscordID,
		"amount":    order.Amount,
		"txID":      transfer.TxID,
	}).Info("Deposit reconciled")
	return nil
}

// Approve manually completes a pending order and credits the nominal amount,
// used when a transfer arrived with the wrong value and an operator matched
// it by hand.
func (s *depositService) Approve(ctx context.Context, orderID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	order, err := uow.Deposits().GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: deposit order %d", ErrNotFound, orderID)
	}

	done, err := uow.Deposits().Complete(ctx, orderID, nil)
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("%w: deposit order %d is %s", ErrInvalidState, orderID, order.Status)
	}

	if _, err := AdjustBalance(ctx, uow, order.DiscordID, order.Amount, models.EntryKindDeposit, fmt.Sprintf("deposit order %d (manual)", orderID)); err != nil {
		return err
	}

	uow.EventBus().Publish(events.DepositConfirmedEvent{
		OrderID:   order.ID,
		DiscordID: order.DiscordID,
		Amount:    order.Amount,
	})

	return uow.Commit()
}

// RejectOrder rejects a pending order. No funds moved yet, so there is
// nothing to reverse.
func (s *depositService) RejectOrder(ctx context.Context, orderID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	order, err := uow.Deposits().GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: deposit order %d", ErrNotFound, orderID)
	}

	done, err := uow.Deposits().Reject(ctx, orderID)
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("%w: deposit order %d is %s", ErrInvalidState, orderID, order.Status)
	}

	return uow.Commit()
}

// ExpireStale expires pending orders created before the cutoff so their pay
// amounts can be reissued
func (s *depositService) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	expired, err := uow.Deposits().ExpirePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if expired > 0 {
		log.WithField("count", expired).Info("Expired stale deposit orders")
	}
	return expired, nil
}

// GetRecent returns the most recent deposit orders for the admin console
func (s *depositService) GetRecent(ctx context.Context, limit int) ([]*models.DepositOrder, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	orders, err := uow.Deposits().GetRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return orders, nil
}
