package service

import (
	"context"
	"fmt"

	"luckybot/config"
	"luckybot/events"
	"luckybot/models"

	log "github.com/sirupsen/logrus"
)

type withdrawalService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(uowFactory UnitOfWorkFactory, cfg *config.Config) WithdrawalService {
	return &withdrawalService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// Request freezes the requested amount and creates a pending withdrawal. The
// freeze is the debit; approval later moves nothing, it only confirms the
// operator paid out on chain.
func (s *withdrawalService) Request(ctx context.Context, discordID int64, amount int64, walletAddress string) (*models.WithdrawalRequest, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", ErrInvalidState)
	}
	if walletAddress == "" {
		return nil, fmt.Errorf("%w: no wallet address bound", ErrInvalidState)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := AdjustBalance(ctx, uow, discordID, -amount, models.EntryKindWithdrawFreeze, "withdrawal request"); err != nil {
		return nil, err
	}

	request := &models.WithdrawalRequest{
		DiscordID:     discordID,
		Amount:        amount,
		WalletAddress: walletAddress,
	}
	if err := uow.Withdrawals().Create(ctx, request); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.WithdrawalRequestedEvent{
		RequestID:     request.ID,
		DiscordID:     discordID,
		Amount:        amount,
		WalletAddress: walletAddress,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"requestID": request.ID,
		"discordID": discordID,
		"amount":    amount,
	}).Info("Withdrawal requested")
	return request, nil
}

// Approve finalizes a pending request. The amount was already debited at
// request time, so approval is a pure state transition.
func (s *withdrawalService) Approve(ctx context.Context, requestID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.Withdrawals().GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return fmt.Errorf("%w: withdrawal request %d", ErrNotFound, requestID)
	}

	done, err := uow.Withdrawals().Settle(ctx, requestID, models.WithdrawalStatusApproved)
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("%w: withdrawal request %d is %s", ErrInvalidState, requestID, request.Status)
	}

	uow.EventBus().Publish(events.WithdrawalSettledEvent{
		RequestID: requestID,
		DiscordID: request.DiscordID,
		Amount:    request.Amount,
		Approved:  true,
	})

	return uow.Commit()
}

// Reject declines a pending request. The frozen amount is returned to the
// account only when refunds are enabled; some deployments keep the freeze as
// a manual follow-up instead.
func (s *withdrawalService) Reject(ctx context.Context, requestID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	request, err := uow.Withdrawals().GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return fmt.Errorf("%w: withdrawal request %d", ErrNotFound, requestID)
	}

	done, err := uow.Withdrawals().Settle(ctx, requestID, models.WithdrawalStatusRejected)
	if err != nil {
		return err
	}
	if !done {
		return fmt.Errorf("%w: withdrawal request %d is %s", ErrInvalidState, requestID, request.Status)
	}

	refunded := false
	if s.cfg.RefundRejectedWithdrawals {
		if _, err := AdjustBalance(ctx, uow, request.DiscordID, request.Amount, models.EntryKindRefund, fmt.Sprintf("rejected withdrawal %d", requestID)); err != nil {
			return err
		}
		refunded = true
	}

	uow.EventBus().Publish(events.WithdrawalSettledEvent{
		RequestID: requestID,
		DiscordID: request.DiscordID,
		Amount:    request.Amount,
		Approved:  false,
		Refunded:  refunded,
	})

	return uow.Commit()
}

// GetRecent returns the most recent withdrawal requests for the admin console
func (s *withdrawalService) GetRecent(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	requests, err := uow.Withdrawals().GetRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return requests, nil
}
