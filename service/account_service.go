package service

import (
	"context"
	"fmt"
	"strings"

	"luckybot/config"
	"luckybot/events"
	"luckybot/models"

	log "github.com/sirupsen/logrus"
)

type accountService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, cfg *config.Config) AccountService {
	return &accountService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// GetOrCreateAccount retrieves an account by Discord ID, creating it with the
// signup bonus on first contact. The cached username is refreshed when it
// changed on the Discord side.
func (s *accountService) GetOrCreateAccount(ctx context.Context, discordID int64, username string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.Accounts().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", discordID, err)
	}

	if account == nil {
		account, err = uow.Accounts().Create(ctx, discordID, username, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create account %d: %w", discordID, err)
		}

		if s.cfg.SignupBonus > 0 {
			newBalance, err := AdjustBalance(ctx, uow, discordID, s.cfg.SignupBonus, models.EntryKindSignupBonus, "signup bonus")
			if err != nil {
				return nil, err
			}
			account.Balance = newBalance
		}

		uow.EventBus().Publish(events.AccountCreatedEvent{
			DiscordID:   discordID,
			Username:    username,
			SignupBonus: s.cfg.SignupBonus,
		})

		log.WithFields(log.Fields{
			"discordID": discordID,
			"username":  username,
		}).Info("Created new account")
	} else if username != "" && account.Username != username {
		if err := uow.Accounts().UpdateUsername(ctx, discordID, username); err != nil {
			return nil, fmt.Errorf("failed to update username for account %d: %w", discordID, err)
		}
		account.Username = username
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// GetAccount retrieves an account by Discord ID, nil if missing
func (s *accountService) GetAccount(ctx context.Context, discordID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.Accounts().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", discordID, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// ListAccounts returns all accounts for the admin console
func (s *accountService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	accounts, err := uow.Accounts().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return accounts, nil
}

// SetWalletAddress binds a payout wallet address to an account. Addresses are
// TRC20 base58: 34 characters starting with T.
func (s *accountService) SetWalletAddress(ctx context.Context, discordID int64, address string) error {
	if len(address) != 34 || !strings.HasPrefix(address, "T") {
		return fmt.Errorf("%w: malformed wallet address", ErrInvalidState)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.Accounts().GetByDiscordID(ctx, discordID)
	if err != nil {
		return fmt.Errorf("failed to get account %d: %w", discordID, err)
	}
	if account == nil {
		return fmt.Errorf("%w: account %d", ErrNotFound, discordID)
	}

	if err := uow.Accounts().SetWalletAddress(ctx, discordID, address); err != nil {
		return fmt.Errorf("failed to set wallet address for account %d: %w", discordID, err)
	}

	return uow.Commit()
}

// Adjust applies a standalone balance change, used by admin corrections
func (s *accountService) Adjust(ctx context.Context, discordID int64, delta int64, kind models.EntryKind, note string) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	newBalance, err := AdjustBalance(ctx, uow, discordID, delta, kind, note)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return newBalance, nil
}

// GetLedger returns the most recent ledger entries for an account
func (s *accountService) GetLedger(ctx context.Context, discordID int64, limit int) ([]*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.Ledger().GetByAccount(ctx, discordID, limit)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entries, nil
}

// GetStats aggregates packet activity for an account
func (s *accountService) GetStats(ctx context.Context, discordID int64) (*models.AccountStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	stats, err := uow.Ledger().GetStats(ctx, discordID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stats, nil
}

// CheckConservation verifies that the ledger entries for an account sum to
// its current balance. Reads both under one snapshot.
func (s *accountService) CheckConservation(ctx context.Context, discordID int64) (bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.Accounts().GetByDiscordID(ctx, discordID)
	if err != nil {
		return false, fmt.Errorf("failed to get account %d: %w", discordID, err)
	}
	if account == nil {
		return false, fmt.Errorf("%w: account %d", ErrNotFound, discordID)
	}

	sum, err := uow.Ledger().SumByAccount(ctx, discordID)
	if err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if sum != account.Balance {
		log.WithFields(log.Fields{
			"discordID": discordID,
			"balance":   account.Balance,
			"ledgerSum": sum,
		}).Error("Ledger drift detected")
		return false, nil
	}
	return true, nil
}
