package service

import (
	"context"
	"time"

	"luckybot/events"
	"luckybot/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByDiscordID retrieves an account by its Discord ID, nil if missing
	GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error)

	// GetForUpdate retrieves an account holding its row lock for the
	// duration of the surrounding transaction
	GetForUpdate(ctx context.Context, discordID int64) (*models.Account, error)

	// Create creates a new account with the given initial balance
	Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.Account, error)

	// UpdateBalance sets an account's balance; callers hold the row lock
	UpdateBalance(ctx context.Context, discordID int64, newBalance int64) error

	// UpdateUsername refreshes the cached Discord username
	UpdateUsername(ctx context.Context, discordID int64, username string) error

	// SetWalletAddress binds a payout wallet address to an account
	SetWalletAddress(ctx context.Context, discordID int64, address string) error

	// GetAll returns all accounts
	GetAll(ctx context.Context) ([]*models.Account, error)
}

// LedgerRepository defines the interface for the append-only ledger
type LedgerRepository interface {
	// Record appends a new ledger entry
	Record(ctx context.Context, entry *models.LedgerEntry) error

	// GetByAccount returns the most recent entries for an account
	GetByAccount(ctx context.Context, discordID int64, limit int) ([]*models.LedgerEntry, error)

	// SumByAccount returns the sum of all entry amounts for an account
	SumByAccount(ctx context.Context, discordID int64) (int64, error)

	// GetStats aggregates packet activity for an account
	GetStats(ctx context.Context, discordID int64) (*models.AccountStats, error)
}

// DepositRepository defines the interface for deposit order data access
type DepositRepository interface {
	// Create persists a new pending deposit order
	Create(ctx context.Context, order *models.DepositOrder) error

	// GetByID retrieves a deposit order by its ID, nil if missing
	GetByID(ctx context.Context, id int64) (*models.DepositOrder, error)

	// GetByTxHash retrieves a deposit order by its external transaction reference
	GetByTxHash(ctx context.Context, txHash string) (*models.DepositOrder, error)

	// FindPendingByPayAmount locks and returns the newest pending order with
	// an exactly matching disambiguated amount
	FindPendingByPayAmount(ctx context.Context, payAmount int64) (*models.DepositOrder, error)

	// Complete marks a pending order completed; false when not pending
	Complete(ctx context.Context, id int64, txHash *string) (bool, error)

	// Reject marks a pending order rejected; false when not pending
	Reject(ctx context.Context, id int64) (bool, error)

	// ExpirePending expires pending orders created before the cutoff
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)

	// GetRecent returns the most recent orders for the admin console
	GetRecent(ctx context.Context, limit int) ([]*models.DepositOrder, error)
}

// WithdrawalRepository defines the interface for withdrawal request data access
type WithdrawalRepository interface {
	// Create persists a new pending withdrawal request
	Create(ctx context.Context, request *models.WithdrawalRequest) error

	// GetByID retrieves a withdrawal request by its ID, nil if missing
	GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error)

	// Settle transitions a pending request to a terminal status; false when
	// the request is not pending
	Settle(ctx context.Context, id int64, status models.WithdrawalStatus) (bool, error)

	// GetRecent returns the most recent requests for the admin console
	GetRecent(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error)
}

// PacketRepository defines the interface for packet data access
type PacketRepository interface {
	// Create persists a new active packet
	Create(ctx context.Context, packet *models.Packet) error

	// GetByID retrieves a packet by its ID, nil if missing
	GetByID(ctx context.Context, id string) (*models.Packet, error)

	// GetForUpdate retrieves a packet holding its row lock, serializing
	// concurrent claims
	GetForUpdate(ctx context.Context, id string) (*models.Packet, error)

	// Update persists remaining amount, remaining count and status
	Update(ctx context.Context, packet *models.Packet) error

	// AddClaim records a claim
	AddClaim(ctx context.Context, claim *models.PacketClaim) error

	// HasClaimed checks whether an account already claimed from a packet
	HasClaimed(ctx context.Context, packetID string, discordID int64) (bool, error)

	// GetClaims returns all claims for a packet in claim order
	GetClaims(ctx context.Context, packetID string) ([]*models.PacketClaim, error)

	// GetExpiredActive returns active packets created before the cutoff
	GetExpiredActive(ctx context.Context, cutoff time.Time) ([]*models.Packet, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	Accounts() AccountRepository
	Ledger() LedgerRepository
	Deposits() DepositRepository
	Withdrawals() WithdrawalRepository
	Packets() PacketRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// AccountService defines the interface for account operations
type AccountService interface {
	// GetOrCreateAccount retrieves an account or creates it with the signup bonus
	GetOrCreateAccount(ctx context.Context, discordID int64, username string) (*models.Account, error)

	// GetAccount retrieves an account, nil if missing
	GetAccount(ctx context.Context, discordID int64) (*models.Account, error)

	// ListAccounts returns all accounts
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	// SetWalletAddress binds a payout wallet address to an account
	SetWalletAddress(ctx context.Context, discordID int64, address string) error

	// Adjust atomically applies a balance change with its ledger entry and
	// returns the new balance. The only sanctioned way to move money.
	Adjust(ctx context.Context, discordID int64, delta int64, kind models.EntryKind, note string) (int64, error)

	// GetLedger returns the most recent ledger entries for an account
	GetLedger(ctx context.Context, discordID int64, limit int) ([]*models.LedgerEntry, error)

	// GetStats aggregates packet activity for an account
	GetStats(ctx context.Context, discordID int64) (*models.AccountStats, error)

	// CheckConservation verifies the ledger sums to the current balance
	CheckConservation(ctx context.Context, discordID int64) (bool, error)
}

// PacketService defines the interface for lucky-money packet operations
type PacketService interface {
	// Create escrows the sender's funds and opens a new packet
	Create(ctx context.Context, senderID int64, senderName string, totalAmount int64, count int, mineDigit *int16) (*models.Packet, error)

	// Claim executes one randomized claim against a packet
	Claim(ctx context.Context, packetID string, claimantID int64, claimantName string) (*models.ClaimResult, error)

	// GetPacket retrieves a packet with its claims
	GetPacket(ctx context.Context, packetID string) (*models.Packet, []*models.PacketClaim, error)

	// RefundExpired returns unclaimed remainders of packets older than the cutoff
	RefundExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// DepositService defines the interface for deposit reconciliation
type DepositService interface {
	// CreateOrder creates a pending deposit order with a disambiguated amount
	CreateOrder(ctx context.Context, discordID int64, amount int64) (*models.DepositOrder, error)

	// Reconcile matches externally observed transfers to pending orders
	Reconcile(ctx context.Context, transfers []Transfer) error

	// Approve manually completes a pending order and credits the owner
	Approve(ctx context.Context, orderID int64) error

	// RejectOrder rejects a pending order without balance effect
	RejectOrder(ctx context.Context, orderID int64) error

	// ExpireStale expires pending orders created before the cutoff
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)

	// GetRecent returns the most recent orders for the admin console
	GetRecent(ctx context.Context, limit int) ([]*models.DepositOrder, error)
}

// WithdrawalService defines the interface for withdrawal settlement
type WithdrawalService interface {
	// Request freezes the amount and creates a pending withdrawal request
	Request(ctx context.Context, discordID int64, amount int64, walletAddress string) (*models.WithdrawalRequest, error)

	// Approve finalizes a pending request; the funds were frozen at request time
	Approve(ctx context.Context, requestID int64) error

	// Reject declines a pending request, optionally refunding the frozen amount
	Reject(ctx context.Context, requestID int64) error

	// GetRecent returns the most recent requests for the admin console
	GetRecent(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error)
}

// Transfer is one confirmed external transfer observed on the collection
// address. The feed client produces these; the deposit reconciler consumes
// them and must tolerate duplicates and out-of-order delivery.
type Transfer struct {
	TxID   string
	To     string
	Amount int64
}

// TransferSource supplies confirmed transfers for the collection address
type TransferSource interface {
	Fetch(ctx context.Context) ([]Transfer, error)
}
