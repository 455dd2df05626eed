package service

import (
	"context"
	"time"

	"luckybot/events"
	"luckybot/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, discordID int64) (*models.Account, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, discordID int64, username string, initialBalance int64) (*models.Account, error) {
	args := m.Called(ctx, discordID, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, discordID int64, newBalance int64) error {
	args := m.Called(ctx, discordID, newBalance)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateUsername(ctx context.Context, discordID int64, username string) error {
	args := m.Called(ctx, discordID, username)
	return args.Error(0)
}

func (m *MockAccountRepository) SetWalletAddress(ctx context.Context, discordID int64, address string) error {
	args := m.Called(ctx, discordID, address)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Record(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByAccount(ctx context.Context, discordID int64, limit int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) SumByAccount(ctx context.Context, discordID int64) (int64, error) {
	args := m.Called(ctx, discordID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) GetStats(ctx context.Context, discordID int64) (*models.AccountStats, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountStats), args.Error(1)
}

// MockDepositRepository is a mock implementation of DepositRepository
type MockDepositRepository struct {
	mock.Mock
}

func (m *MockDepositRepository) Create(ctx context.Context, order *models.DepositOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockDepositRepository) GetByID(ctx context.Context, id int64) (*models.DepositOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositOrder), args.Error(1)
}

func (m *MockDepositRepository) GetByTxHash(ctx context.Context, txHash string) (*models.DepositOrder, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositOrder), args.Error(1)
}

func (m *MockDepositRepository) FindPendingByPayAmount(ctx context.Context, payAmount int64) (*models.DepositOrder, error) {
	args := m.Called(ctx, payAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DepositOrder), args.Error(1)
}

func (m *MockDepositRepository) Complete(ctx context.Context, id int64, txHash *string) (bool, error) {
	args := m.Called(ctx, id, txHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockDepositRepository) Reject(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDepositRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDepositRepository) GetRecent(ctx context.Context, limit int) ([]*models.DepositOrder, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DepositOrder), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) Settle(ctx context.Context, id int64, status models.WithdrawalStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockWithdrawalRepository) GetRecent(ctx context.Context, limit int) ([]*models.WithdrawalRequest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WithdrawalRequest), args.Error(1)
}

// MockPacketRepository is a mock implementation of PacketRepository
type MockPacketRepository struct {
	mock.Mock
}

func (m *MockPacketRepository) Create(ctx context.Context, packet *models.Packet) error {
	args := m.Called(ctx, packet)
	return args.Error(0)
}

func (m *MockPacketRepository) GetByID(ctx context.Context, id string) (*models.Packet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Packet), args.Error(1)
}

func (m *MockPacketRepository) GetForUpdate(ctx context.Context, id string) (*models.Packet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Packet), args.Error(1)
}

func (m *MockPacketRepository) Update(ctx context.Context, packet *models.Packet) error {
	args := m.Called(ctx, packet)
	return args.Error(0)
}

func (m *MockPacketRepository) AddClaim(ctx context.Context, claim *models.PacketClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockPacketRepository) HasClaimed(ctx context.Context, packetID string, discordID int64) (bool, error) {
	args := m.Called(ctx, packetID, discordID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPacketRepository) GetClaims(ctx context.Context, packetID string) ([]*models.PacketClaim, error) {
	args := m.Called(ctx, packetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PacketClaim), args.Error(1)
}

func (m *MockPacketRepository) GetExpiredActive(ctx context.Context, cutoff time.Time) ([]*models.Packet, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Packet), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Begin, Commit and
// Rollback are regular testify expectations; the repository getters hand out
// whatever SetRepositories installed.
type MockUnitOfWork struct {
	mock.Mock
	accountRepo    AccountRepository
	ledgerRepo     LedgerRepository
	depositRepo    DepositRepository
	withdrawalRepo WithdrawalRepository
	packetRepo     PacketRepository
	eventBus       EventPublisher
}

// SetRepositories installs the repositories handed out by the getters
func (m *MockUnitOfWork) SetRepositories(
	accounts AccountRepository,
	ledger LedgerRepository,
	deposits DepositRepository,
	withdrawals WithdrawalRepository,
	packets PacketRepository,
	eventBus EventPublisher,
) {
	m.accountRepo = accounts
	m.ledgerRepo = ledger
	m.depositRepo = deposits
	m.withdrawalRepo = withdrawals
	m.packetRepo = packets
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Accounts() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) Ledger() LedgerRepository {
	return m.ledgerRepo
}

func (m *MockUnitOfWork) Deposits() DepositRepository {
	return m.depositRepo
}

func (m *MockUnitOfWork) Withdrawals() WithdrawalRepository {
	return m.withdrawalRepo
}

func (m *MockUnitOfWork) Packets() PacketRepository {
	return m.packetRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockTransferSource is a mock implementation of TransferSource
type MockTransferSource struct {
	mock.Mock
}

func (m *MockTransferSource) Fetch(ctx context.Context) ([]Transfer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transfer), args.Error(1)
}
