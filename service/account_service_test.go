package service

import (
	"context"
	"testing"

	"luckybot/events"
	"luckybot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newAccountServiceMocks() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockAccountRepository, *MockLedgerRepository, *MockEventPublisher) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockLedgerRepo := new(MockLedgerRepository)
	mockPublisher := new(MockEventPublisher)

	mockUoW.SetRepositories(mockAccountRepo, mockLedgerRepo, nil, nil, nil, mockPublisher)
	return mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPublisher
}

func TestAccountService_GetOrCreateAccount_Existing(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, _ := newAccountServiceMocks()

	svc := NewAccountService(mockFactory, testConfig())

	existing := &models.Account{DiscordID: 222, Username: "olduser", Balance: 4000000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByDiscordID", ctx, int64(222)).Return(existing, nil)
	mockAccountRepo.On("UpdateUsername", ctx, int64(222), "newuser").Return(nil)

	account, err := svc.GetOrCreateAccount(ctx, 222, "newuser")

	assert.NoError(t, err)
	assert.Equal(t, "newuser", account.Username)
	assert.Equal(t, int64(4000000), account.Balance)

	mockAccountRepo.AssertExpectations(t)
	mockLedgerRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestAccountService_GetOrCreateAccount_NewGetsSignupBonus(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPublisher := newAccountServiceMocks()

	svc := NewAccountService(mockFactory, testConfig())

	created := &models.Account{DiscordID: 222, Username: "newuser", Balance: 0}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByDiscordID", ctx, int64(222)).Return(nil, nil)
	mockAccountRepo.On("Create", ctx, int64(222), "newuser", int64(0)).Return(created, nil)
	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(created, nil)
	mockAccountRepo.On("UpdateBalance", ctx, int64(222), int64(500000)).Return(nil)

	mockLedgerRepo.On("Record", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.DiscordID == 222 && e.Amount == 500000 && e.Kind == models.EntryKindSignupBonus
	})).Return(nil)

	mockPublisher.On("Publish", mock.Anything).Return()

	account, err := svc.GetOrCreateAccount(ctx, 222, "newuser")

	assert.NoError(t, err)
	assert.Equal(t, int64(500000), account.Balance)

	mockAccountRepo.AssertExpectations(t)
	mockLedgerRepo.AssertExpectations(t)
	mockPublisher.AssertCalled(t, "Publish", mock.MatchedBy(func(e events.Event) bool {
		createdEvent, ok := e.(events.AccountCreatedEvent)
		return ok && createdEvent.DiscordID == 222 && createdEvent.SignupBonus == 500000
	}))
}

func TestAccountService_Adjust_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, _ := newAccountServiceMocks()

	svc := NewAccountService(mockFactory, testConfig())

	account := &models.Account{DiscordID: 222, Balance: 100}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(account, nil)

	newBalance, err := svc.Adjust(ctx, 222, -5000, models.EntryKindAdminAdjust, "correction")

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(0), newBalance)
	mockUoW.AssertNotCalled(t, "Commit")
	mockAccountRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	mockLedgerRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestAccountService_Adjust_CreatesMissingAccount(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPublisher := newAccountServiceMocks()

	svc := NewAccountService(mockFactory, testConfig())

	created := &models.Account{DiscordID: 222, Balance: 0}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(nil, nil)
	mockAccountRepo.On("Create", ctx, int64(222), "", int64(0)).Return(created, nil)
	mockAccountRepo.On("UpdateBalance", ctx, int64(222), int64(7000)).Return(nil)
	mockLedgerRepo.On("Record", ctx, mock.Anything).Return(nil)
	mockPublisher.On("Publish", mock.Anything).Return()

	newBalance, err := svc.Adjust(ctx, 222, 7000, models.EntryKindAdminAdjust, "correction")

	assert.NoError(t, err)
	assert.Equal(t, int64(7000), newBalance)
	mockAccountRepo.AssertExpectations(t)
}

func TestAccountService_SetWalletAddress_RejectsMalformed(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _ := newAccountServiceMocks()

	svc := NewAccountService(mockFactory, testConfig())

	err := svc.SetWalletAddress(ctx, 222, "not-an-address")

	assert.ErrorIs(t, err, ErrInvalidState)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestAccountService_CheckConservation_DetectsDrift(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, _ := newAccountServiceMocks()

	svc := NewAccountService(mockFactory, testConfig())

	account := &models.Account{DiscordID: 222, Balance: 4000000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByDiscordID", ctx, int64(222)).Return(account, nil)
	mockLedgerRepo.On("SumByAccount", ctx, int64(222)).Return(int64(3999999), nil)

	ok, err := svc.CheckConservation(ctx, 222)

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAccountService_CheckConservation_Balanced(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, _ := newAccountServiceMocks()

	svc := NewAccountService(mockFactory, testConfig())

	account := &models.Account{DiscordID: 222, Balance: 4000000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetByDiscordID", ctx, int64(222)).Return(account, nil)
	mockLedgerRepo.On("SumByAccount", ctx, int64(222)).Return(int64(4000000), nil)

	ok, err := svc.CheckConservation(ctx, 222)

	assert.NoError(t, err)
	assert.True(t, ok)
}
