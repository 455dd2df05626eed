package service

import (
	"context"
	"testing"
	"time"

	"luckybot/config"
	"luckybot/events"
	"luckybot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		CollectionAddress:         "TCollect1111111111111111111111111",
		SignupBonus:               500000,
		MinPacketAmount:           100000,
		PacketFeePercent:          5,
		MineMinBalance:            5000000,
		MinePenaltyRate:           1.5,
		DepositOffsetMin:          100,
		DepositOffsetMax:          5000,
		RefundRejectedWithdrawals: false,
		Environment:               "test",
	}
}

func newPacketServiceMocks() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockAccountRepository, *MockLedgerRepository, *MockPacketRepository, *MockEventPublisher) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockAccountRepo := new(MockAccountRepository)
	mockLedgerRepo := new(MockLedgerRepository)
	mockPacketRepo := new(MockPacketRepository)
	mockPublisher := new(MockEventPublisher)

	mockUoW.SetRepositories(mockAccountRepo, mockLedgerRepo, nil, nil, mockPacketRepo, mockPublisher)
	return mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPacketRepo, mockPublisher
}

func TestPacketService_Create_Success(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPacketRepo, mockPublisher := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	sender := &models.Account{DiscordID: 111, Username: "sender", Balance: 10000000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(111)).Return(sender, nil)
	mockAccountRepo.On("UpdateBalance", ctx, int64(111), int64(9000000)).Return(nil)

	mockLedgerRepo.On("Record", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.DiscordID == 111 && e.Amount == -1000000 && e.Kind == models.EntryKindPacketSend
	})).Return(nil)

	// 5% fee: 1,000,000 escrowed, 950,000 distributable
	mockPacketRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Packet) bool {
		return p.SenderID == 111 &&
			p.TotalAmount == 950000 &&
			p.RemainingAmount == 950000 &&
			p.TotalCount == 5 &&
			p.RemainingCount == 5 &&
			p.Status == models.PacketStatusActive &&
			p.MineDigit == nil &&
			len(p.ID) == 8
	})).Return(nil)

	mockPublisher.On("Publish", mock.Anything).Return()

	packet, err := svc.Create(ctx, 111, "sender", 1000000, 5, nil)

	assert.NoError(t, err)
	assert.NotNil(t, packet)
	assert.Equal(t, int64(950000), packet.TotalAmount)
	assert.Equal(t, 5, packet.RemainingCount)

	mockFactory.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
	mockLedgerRepo.AssertExpectations(t)
	mockPacketRepo.AssertExpectations(t)
}

func TestPacketService_Create_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, _, mockPacketRepo, _ := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	sender := &models.Account{DiscordID: 111, Balance: 500}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(111)).Return(sender, nil)

	packet, err := svc.Create(ctx, 111, "sender", 1000000, 5, nil)

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Nil(t, packet)
	mockUoW.AssertNotCalled(t, "Commit")
	mockPacketRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPacketService_Create_BelowMinimum(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _, _ := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	packet, err := svc.Create(ctx, 111, "sender", 99999, 2, nil)

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, packet)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestPacketService_Create_TooManySlots(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _, _ := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	// 100,000 nets 95,000 distributable; cannot fill 100,000 slots
	packet, err := svc.Create(ctx, 111, "sender", 100000, 100000, nil)

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, packet)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestPacketService_Create_MineNeedsTwoSlots(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _, _ := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	digit := int16(7)
	packet, err := svc.Create(ctx, 111, "sender", 1000000, 1, &digit)

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, packet)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestPacketService_Claim_Success(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPacketRepo, mockPublisher := newPacketServiceMocks()

	svc := &packetService{
		uowFactory: mockFactory,
		cfg:        testConfig(),
		draw:       func(remaining int64, count int) int64 { return 1234 },
	}

	packet := &models.Packet{
		ID:              "abcd1234",
		SenderID:        111,
		TotalAmount:     950000,
		TotalCount:      5,
		RemainingAmount: 950000,
		RemainingCount:  5,
		Status:          models.PacketStatusActive,
	}
	claimant := &models.Account{DiscordID: 222, Balance: 2000000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)
	mockPacketRepo.On("HasClaimed", ctx, "abcd1234", int64(222)).Return(false, nil)
	mockPacketRepo.On("Update", ctx, mock.MatchedBy(func(p *models.Packet) bool {
		return p.RemainingAmount == 948766 &&
			p.RemainingCount == 4 &&
			p.Status == models.PacketStatusActive
	})).Return(nil)
	mockPacketRepo.On("AddClaim", ctx, mock.MatchedBy(func(c *models.PacketClaim) bool {
		return c.PacketID == "abcd1234" && c.DiscordID == 222 && c.Username == "claimant" &&
			c.Amount == 1234 && !c.Boom
	})).Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(claimant, nil)
	mockAccountRepo.On("UpdateBalance", ctx, int64(222), int64(2001234)).Return(nil)

	mockLedgerRepo.On("Record", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.DiscordID == 222 && e.Amount == 1234 && e.Kind == models.EntryKindPacketClaim
	})).Return(nil)

	mockPublisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
		claimed, ok := e.(events.PacketClaimedEvent)
		return !ok || (claimed.Amount == 1234 && !claimed.Boom && !claimed.Finished)
	})).Return()

	result, err := svc.Claim(ctx, "abcd1234", 222, "claimant")

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, int64(1234), result.Amount)
	assert.Equal(t, int16(2), result.Digit)
	assert.False(t, result.Boom)
	assert.Equal(t, int64(2001234), result.NewBalance)

	mockUoW.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
	mockLedgerRepo.AssertExpectations(t)
	mockPacketRepo.AssertExpectations(t)
}

func TestPacketService_Claim_LastSlotTakesRemainder(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPacketRepo, mockPublisher := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	packet := &models.Packet{
		ID:              "abcd1234",
		SenderID:        111,
		TotalAmount:     950000,
		TotalCount:      5,
		RemainingAmount: 123457,
		RemainingCount:  1,
		Status:          models.PacketStatusActive,
	}
	claimant := &models.Account{DiscordID: 222, Balance: 0}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)
	mockPacketRepo.On("HasClaimed", ctx, "abcd1234", int64(222)).Return(false, nil)
	mockPacketRepo.On("Update", ctx, mock.MatchedBy(func(p *models.Packet) bool {
		return p.RemainingAmount == 0 &&
			p.RemainingCount == 0 &&
			p.Status == models.PacketStatusFinished
	})).Return(nil)
	mockPacketRepo.On("AddClaim", ctx, mock.MatchedBy(func(c *models.PacketClaim) bool {
		return c.Amount == 123457
	})).Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(claimant, nil)
	mockAccountRepo.On("UpdateBalance", ctx, int64(222), int64(123457)).Return(nil)
	mockLedgerRepo.On("Record", ctx, mock.Anything).Return(nil)
	mockPublisher.On("Publish", mock.Anything).Return()

	result, err := svc.Claim(ctx, "abcd1234", 222, "claimant")

	assert.NoError(t, err)
	assert.Equal(t, int64(123457), result.Amount)
	assert.Equal(t, models.PacketStatusFinished, result.Packet.Status)

	mockPacketRepo.AssertExpectations(t)
}

func TestPacketService_Claim_AlreadyClaimed(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, _, mockPacketRepo, _ := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	packet := &models.Packet{
		ID:              "abcd1234",
		SenderID:        111,
		RemainingAmount: 500000,
		RemainingCount:  3,
		Status:          models.PacketStatusActive,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)
	mockPacketRepo.On("HasClaimed", ctx, "abcd1234", int64(222)).Return(true, nil)

	result, err := svc.Claim(ctx, "abcd1234", 222, "claimant")

	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Nil(t, result)
	mockUoW.AssertNotCalled(t, "Commit")
	mockAccountRepo.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestPacketService_Claim_OwnPacket(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockPacketRepo, _ := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	packet := &models.Packet{
		ID:              "abcd1234",
		SenderID:        111,
		RemainingAmount: 500000,
		RemainingCount:  3,
		Status:          models.PacketStatusActive,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)

	result, err := svc.Claim(ctx, "abcd1234", 111, "sender")

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, result)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestPacketService_Claim_NotActive(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockPacketRepo, _ := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	packet := &models.Packet{
		ID:     "abcd1234",
		Status: models.PacketStatusFinished,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)

	result, err := svc.Claim(ctx, "abcd1234", 222, "claimant")

	assert.ErrorIs(t, err, ErrPacketNotActive)
	assert.Nil(t, result)
}

func TestPacketService_Claim_MineGateBlocksPoorClaimant(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, _, mockPacketRepo, _ := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	digit := int16(3)
	packet := &models.Packet{
		ID:              "abcd1234",
		SenderID:        111,
		RemainingAmount: 500000,
		RemainingCount:  3,
		Status:          models.PacketStatusActive,
		MineDigit:       &digit,
	}
	claimant := &models.Account{DiscordID: 222, Balance: 1000000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)
	mockPacketRepo.On("HasClaimed", ctx, "abcd1234", int64(222)).Return(false, nil)
	mockAccountRepo.On("GetByDiscordID", ctx, int64(222)).Return(claimant, nil)

	result, err := svc.Claim(ctx, "abcd1234", 222, "claimant")

	assert.ErrorIs(t, err, ErrRiskGateBlocked)
	assert.Nil(t, result)
	mockUoW.AssertNotCalled(t, "Commit")
	mockPacketRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestPacketService_Claim_MineHitCollectsPenalty(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPacketRepo, mockPublisher := newPacketServiceMocks()

	cfg := testConfig()
	svc := &packetService{
		uowFactory: mockFactory,
		cfg:        cfg,
		draw:       func(remaining int64, count int) int64 { return 1300 }, // digit 3
	}

	digit := int16(3)
	packet := &models.Packet{
		ID:              "abcd1234",
		SenderID:        111,
		TotalAmount:     950000,
		TotalCount:      5,
		RemainingAmount: 700000,
		RemainingCount:  3,
		Status:          models.PacketStatusActive,
		MineDigit:       &digit,
	}
	// Penalty is 1.5x the distributable total: 1,425,000
	claimant := &models.Account{DiscordID: 222, Balance: 6000000}
	claimantAfterCredit := &models.Account{DiscordID: 222, Balance: 6001300}
	sender := &models.Account{DiscordID: 111, Balance: 100000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)
	mockPacketRepo.On("HasClaimed", ctx, "abcd1234", int64(222)).Return(false, nil)
	mockPacketRepo.On("Update", ctx, mock.Anything).Return(nil)
	mockPacketRepo.On("AddClaim", ctx, mock.MatchedBy(func(c *models.PacketClaim) bool {
		return c.Amount == 1300 && c.Boom
	})).Return(nil)

	mockAccountRepo.On("GetByDiscordID", ctx, int64(222)).Return(claimant, nil)

	// Claim credit, then penalty debit, then sender income
	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(claimant, nil).Once()
	mockAccountRepo.On("UpdateBalance", ctx, int64(222), int64(6001300)).Return(nil).Once()
	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(claimantAfterCredit, nil).Once()
	mockAccountRepo.On("UpdateBalance", ctx, int64(222), int64(4576300)).Return(nil).Once()
	mockAccountRepo.On("GetForUpdate", ctx, int64(111)).Return(sender, nil).Once()
	mockAccountRepo.On("UpdateBalance", ctx, int64(111), int64(1525000)).Return(nil).Once()

	mockLedgerRepo.On("Record", ctx, mock.Anything).Return(nil).Times(3)
	mockPublisher.On("Publish", mock.Anything).Return()

	result, err := svc.Claim(ctx, "abcd1234", 222, "claimant")

	assert.NoError(t, err)
	assert.True(t, result.Boom)
	assert.Equal(t, int16(3), result.Digit)
	assert.Equal(t, int64(1425000), result.Penalty)
	assert.Equal(t, int64(4576300), result.NewBalance)

	mockAccountRepo.AssertExpectations(t)
	mockLedgerRepo.AssertExpectations(t)
}

func TestPacketService_Claim_MinePenaltyNotCollectible(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPacketRepo, mockPublisher := newPacketServiceMocks()

	cfg := testConfig()
	svc := &packetService{
		uowFactory: mockFactory,
		cfg:        cfg,
		draw:       func(remaining int64, count int) int64 { return 1300 },
	}

	digit := int16(3)
	packet := &models.Packet{
		ID:              "abcd1234",
		SenderID:        111,
		TotalAmount:     9500000, // penalty 14,250,000, more than the claimant holds
		TotalCount:      5,
		RemainingAmount: 7000000,
		RemainingCount:  3,
		Status:          models.PacketStatusActive,
		MineDigit:       &digit,
	}
	claimant := &models.Account{DiscordID: 222, Balance: 6000000}
	claimantAfterCredit := &models.Account{DiscordID: 222, Balance: 6001300}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)
	mockPacketRepo.On("HasClaimed", ctx, "abcd1234", int64(222)).Return(false, nil)
	mockPacketRepo.On("Update", ctx, mock.Anything).Return(nil)
	mockPacketRepo.On("AddClaim", ctx, mock.Anything).Return(nil)

	mockAccountRepo.On("GetByDiscordID", ctx, int64(222)).Return(claimant, nil)
	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(claimant, nil).Once()
	mockAccountRepo.On("UpdateBalance", ctx, int64(222), int64(6001300)).Return(nil).Once()
	// Penalty attempt sees the post-credit balance and fails the funds check
	mockAccountRepo.On("GetForUpdate", ctx, int64(222)).Return(claimantAfterCredit, nil).Once()

	mockLedgerRepo.On("Record", ctx, mock.Anything).Return(nil).Times(1)
	mockPublisher.On("Publish", mock.Anything).Return()

	result, err := svc.Claim(ctx, "abcd1234", 222, "claimant")

	assert.NoError(t, err)
	assert.True(t, result.Boom)
	assert.Equal(t, int64(0), result.Penalty)
	assert.Equal(t, int64(6001300), result.NewBalance)

	// The claim stands; the sender gets nothing
	mockAccountRepo.AssertNotCalled(t, "GetForUpdate", ctx, int64(111))
	mockUoW.AssertExpectations(t)
}

func TestPacketService_RefundExpired(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockAccountRepo, mockLedgerRepo, mockPacketRepo, mockPublisher := newPacketServiceMocks()

	svc := NewPacketService(mockFactory, testConfig())

	cutoff := time.Now().Add(-12 * time.Hour)
	packet := &models.Packet{
		ID:              "abcd1234",
		SenderID:        111,
		TotalAmount:     950000,
		RemainingAmount: 400000,
		RemainingCount:  2,
		Status:          models.PacketStatusActive,
		CreatedAt:       time.Now().Add(-24 * time.Hour),
	}
	sender := &models.Account{DiscordID: 111, Balance: 100000}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockPacketRepo.On("GetExpiredActive", ctx, cutoff).Return([]*models.Packet{packet}, nil)
	mockPacketRepo.On("GetForUpdate", ctx, "abcd1234").Return(packet, nil)
	mockPacketRepo.On("Update", ctx, mock.MatchedBy(func(p *models.Packet) bool {
		return p.Status == models.PacketStatusRefunded
	})).Return(nil)

	mockAccountRepo.On("GetForUpdate", ctx, int64(111)).Return(sender, nil)
	mockAccountRepo.On("UpdateBalance", ctx, int64(111), int64(500000)).Return(nil)
	mockLedgerRepo.On("Record", ctx, mock.MatchedBy(func(e *models.LedgerEntry) bool {
		return e.DiscordID == 111 && e.Amount == 400000 && e.Kind == models.EntryKindRefund
	})).Return(nil)
	mockPublisher.On("Publish", mock.Anything).Return()

	refunded, err := svc.RefundExpired(ctx, cutoff)

	assert.NoError(t, err)
	assert.Equal(t, 1, refunded)

	mockPacketRepo.AssertExpectations(t)
	mockAccountRepo.AssertExpectations(t)
	mockLedgerRepo.AssertExpectations(t)
}

func TestDrawClaimAmount_ConservesTotal(t *testing.T) {
	for round := 0; round < 100; round++ {
		remaining := int64(950000)
		count := 10
		var sum int64

		for count > 0 {
			amount := drawClaimAmount(remaining, count)
			assert.GreaterOrEqual(t, amount, int64(1))
			if count > 1 {
				// Every later slot must still be able to receive at least one unit
				assert.LessOrEqual(t, amount, remaining-int64(count-1))
			} else {
				assert.Equal(t, remaining, amount)
			}
			sum += amount
			remaining -= amount
			count--
		}

		assert.Equal(t, int64(950000), sum)
		assert.Equal(t, int64(0), remaining)
	}
}
