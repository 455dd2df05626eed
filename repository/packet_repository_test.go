package repository

import (
	"context"
	"testing"
	"time"

	"luckybot/models"
	"luckybot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewPacketRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 111111, "sender", 10000000)
	require.NoError(t, err)

	t.Run("packet not found", func(t *testing.T) {
		packet, err := repo.GetByID(ctx, "missing1")
		require.NoError(t, err)
		assert.Nil(t, packet)
	})

	t.Run("plain packet round trip", func(t *testing.T) {
		packet := testutil.CreateTestPacket("abcd1234", 111111, 950000, 5)
		require.NoError(t, repo.Create(ctx, packet))
		assert.False(t, packet.CreatedAt.IsZero())

		got, err := repo.GetByID(ctx, "abcd1234")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(111111), got.SenderID)
		assert.Equal(t, int64(950000), got.TotalAmount)
		assert.Equal(t, 5, got.RemainingCount)
		assert.Equal(t, models.PacketStatusActive, got.Status)
		assert.Nil(t, got.MineDigit)
	})

	t.Run("mine packet keeps its digit", func(t *testing.T) {
		packet := testutil.CreateTestMinePacket("mine5678", 111111, 950000, 5, 7)
		require.NoError(t, repo.Create(ctx, packet))

		got, err := repo.GetByID(ctx, "mine5678")
		require.NoError(t, err)
		require.NotNil(t, got.MineDigit)
		assert.Equal(t, int16(7), *got.MineDigit)
	})
}

func TestPacketRepository_Update(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewPacketRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 111111, "sender", 10000000)
	require.NoError(t, err)

	packet := testutil.CreateTestPacket("abcd1234", 111111, 950000, 2)
	require.NoError(t, repo.Create(ctx, packet))

	packet.RemainingAmount = 400000
	packet.RemainingCount = 1
	require.NoError(t, repo.Update(ctx, packet))

	got, err := repo.GetByID(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, int64(400000), got.RemainingAmount)
	assert.Equal(t, 1, got.RemainingCount)

	packet.RemainingAmount = 0
	packet.RemainingCount = 0
	packet.Status = models.PacketStatusFinished
	require.NoError(t, repo.Update(ctx, packet))

	got, err = repo.GetByID(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, models.PacketStatusFinished, got.Status)

	t.Run("unknown packet", func(t *testing.T) {
		missing := testutil.CreateTestPacket("nosuchid", 111111, 100000, 1)
		assert.Error(t, repo.Update(ctx, missing))
	})
}

func TestPacketRepository_Claims(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewPacketRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 111111, "sender", 10000000)
	require.NoError(t, err)
	_, err = accounts.Create(ctx, 222222, "claimer", 0)
	require.NoError(t, err)

	packet := testutil.CreateTestPacket("abcd1234", 111111, 950000, 5)
	require.NoError(t, repo.Create(ctx, packet))

	t.Run("records a claim", func(t *testing.T) {
		claimed, err := repo.HasClaimed(ctx, "abcd1234", 222222)
		require.NoError(t, err)
		assert.False(t, claimed)

		claim := &models.PacketClaim{
			PacketID:  "abcd1234",
			DiscordID: 222222,
			Username:  "claimer",
			Amount:    123400,
			Boom:      true,
		}
		require.NoError(t, repo.AddClaim(ctx, claim))
		assert.NotZero(t, claim.ID)

		claimed, err = repo.HasClaimed(ctx, "abcd1234", 222222)
		require.NoError(t, err)
		assert.True(t, claimed)

		claims, err := repo.GetClaims(ctx, "abcd1234")
		require.NoError(t, err)
		require.Len(t, claims, 1)
		assert.Equal(t, "claimer", claims[0].Username)
		assert.Equal(t, int64(123400), claims[0].Amount)
		assert.True(t, claims[0].Boom)
	})

	t.Run("second claim by the same account violates the unique constraint", func(t *testing.T) {
		claim := &models.PacketClaim{
			PacketID:  "abcd1234",
			DiscordID: 222222,
			Amount:    1,
		}
		assert.Error(t, repo.AddClaim(ctx, claim))
	})
}

func TestPacketRepository_GetExpiredActive(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	repo := NewPacketRepository(testDB.DB)
	ctx := context.Background()

	_, err := accounts.Create(ctx, 111111, "sender", 10000000)
	require.NoError(t, err)

	active := testutil.CreateTestPacket("active01", 111111, 500000, 5)
	require.NoError(t, repo.Create(ctx, active))

	finished := testutil.CreateTestPacket("finished", 111111, 500000, 5)
	require.NoError(t, repo.Create(ctx, finished))
	finished.Status = models.PacketStatusFinished
	require.NoError(t, repo.Update(ctx, finished))

	t.Run("future cutoff catches active packets only", func(t *testing.T) {
		packets, err := repo.GetExpiredActive(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, packets, 1)
		assert.Equal(t, "active01", packets[0].ID)
	})

	t.Run("past cutoff catches nothing", func(t *testing.T) {
		packets, err := repo.GetExpiredActive(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, packets)
	})
}
