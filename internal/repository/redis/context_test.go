package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steuerpilot/internal/domain/session"
	"steuerpilot/pkg/errors"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestContextRepositoryRoundTrip(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewContextRepository(client, time.Hour)

	sc := session.NewContext()
	sc.MessageCount = 4
	sc.LastAgent = "tax_knowledge"
	sc.LastTopic = "deductions"
	sc.PendingExpense = &session.PendingExpense{
		Description: "laptop",
		Amount:      decimal.NewFromInt(800),
		Category:    "office_equipment",
		Date:        "2024-05-01",
	}

	require.NoError(t, repo.Save(context.Background(), "s1", sc))

	got, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.MessageCount)
	assert.Equal(t, "tax_knowledge", got.LastAgent)
	require.NotNil(t, got.PendingExpense, "pending slot survives serialization")
	assert.True(t, got.PendingExpense.Amount.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, "2024-05-01", got.PendingExpense.Date)
}

func TestContextRepositoryMissReturnsNotFound(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewContextRepository(client, time.Hour)

	_, err := repo.Get(context.Background(), "unknown")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestContextRepositoryTTL(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewContextRepository(client, time.Minute)

	require.NoError(t, repo.Save(context.Background(), "s1", session.NewContext()))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestContextRepositoryDelete(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewContextRepository(client, time.Hour)

	require.NoError(t, repo.Save(context.Background(), "s1", session.NewContext()))
	require.NoError(t, repo.Delete(context.Background(), "s1"))

	_, err := repo.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
