package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStore_Redis(t *testing.T) {
	t.Parallel()
	mr, rdb := newTestRedis(t)
	store := NewTicketStore(rdb)
	ctx := context.Background()

	ticket, err := store.Issue(ctx, 12)
	require.NoError(t, err)
	assert.True(t, mr.Exists(TicketKey(ticket)))
	assert.Equal(t, TicketTTL, mr.TTL(TicketKey(ticket)))

	userID, err := store.Redeem(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint(12), userID)

	_, err = store.Redeem(ctx, ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket, "tickets are single use")

	expiring, err := store.Issue(ctx, 12)
	require.NoError(t, err)
	mr.FastForward(TicketTTL + time.Second)
	_, err = store.Redeem(ctx, expiring)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	require.NoError(t, rdb.Set(ctx, TicketKey("garbage"), "not-a-number", time.Minute).Err())
	_, err = store.Redeem(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidTicket)

	_, err = store.Redeem(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidTicket)
}

func TestTicketStore_Memory(t *testing.T) {
	t.Parallel()
	store := NewTicketStore(nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ticket, err := store.Issue(ctx, 3)
	require.NoError(t, err)
	userID, err := store.Redeem(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint(3), userID)
	_, err = store.Redeem(ctx, ticket)
	assert.ErrorIs(t, err, ErrInvalidTicket)

	stale, err := store.Issue(ctx, 3)
	require.NoError(t, err)
	now = now.Add(TicketTTL + time.Second)
	_, err = store.Redeem(ctx, stale)
	assert.ErrorIs(t, err, ErrInvalidTicket)
}
