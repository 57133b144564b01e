package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// receive returns the next queued message of c, failing after a second.
func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Send:
		return string(msg)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no message received")
		return ""
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %q", msg)
	case <-time.After(5 * testPollInterval):
	}
}

func TestHub_RoutesMessages(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	reader, err := hub.Register(1, false, nil)
	require.NoError(t, err)
	readerTab, err := hub.Register(1, false, nil)
	require.NoError(t, err)
	editor, err := hub.Register(2, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, hub.ConnectionCount())
	assert.True(t, hub.IsOnline(1))

	hub.Broadcast(1, "for-reader")
	assert.Equal(t, "for-reader", receive(t, reader))
	assert.Equal(t, "for-reader", receive(t, readerTab))
	assertSilent(t, editor)

	hub.BroadcastStaff("for-staff")
	assert.Equal(t, "for-staff", receive(t, editor))
	assertSilent(t, reader)

	hub.BroadcastAll("for-all")
	for _, c := range []*Client{reader, readerTab, editor} {
		assert.Equal(t, "for-all", receive(t, c))
	}

	hub.Dispatch(UserChannel(2), "via-channel")
	assert.Equal(t, "via-channel", receive(t, editor))
	hub.Dispatch("notifications:user:abc", "ignored")
	assertSilent(t, editor)
}

func TestHub_StaffCheckDropsDemotedUsers(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	demoted := map[uint]bool{}
	var mu sync.Mutex
	hub.SetStaffCheck(func(_ context.Context, userID uint) bool {
		mu.Lock()
		defer mu.Unlock()
		return !demoted[userID]
	})

	editor, err := hub.Register(1, true, nil)
	require.NoError(t, err)
	former, err := hub.Register(2, true, nil)
	require.NoError(t, err)

	hub.BroadcastStaff("first")
	assert.Equal(t, "first", receive(t, editor))
	assert.Equal(t, "first", receive(t, former))

	mu.Lock()
	demoted[2] = true
	mu.Unlock()

	hub.Dispatch(StaffChannel, "second")
	assert.Equal(t, "second", receive(t, editor))
	assertSilent(t, former)

	// Direct messages still reach the demoted user.
	hub.Broadcast(2, "personal")
	assert.Equal(t, "personal", receive(t, former))
}

func TestHub_UnregisterAndLimits(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	var clients []*Client
	for i := 0; i < maxConnsPerUser; i++ {
		c, err := hub.Register(5, false, nil)
		require.NoError(t, err)
		clients = append(clients, c)
	}
	_, err := hub.Register(5, false, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)

	for _, c := range clients {
		hub.UnregisterClient(c)
		hub.UnregisterClient(c)
		_, open := <-c.Send
		assert.False(t, open, "send channel is closed on unregister")
	}
	assert.False(t, hub.IsOnline(5))
	assert.Zero(t, hub.ConnectionCount())

	// Sending to a closed client must not panic.
	clients[0].TrySend([]byte("late"))
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(9, false, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+10; i++ {
		hub.Broadcast(9, "spam")
	}
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_Shutdown(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(3, false, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	_, open := <-c.Send
	assert.False(t, open)
	hub.UnregisterClient(c)

	_, err = hub.Register(3, false, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_WiredThroughRedis(t *testing.T) {
	t.Parallel()
	_, rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	notifier := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, notifier))

	reader, err := hub.Register(1, false, nil)
	require.NoError(t, err)
	editor, err := hub.Register(2, true, nil)
	require.NoError(t, err)

	publisher := NewPublisher(hub, notifier)
	publisher.ToUser(ctx, 1, "comment.created", map[string]any{"comment_id": 4})

	var event struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(receive(t, reader)), &event))
	assert.Equal(t, "comment.created", event.Type)
	assert.EqualValues(t, 4, event.Payload["comment_id"])
	assertSilent(t, editor)

	publisher.ToStaff(ctx, "comment.pending", map[string]any{"comment_id": 5})
	assert.Contains(t, receive(t, editor), "comment.pending")
	assertSilent(t, reader)

	publisher.Broadcast(ctx, "post.published", map[string]any{"slug": "hello"})
	assert.Contains(t, receive(t, reader), "post.published")
	assert.Contains(t, receive(t, editor), "post.published")

	// Delivery is exactly once even though the publisher and subscriber share a hub.
	assertSilent(t, reader)
}

func TestPublisher_LocalFallback(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c, err := hub.Register(1, true, nil)
	require.NoError(t, err)

	publisher := NewPublisher(hub, NewNotifier(nil))
	publisher.ToUser(context.Background(), 1, "comment.approved", map[string]any{"id": 1})
	assert.Contains(t, receive(t, c), "comment.approved")
	publisher.ToStaff(context.Background(), "comment.pending", nil)
	assert.Contains(t, receive(t, c), "comment.pending")

	var nilPublisher *Publisher
	nilPublisher.Broadcast(context.Background(), "post.published", nil)
}

func TestNotifier_NoRedisIsNoop(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil)
	ctx := context.Background()
	assert.NoError(t, n.PublishUser(ctx, 1, "x"))
	assert.NoError(t, n.PublishBroadcast(ctx, "x"))
	assert.NoError(t, n.PublishStaff(ctx, "x"))
	assert.NoError(t, n.StartPatternSubscriber(ctx, func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:100", UserChannel(100))

	id, ok := parseUserChannel("notifications:user:42")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
	for _, bad := range []string{"notifications:user:", "notifications:user:0", "chat:conv:1", BroadcastChannel} {
		_, ok := parseUserChannel(bad)
		assert.False(t, ok, bad)
	}
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	t.Parallel()
	_, rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))
	require.NoError(t, n.PublishBroadcast(context.Background(), "before-cancel"))
	select {
	case p := <-payloads:
		assert.Equal(t, "before-cancel", p)
	case <-time.After(testEventuallyTimeout):
		t.Fatal("subscriber did not receive message")
	}

	cancel()
	time.Sleep(2 * testPollInterval)
	_ = n.PublishBroadcast(context.Background(), "after-cancel")
	assert.Never(t, func() bool { return len(payloads) > 0 }, 10*testPollInterval, testPollInterval)
}
