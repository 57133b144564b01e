package notifications

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TicketTTL is how long a websocket ticket stays redeemable.
const TicketTTL = 60 * time.Second

var ErrInvalidTicket = errors.New("invalid or expired websocket ticket")

// TicketKey is the Redis key of a websocket ticket.
func TicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}

// TicketStore issues single-use tickets that let a browser open a websocket without
// putting its JWT in the URL.
type TicketStore struct {
	rdb *redis.Client
	now func() time.Time

	mu     sync.Mutex
	memory map[string]memoryTicket
}

type memoryTicket struct {
	userID    uint
	expiresAt time.Time
}

// NewTicketStore keeps tickets in Redis, or in process memory when rdb is nil.
func NewTicketStore(rdb *redis.Client) *TicketStore {
	return &TicketStore{rdb: rdb, now: time.Now, memory: make(map[string]memoryTicket)}
}

// Issue creates a ticket for userID.
func (s *TicketStore) Issue(ctx context.Context, userID uint) (string, error) {
	ticket := uuid.NewString()
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, TicketKey(ticket), strconv.FormatUint(uint64(userID), 10), TicketTTL).Err(); err != nil {
			return "", err
		}
		return ticket, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, t := range s.memory {
		if now.After(t.expiresAt) {
			delete(s.memory, k)
		}
	}
	s.memory[ticket] = memoryTicket{userID: userID, expiresAt: now.Add(TicketTTL)}
	return ticket, nil
}

// Redeem consumes a ticket and returns its user.
func (s *TicketStore) Redeem(ctx context.Context, ticket string) (uint, error) {
	if ticket == "" {
		return 0, ErrInvalidTicket
	}
	if s.rdb != nil {
		raw, err := s.rdb.GetDel(ctx, TicketKey(ticket)).Result()
		if errors.Is(err, redis.Nil) {
			return 0, ErrInvalidTicket
		}
		if err != nil {
			return 0, err
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return 0, ErrInvalidTicket
		}
		return uint(id), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.memory[ticket]
	delete(s.memory, ticket)
	if !ok || s.now().After(t.expiresAt) {
		return 0, ErrInvalidTicket
	}
	return t.userID, nil
}
