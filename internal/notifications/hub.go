package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 10000

	staffCheckTimeout = 2 * time.Second
)

var (
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrHubClosed       = errors.New("notification hub is shut down")
)

// StaffCheck reports whether userID still holds staff rights.
type StaffCheck func(ctx context.Context, userID uint) bool

// Hub maps user ids to their open websocket clients on this instance.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool
	staffCheck StaffCheck
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[uint]map[*Client]struct{})}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "notification hub" }

// Register adds a connection for userID. Staff clients also receive staff notifications.
func (h *Hub) Register(userID uint, isStaff bool, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerConnLimit
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserConnLimit
	}

	client := newClient(h, conn, userID, isStaff)
	m[client] = struct{}{}
	h.totalConns++
	middleware.WebSocketConnections.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. It is safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	close(client.Send)
	h.totalConns--
	middleware.WebSocketConnections.Dec()
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
}

// Broadcast sends message to all connections for userID.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.conns[userID] {
		c.TrySend(data)
	}
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message string) {
	h.send(message, func(*Client) bool { return true })
}

// SetStaffCheck makes BroadcastStaff confirm staff rights before delivering,
// so a user demoted after connecting stops receiving staff events.
func (h *Hub) SetStaffCheck(check StaffCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.staffCheck = check
}

// BroadcastStaff sends message to every connected staff client.
func (h *Hub) BroadcastStaff(message string) {
	h.mu.RLock()
	check := h.staffCheck
	var staffIDs []uint
	for userID, clients := range h.conns {
		for c := range clients {
			if c.IsStaff {
				staffIDs = append(staffIDs, userID)
				break
			}
		}
	}
	h.mu.RUnlock()

	if check != nil && len(staffIDs) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), staffCheckTimeout)
		var revoked []uint
		for _, userID := range staffIDs {
			if !check(ctx, userID) {
				revoked = append(revoked, userID)
			}
		}
		cancel()
		if len(revoked) > 0 {
			h.revokeStaff(revoked)
		}
	}

	h.send(message, func(c *Client) bool { return c.IsStaff })
}

func (h *Hub) revokeStaff(userIDs []uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, userID := range userIDs {
		for c := range h.conns[userID] {
			c.IsStaff = false
		}
	}
	middleware.Logger.Info("staff rights revoked on open sockets", slog.Any("user_ids", userIDs))
}

func (h *Hub) send(message string, match func(*Client) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			if match(c) {
				c.TrySend(data)
			}
		}
	}
}

// IsOnline reports whether userID has an open connection on this instance.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// ConnectionCount is the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// Dispatch routes a message received on a Redis channel to the matching clients.
func (h *Hub) Dispatch(channel, payload string) {
	switch channel {
	case BroadcastChannel:
		h.BroadcastAll(payload)
	case StaffChannel:
		h.BroadcastStaff(payload)
	default:
		userID, ok := parseUserChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid notification channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(userID, payload)
	}
}

// StartWiring subscribes to Redis and forwards every notification to this hub's clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, h.Dispatch)
}

// Shutdown disconnects every client and refuses new registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	// Closing Send makes each WritePump send a going-away frame and close its connection.
	for _, clients := range h.conns {
		for client := range clients {
			close(client.Send)
			middleware.WebSocketConnections.Dec()
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
