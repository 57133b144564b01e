package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"inkwell/internal/notifications"
	"inkwell/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the test app on a loopback port and returns its address.
func (ts *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() { _ = ts.app.ShutdownWithTimeout(2 * time.Second) })
	return ln.Addr().String()
}

func readEvent(t *testing.T, conn *websocket.Conn) notifications.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev notifications.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestIssueWSTicket(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	user, _ := testutil.CreateUser(t, ts.db, "listener@example.com", testutil.UserOpts{})

	status, _ := ts.do(t, http.MethodPost, "/api/v1/ws/ticket", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := ts.do(t, http.MethodPost, "/api/v1/ws/ticket", nil, ts.accessToken(t, user))
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 60, body["expires_in"])
	ticket := body["ticket"].(string)
	assert.True(t, ts.mr.Exists(notifications.TicketKey(ticket)))
}

func TestIssueWSTicket_FlagOff(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true, featureFlags: "realtime_notifications=off"})
	user, _ := testutil.CreateUser(t, ts.db, "listener@example.com", testutil.UserOpts{})

	status, _ := ts.do(t, http.MethodPost, "/api/v1/ws/ticket", nil, ts.accessToken(t, user))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWebsocket_RequiresUpgradeAndTicket(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})

	status, _ := ts.do(t, http.MethodGet, "/api/v1/ws?ticket=whatever", nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, status)

	addr := ts.listen(t)
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/v1/ws?ticket=forged", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocket_DeliversModerationEvents(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})
	staffUser, _ := testutil.CreateUser(t, ts.db, "staff@example.com", testutil.UserOpts{Staff: true})
	authorUser, author := testutil.CreateUser(t, ts.db, "author@example.com", testutil.UserOpts{})
	readerUser, _ := testutil.CreateUser(t, ts.db, "reader@example.com", testutil.UserOpts{})
	post := testutil.CreatePost(t, ts.db, author, "Live", "live", testutil.PostOpts{})
	addr := ts.listen(t)

	connect := func(token string) *websocket.Conn {
		status, body := ts.do(t, http.MethodPost, "/api/v1/ws/ticket", nil, token)
		require.Equal(t, http.StatusOK, status, body)
		url := "ws://" + addr + "/api/v1/ws?ticket=" + body["ticket"].(string)
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		assert.Equal(t, "connected", readEvent(t, conn).Type)

		// Tickets are single use.
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		return conn
	}

	staffToken := ts.accessToken(t, staffUser)
	staffConn := connect(staffToken)
	authorConn := connect(ts.accessToken(t, authorUser))
	readerConn := connect(ts.accessToken(t, readerUser))

	status, body := ts.do(t, http.MethodPost, "/api/v1/blog/comments", map[string]any{"post": post.ID, "content": "Nice post"}, ts.accessToken(t, readerUser))
	require.Equal(t, http.StatusCreated, status, body)

	pending := readEvent(t, staffConn)
	assert.Equal(t, "comment.pending", pending.Type)
	created := readEvent(t, authorConn)
	assert.Equal(t, "comment.created", created.Type)
	payload := created.Payload.(map[string]any)
	assert.Equal(t, "live", payload["post_slug"])
	assert.Equal(t, "reader@example.com", payload["author_email"])

	status, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/blog/comments/%v/approve", body["id"]), nil, staffToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "comment.approved", readEvent(t, readerConn).Type)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/blog/posts", map[string]any{
		"title": "Fresh", "content": "news", "status": "published",
	}, staffToken)
	require.Equal(t, http.StatusCreated, status)
	for _, conn := range []*websocket.Conn{staffConn, authorConn, readerConn} {
		ev := readEvent(t, conn)
		assert.Equal(t, "post.published", ev.Type)
		assert.Equal(t, "fresh", ev.Payload.(map[string]any)["slug"])
	}
}
