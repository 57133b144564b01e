package server

import (
	"fmt"
	"net/http"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentModeration(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	_, author := testutil.CreateUser(t, ts.db, "author@example.com", testutil.UserOpts{})
	readerUser, _ := testutil.CreateUser(t, ts.db, "reader@example.com", testutil.UserOpts{})
	staffUser, _ := testutil.CreateUser(t, ts.db, "staff@example.com", testutil.UserOpts{Staff: true})
	post := testutil.CreatePost(t, ts.db, author, "Open Thread", "open-thread", testutil.PostOpts{})
	readerToken := ts.accessToken(t, readerUser)
	staffToken := ts.accessToken(t, staffUser)
	listPath := fmt.Sprintf("/api/v1/blog/comments?post=%d", post.ID)

	status, body := ts.do(t, http.MethodPost, "/api/v1/blog/comments", map[string]any{"post": post.ID, "content": "First!"}, readerToken)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, false, body["is_approved"])
	assert.Equal(t, "reader@example.com", body["author_email"])
	assert.Equal(t, "Open Thread", body["post_title"])
	id := uint(body["id"].(float64))
	commentPath := fmt.Sprintf("/api/v1/blog/comments/%d", id)

	// Pending comments are visible to their author and staff only.
	_, body = ts.do(t, http.MethodGet, listPath, nil, "")
	assert.Empty(t, results(t, body))
	_, body = ts.do(t, http.MethodGet, listPath, nil, readerToken)
	assert.Len(t, results(t, body), 1)
	status, _ = ts.do(t, http.MethodGet, commentPath, nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodPost, commentPath+"/approve", nil, readerToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = ts.do(t, http.MethodPost, commentPath+"/approve", nil, staffToken)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Comment approved.", body["detail"])
	assert.Equal(t, true, body["is_approved"])

	_, body = ts.do(t, http.MethodGet, listPath, nil, "")
	assert.Len(t, results(t, body), 1)

	// Staff comments skip the queue.
	status, body = ts.do(t, http.MethodPost, "/api/v1/blog/comments", map[string]any{"post": post.ID, "content": "Welcome"}, staffToken)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["is_approved"])
}

func TestCreateComment_Validation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})
	_, author := testutil.CreateUser(t, ts.db, "author@example.com", testutil.UserOpts{})
	readerUser, _ := testutil.CreateUser(t, ts.db, "reader@example.com", testutil.UserOpts{})
	draft := testutil.CreatePost(t, ts.db, author, "Secret", "secret", testutil.PostOpts{Status: models.StatusDraft})
	token := ts.accessToken(t, readerUser)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/blog/comments", map[string]any{"post": draft.ID, "content": "hi"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := ts.do(t, http.MethodPost, "/api/v1/blog/comments", map[string]any{"post": draft.ID, "content": "hi"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "post", body["field"])

	status, body = ts.do(t, http.MethodPost, "/api/v1/blog/comments", map[string]any{"post": draft.ID}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "content", body["field"])

	status, body = ts.do(t, http.MethodGet, "/api/v1/blog/comments/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", body["error"])
}

func TestUpdateAndDeleteComment(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})
	_, author := testutil.CreateUser(t, ts.db, "author@example.com", testutil.UserOpts{})
	writerUser, writer := testutil.CreateUser(t, ts.db, "writer@example.com", testutil.UserOpts{})
	otherUser, _ := testutil.CreateUser(t, ts.db, "other@example.com", testutil.UserOpts{})
	post := testutil.CreatePost(t, ts.db, author, "Thread", "thread", testutil.PostOpts{})
	comment := testutil.CreateComment(t, ts.db, post, writer, "Original", true)
	path := fmt.Sprintf("/api/v1/blog/comments/%d", comment.ID)

	status, _ := ts.do(t, http.MethodPatch, path, map[string]string{"content": "Vandalized"}, ts.accessToken(t, otherUser))
	assert.Equal(t, http.StatusForbidden, status)

	status, body := ts.do(t, http.MethodPatch, path, map[string]string{"content": "Edited"}, ts.accessToken(t, writerUser))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Edited", body["content"])

	status, _ = ts.do(t, http.MethodDelete, path, nil, ts.accessToken(t, otherUser))
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = ts.do(t, http.MethodDelete, path, nil, ts.accessToken(t, writerUser))
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}
