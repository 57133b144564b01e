package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slugsOf(items []map[string]any) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it["slug"].(string))
	}
	return out
}

func TestListPosts_Visibility(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})
	authorUser, author := testutil.CreateUser(t, ts.db, "author@example.com", testutil.UserOpts{})
	otherUser, _ := testutil.CreateUser(t, ts.db, "other@example.com", testutil.UserOpts{})
	staffUser, _ := testutil.CreateUser(t, ts.db, "staff@example.com", testutil.UserOpts{Staff: true})

	base := time.Now().Add(-time.Hour)
	testutil.CreatePost(t, ts.db, author, "Published", "published", testutil.PostOpts{Created: base})
	testutil.CreatePost(t, ts.db, author, "Draft", "draft", testutil.PostOpts{Status: models.StatusDraft, Created: base.Add(time.Minute)})

	tests := []struct {
		name  string
		token string
		want  []string
	}{
		{"anonymous", "", []string{"published"}},
		{"other user", ts.accessToken(t, otherUser), []string{"published"}},
		{"author", ts.accessToken(t, authorUser), []string{"draft", "published"}},
		{"staff", ts.accessToken(t, staffUser), []string{"draft", "published"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.do(t, http.MethodGet, "/api/v1/blog/posts", nil, tt.token)
			require.Equal(t, http.StatusOK, status, body)
			assert.Equal(t, tt.want, slugsOf(results(t, body)))
		})
	}

	status, _ := ts.do(t, http.MethodGet, "/api/v1/blog/posts/draft", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/blog/posts/draft", nil, ts.accessToken(t, authorUser))
	assert.Equal(t, http.StatusOK, status)
}

func TestListPosts_Filters(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})
	_, alice := testutil.CreateUser(t, ts.db, "alice@example.com", testutil.UserOpts{})
	_, bob := testutil.CreateUser(t, ts.db, "bob@example.com", testutil.UserOpts{})
	golang := testutil.CreateCategory(t, ts.db, "Go", "go")
	tips := testutil.CreateTag(t, ts.db, "Tips", "tips")

	testutil.CreatePost(t, ts.db, alice, "Channels in depth", "channels", testutil.PostOpts{Category: golang, Tags: []models.Tag{*tips}})
	testutil.CreatePost(t, ts.db, bob, "Gardening", "gardening", testutil.PostOpts{})

	status, body := ts.do(t, http.MethodGet, "/api/v1/blog/posts?category=go", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"channels"}, slugsOf(results(t, body)))

	_, body = ts.do(t, http.MethodGet, "/api/v1/blog/posts?tags=tips", nil, "")
	assert.Equal(t, []string{"channels"}, slugsOf(results(t, body)))

	_, body = ts.do(t, http.MethodGet, "/api/v1/blog/posts?author=bob@example.com", nil, "")
	assert.Equal(t, []string{"gardening"}, slugsOf(results(t, body)))

	_, body = ts.do(t, http.MethodGet, "/api/v1/blog/posts?search=garden", nil, "")
	assert.Equal(t, []string{"gardening"}, slugsOf(results(t, body)))

	_, body = ts.do(t, http.MethodGet, "/api/v1/blog/posts?ordering=title", nil, "")
	assert.Equal(t, []string{"channels", "gardening"}, slugsOf(results(t, body)))

	status, body = ts.do(t, http.MethodGet, "/api/v1/blog/posts?ordering=password", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ordering", body["field"])
}

func TestPostLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	authorUser, _ := testutil.CreateUser(t, ts.db, "author@example.com", testutil.UserOpts{})
	otherUser, _ := testutil.CreateUser(t, ts.db, "other@example.com", testutil.UserOpts{})
	testutil.CreateTag(t, ts.db, "Go", "go")
	token := ts.accessToken(t, authorUser)

	status, _ := ts.do(t, http.MethodPost, "/api/v1/blog/posts", map[string]any{"title": "x", "content": "y"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := ts.do(t, http.MethodPost, "/api/v1/blog/posts", map[string]any{
		"title":    "Hello World",
		"content":  "Some **bold** words",
		"status":   "published",
		"category": map[string]string{"title": "Announcements"},
		"tags":     []string{"go"},
	}, token)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "hello-world", body["slug"])
	assert.Equal(t, "author@example.com", body["author"])
	assert.Equal(t, []any{"go"}, body["tags"])
	assert.Contains(t, body["content_html"], "<strong>bold</strong>")
	category := body["category"].(map[string]any)
	assert.Equal(t, "announcements", category["slug"])
	assert.Equal(t, "http://example.com/api/v1/blog/category/announcements", body["category_link"])

	// Same title, new slug.
	status, body = ts.do(t, http.MethodPost, "/api/v1/blog/posts", map[string]any{"title": "Hello World", "content": "again"}, token)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "hello-world-2", body["slug"])
	assert.Equal(t, models.StatusDraft, body["status"])

	status, body = ts.do(t, http.MethodPost, "/api/v1/blog/posts", map[string]any{
		"title": "Unknown tag", "content": "body", "tags": []string{"missing"},
	}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "tags", body["field"])

	status, _ = ts.do(t, http.MethodPatch, "/api/v1/blog/posts/hello-world", map[string]any{"title": "Hijacked"}, ts.accessToken(t, otherUser))
	assert.Equal(t, http.StatusForbidden, status)

	status, body = ts.do(t, http.MethodPut, "/api/v1/blog/posts/hello-world", map[string]any{"title": "Only title"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "content", body["field"])

	status, body = ts.do(t, http.MethodPatch, "/api/v1/blog/posts/hello-world", map[string]any{
		"title": "Hello Again", "category": nil,
	}, token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Hello Again", body["title"])
	assert.Equal(t, "hello-world", body["slug"])
	assert.Nil(t, body["category"])
	assert.Nil(t, body["category_link"])

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/blog/posts/hello-world", nil, ts.accessToken(t, otherUser))
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = ts.do(t, http.MethodDelete, "/api/v1/blog/posts/hello-world", nil, token)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = ts.do(t, http.MethodGet, "/api/v1/blog/posts/hello-world", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetPost_MarkdownFlagOff(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true, featureFlags: "markdown_html=off"})
	_, author := testutil.CreateUser(t, ts.db, "author@example.com", testutil.UserOpts{})
	testutil.CreatePost(t, ts.db, author, "Plain", "plain", testutil.PostOpts{Content: "# Title"})

	status, body := ts.do(t, http.MethodGet, "/api/v1/blog/posts/plain", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "# Title", body["content"])
	assert.NotContains(t, body, "content_html")
}

func multipartImage(t *testing.T, path, token string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadPostImage(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})
	authorUser, author := testutil.CreateUser(t, ts.db, "author@example.com", testutil.UserOpts{})
	otherUser, _ := testutil.CreateUser(t, ts.db, "other@example.com", testutil.UserOpts{})
	testutil.CreatePost(t, ts.db, author, "Pictures", "pictures", testutil.PostOpts{})

	resp, err := ts.app.Test(multipartImage(t, "/api/v1/blog/posts/pictures/image", ts.accessToken(t, otherUser), testutil.PNGBytes(t, 8, 8)), 10_000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = ts.app.Test(multipartImage(t, "/api/v1/blog/posts/pictures/image", ts.accessToken(t, authorUser), testutil.PNGBytes(t, 32, 16)), 10_000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var post models.Post
	require.NoError(t, ts.db.Where("slug = ?", "pictures").First(&post).Error)
	assert.True(t, strings.HasPrefix(post.Image, "/media/"), post.Image)

	resp, err = ts.app.Test(multipartImage(t, "/api/v1/blog/posts/pictures/image", ts.accessToken(t, authorUser), []byte("not an image")), 10_000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
