package server

import (
	"net/http"
	"strings"
	"testing"

	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})
	user, _ := testutil.CreateUser(t, ts.db, "me@example.com", testutil.UserOpts{})
	token := ts.accessToken(t, user)

	status, body := ts.do(t, http.MethodPatch, "/api/v1/accounts/profile", map[string]string{"first_name": "Ada", "bio": "Writes things"}, token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Ada", body["first_name"])
	assert.Equal(t, "", body["last_name"])
	assert.Equal(t, "Writes things", body["bio"])

	status, body = ts.do(t, http.MethodPatch, "/api/v1/accounts/profile", map[string]string{"last_name": "Lovelace"}, token)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Ada", body["first_name"])
	assert.Equal(t, "Lovelace", body["last_name"])

	status, body = ts.do(t, http.MethodPatch, "/api/v1/accounts/profile", map[string]string{"first_name": strings.Repeat("a", 151)}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "first_name", body["field"])
}

func TestUploadProfileImage(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, testServerOpts{withoutRedis: true})
	user, _ := testutil.CreateUser(t, ts.db, "me@example.com", testutil.UserOpts{})
	token := ts.accessToken(t, user)

	resp, err := ts.app.Test(multipartImage(t, "/api/v1/accounts/profile/image", token, testutil.PNGBytes(t, 40, 40)), 10_000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status, body := ts.do(t, http.MethodGet, "/api/v1/accounts/profile", nil, token)
	require.Equal(t, http.StatusOK, status)
	image := body["image"].(string)
	assert.True(t, strings.HasPrefix(image, "/media/profiles/"), image)

	// The stored file is served from MEDIA_URL.
	served := ts.raw(t, http.MethodGet, image, nil, "")
	assert.Equal(t, http.StatusOK, served.StatusCode)
}
