package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminCLI_Accounts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	var out bytes.Buffer
	cli := newAdminCLI(db, &out)

	require.NoError(t, cli.run(ctx, []string{"createsuperuser", "root@example.com", "Quiet-Harbor-1987"}))
	assert.Contains(t, out.String(), "Created superuser root@example.com")

	user, _ := testutil.CreateUser(t, db, "writer@example.com", testutil.UserOpts{Unverified: true})
	require.NoError(t, cli.run(ctx, []string{"promote", "writer@example.com"}))
	require.NoError(t, cli.run(ctx, []string{"verify", "writer@example.com"}))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.IsStaff)
	assert.True(t, reloaded.IsVerified)

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"list-staff"}))
	assert.Contains(t, out.String(), "root@example.com")
	assert.Contains(t, out.String(), "writer@example.com")

	require.NoError(t, cli.run(ctx, []string{"demote", "writer@example.com"}))
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.False(t, reloaded.IsStaff)

	assert.Error(t, cli.run(ctx, []string{"promote", "ghost@example.com"}))
	assert.ErrorIs(t, cli.run(ctx, []string{"promote"}), errUsage)
	assert.ErrorIs(t, cli.run(ctx, []string{"frobnicate"}), errUsage)
}

func TestAdminCLI_ApproveComments(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	var out bytes.Buffer
	cli := newAdminCLI(db, &out)

	testutil.CreateUser(t, db, "staff@example.com", testutil.UserOpts{Staff: true})
	testutil.CreateUser(t, db, "reader@example.com", testutil.UserOpts{})
	_, author := testutil.CreateUser(t, db, "author@example.com", testutil.UserOpts{})
	post := testutil.CreatePost(t, db, author, "Thread", "thread", testutil.PostOpts{})
	first := testutil.CreateComment(t, db, post, author, "one", false)
	testutil.CreateComment(t, db, post, author, "two", false)
	testutil.CreateComment(t, db, post, author, "three", false)

	assert.Error(t, cli.run(ctx, []string{"approve-comments", "all"}), "no operator configured")

	cli.operator = "reader@example.com"
	assert.True(t, models.IsCode(cli.run(ctx, []string{"approve-comments", "all"}), models.CodeForbidden))

	cli.operator = "staff@example.com"
	require.NoError(t, cli.run(ctx, []string{"approve-comments", fmt.Sprint(first.ID)}))
	assert.Contains(t, out.String(), "Approved 1 comment(s)")

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"approve-comments", "all"}))
	assert.Contains(t, out.String(), "Approved 2 comment(s)")

	out.Reset()
	require.NoError(t, cli.run(ctx, []string{"approve-comments", "all"}))
	assert.Contains(t, out.String(), "No pending comments")

	assert.ErrorIs(t, cli.run(ctx, []string{"approve-comments", "abc"}), errUsage)
}
