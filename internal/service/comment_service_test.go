package service

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishedPost(t *testing.T, f *blogFixture) *models.Post {
	t.Helper()
	post, err := f.posts.Create(context.Background(), f.author, CreatePostInput{
		Title: "Commentable", Content: "Say something", Status: models.StatusPublished,
	})
	require.NoError(t, err)
	return post
}

func TestCommentService_CreateModeration(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()
	post := publishedPost(t, f)

	pending, err := f.comments.Create(ctx, f.reader, CreateCommentInput{PostID: post.ID, Content: "Nice post"})
	require.NoError(t, err)
	assert.False(t, pending.IsApproved)
	assert.Equal(t, f.reader.ProfileID, pending.AuthorID)

	approved, err := f.comments.Create(ctx, f.staff, CreateCommentInput{PostID: post.ID, Content: "Thanks"})
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	// Anonymous readers only see approved comments; the commenter also sees their own.
	page, err := f.comments.List(ctx, Actor{}, ListCommentsInput{PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.comments.List(ctx, f.reader, ListCommentsInput{PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	_, err = f.comments.Get(ctx, Actor{}, pending.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestCommentService_CreateValidation(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()
	post := publishedPost(t, f)
	draft, err := f.posts.Create(ctx, f.author, CreatePostInput{Title: "Hidden", Content: "wip"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		actor     Actor
		in        CreateCommentInput
		wantCode  string
		wantField string
	}{
		{"anonymous", Actor{}, CreateCommentInput{PostID: post.ID, Content: "hi"}, models.CodeUnauthorized, ""},
		{"missing post", f.reader, CreateCommentInput{Content: "hi"}, models.CodeValidation, "post"},
		{"empty content", f.reader, CreateCommentInput{PostID: post.ID, Content: "  "}, models.CodeValidation, "content"},
		{"unknown post", f.reader, CreateCommentInput{PostID: 9999, Content: "hi"}, models.CodeValidation, "post"},
		{"invisible draft", f.reader, CreateCommentInput{PostID: draft.ID, Content: "hi"}, models.CodeValidation, "post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.comments.Create(ctx, tt.actor, tt.in)
			appErr := assertCode(t, err, tt.wantCode)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}

	// The draft's author may comment on it.
	_, err = f.comments.Create(ctx, f.author, CreateCommentInput{PostID: draft.ID, Content: "note to self"})
	require.NoError(t, err)
}

func TestCommentService_PendingQueueAndApproval(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()
	post := publishedPost(t, f)

	var ids []uint
	for _, content := range []string{"first", "second", "third"} {
		c, err := f.comments.Create(ctx, f.reader, CreateCommentInput{PostID: post.ID, Content: content})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	_, err := f.comments.List(ctx, f.reader, ListCommentsInput{PendingOnly: true})
	assertCode(t, err, models.CodeForbidden)

	queue, err := f.comments.List(ctx, f.staff, ListCommentsInput{PendingOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), queue.Total)

	_, err = f.comments.Approve(ctx, f.author, ids[0])
	assertCode(t, err, models.CodeForbidden)

	approved, err := f.comments.Approve(ctx, f.staff, ids[0])
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	_, err = f.comments.ApproveMany(ctx, f.staff, nil)
	assertFieldError(t, err, "ids")

	n, err := f.comments.ApproveMany(ctx, f.staff, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "already approved comments are not counted")

	queue, err = f.comments.List(ctx, f.staff, ListCommentsInput{PendingOnly: true})
	require.NoError(t, err)
	assert.Zero(t, queue.Total)

	page, err := f.comments.List(ctx, Actor{}, ListCommentsInput{PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
}

func TestCommentService_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()
	post := publishedPost(t, f)

	comment, err := f.comments.Create(ctx, f.reader, CreateCommentInput{PostID: post.ID, Content: "tpyo"})
	require.NoError(t, err)

	_, err = f.comments.Update(ctx, f.author, comment.ID, "vandalised")
	// Pending comments are invisible to other non-staff users.
	assertCode(t, err, models.CodeNotFound)

	updated, err := f.comments.Update(ctx, f.reader, comment.ID, "typo")
	require.NoError(t, err)
	assert.Equal(t, "typo", updated.Content)

	_, err = f.comments.Update(ctx, f.reader, comment.ID, "")
	assertFieldError(t, err, "content")

	_, err = f.comments.Approve(ctx, f.staff, comment.ID)
	require.NoError(t, err)

	err = f.comments.Delete(ctx, f.author, comment.ID)
	assertCode(t, err, models.CodeForbidden)

	require.NoError(t, f.comments.Delete(ctx, f.staff, comment.ID))
	_, err = f.comments.Get(ctx, f.staff, comment.ID)
	assertCode(t, err, models.CodeNotFound)
}
