package service

import (
	"context"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type blogFixture struct {
	db         *gorm.DB
	posts      *PostService
	comments   *CommentService
	categories *CategoryService
	tags       *TagService
	author     Actor
	reader     Actor
	staff      Actor
}

func actorFor(user *models.User, profile *models.Profile) Actor {
	return Actor{UserID: user.ID, ProfileID: profile.ID, Email: user.Email, IsStaff: user.IsStaff}
}

func newBlogFixture(t *testing.T) *blogFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	postRepo := repository.NewPostRepository(db)
	categories := NewCategoryService(repository.NewCategoryRepository(db))
	tags := NewTagService(repository.NewTagRepository(db))

	authorUser, authorProfile := testutil.CreateUser(t, db, "writer@example.com", testutil.UserOpts{})
	readerUser, readerProfile := testutil.CreateUser(t, db, "reader@example.com", testutil.UserOpts{})
	staffUser, staffProfile := testutil.CreateUser(t, db, "editor@example.com", testutil.UserOpts{Staff: true})

	return &blogFixture{
		db:         db,
		posts:      NewPostService(postRepo, categories, tags),
		comments:   NewCommentService(repository.NewCommentRepository(db), postRepo),
		categories: categories,
		tags:       tags,
		author:     actorFor(authorUser, authorProfile),
		reader:     actorFor(readerUser, readerProfile),
		staff:      actorFor(staffUser, staffProfile),
	}
}

func strPtr(s string) *string { return &s }

func TestPostService_CreateValidation(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		actor     Actor
		in        CreatePostInput
		wantCode  string
		wantField string
	}{
		{
			name:     "anonymous",
			actor:    Actor{},
			in:       CreatePostInput{Title: "Hello", Content: "Body"},
			wantCode: models.CodeUnauthorized,
		},
		{
			name:      "missing title",
			actor:     f.author,
			in:        CreatePostInput{Content: "Body"},
			wantCode:  models.CodeValidation,
			wantField: "title",
		},
		{
			name:      "missing content",
			actor:     f.author,
			in:        CreatePostInput{Title: "Hello"},
			wantCode:  models.CodeValidation,
			wantField: "content",
		},
		{
			name:      "bad status",
			actor:     f.author,
			in:        CreatePostInput{Title: "Hello", Content: "Body", Status: "archived"},
			wantCode:  models.CodeValidation,
			wantField: "status",
		},
		{
			name:      "unknown tag",
			actor:     f.author,
			in:        CreatePostInput{Title: "Hello", Content: "Body", Tags: []string{"nope"}},
			wantCode:  models.CodeValidation,
			wantField: "tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.posts.Create(ctx, tt.actor, tt.in)
			appErr := assertCode(t, err, tt.wantCode)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestPostService_CreateAssignsSlugCategoryAndTags(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()
	testutil.CreateTag(t, f.db, "Go", "go")

	first, err := f.posts.Create(ctx, f.author, CreatePostInput{
		Title:    "Hello, World!",
		Content:  "# Hi",
		Category: &TaxonomyInput{Name: "Tech"},
		Tags:     []string{"go", "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", first.Slug)
	assert.Equal(t, models.StatusDraft, first.Status)
	require.NotNil(t, first.Category)
	assert.Equal(t, "tech", first.Category.Slug)
	require.Len(t, first.Tags, 1)
	assert.Equal(t, "writer@example.com", first.Author.Email())

	second, err := f.posts.Create(ctx, f.author, CreatePostInput{
		Title:    "Hello World",
		Content:  "again",
		Status:   models.StatusPublished,
		Category: &TaxonomyInput{Name: "Technology", Slug: "tech"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", second.Slug)
	// The existing category is reused.
	assert.Equal(t, *first.CategoryID, *second.CategoryID)

	var categories int64
	require.NoError(t, f.db.Model(&models.Category{}).Count(&categories).Error)
	assert.Equal(t, int64(1), categories)
}

func TestPostService_DraftVisibility(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()

	draft, err := f.posts.Create(ctx, f.author, CreatePostInput{Title: "Secret", Content: "wip"})
	require.NoError(t, err)

	_, err = f.posts.Get(ctx, f.author, draft.Slug)
	require.NoError(t, err)
	_, err = f.posts.Get(ctx, f.staff, draft.Slug)
	require.NoError(t, err)
	_, err = f.posts.Get(ctx, f.reader, draft.Slug)
	assertCode(t, err, models.CodeNotFound)
	_, err = f.posts.Get(ctx, Actor{}, draft.Slug)
	assertCode(t, err, models.CodeNotFound)

	page, err := f.posts.List(ctx, f.reader, ListPostsInput{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	page, err = f.posts.List(ctx, f.author, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestPostService_ListValidatesAndClamps(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()

	_, err := f.posts.List(ctx, Actor{}, ListPostsInput{Filter: models.PostFilter{Ordering: "author"}})
	assertFieldError(t, err, "ordering")

	_, err = f.posts.List(ctx, Actor{}, ListPostsInput{Filter: models.PostFilter{Status: "archived"}})
	assertFieldError(t, err, "status")

	page, err := f.posts.List(ctx, Actor{}, ListPostsInput{Page: 0, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPageSize, page.PageSize)

	page, err = f.posts.List(ctx, Actor{}, ListPostsInput{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)
}

func TestPostService_UpdatePermissions(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()

	post, err := f.posts.Create(ctx, f.author, CreatePostInput{Title: "Original", Content: "Body", Status: models.StatusPublished})
	require.NoError(t, err)

	_, _, err = f.posts.Update(ctx, Actor{}, post.Slug, UpdatePostInput{Title: strPtr("Hijack")})
	assertCode(t, err, models.CodeUnauthorized)

	_, _, err = f.posts.Update(ctx, f.reader, post.Slug, UpdatePostInput{Title: strPtr("Hijack")})
	assertCode(t, err, models.CodeForbidden)

	updated, _, err := f.posts.Update(ctx, f.staff, post.Slug, UpdatePostInput{Title: strPtr("Edited by staff")})
	require.NoError(t, err)
	assert.Equal(t, "Edited by staff", updated.Title)
	assert.Equal(t, "original", updated.Slug, "slug is stable across title edits")

	err = f.posts.Delete(ctx, f.reader, post.Slug)
	assertCode(t, err, models.CodeForbidden)
	require.NoError(t, f.posts.Delete(ctx, f.author, post.Slug))
	_, err = f.posts.Get(ctx, f.author, post.Slug)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_UpdateReportsPublication(t *testing.T) {
	t.Parallel()
	f := newBlogFixture(t)
	ctx := context.Background()
	testutil.CreateTag(t, f.db, "Go", "go")

	post, err := f.posts.Create(ctx, f.author, CreatePostInput{
		Title: "Draft", Content: "Body", Category: &TaxonomyInput{Name: "Tech"},
	})
	require.NoError(t, err)

	tags := []string{"go"}
	updated, published, err := f.posts.Update(ctx, f.author, post.Slug, UpdatePostInput{
		Status:        strPtr(models.StatusPublished),
		ClearCategory: true,
		Tags:          &tags,
	})
	require.NoError(t, err)
	assert.True(t, published)
	assert.Nil(t, updated.CategoryID)
	require.Len(t, updated.Tags, 1)

	_, published, err = f.posts.Update(ctx, f.author, post.Slug, UpdatePostInput{Content: strPtr("More")})
	require.NoError(t, err)
	assert.False(t, published)

	withImage, err := f.posts.SetImage(ctx, f.author, post.Slug, "/media/posts/abc.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/media/posts/abc.jpg", withImage.Image)
}

func TestCanModify(t *testing.T) {
	t.Parallel()
	owner := Actor{UserID: 1, ProfileID: 10}
	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"anonymous", Actor{}, false},
		{"owner", owner, true},
		{"other", Actor{UserID: 2, ProfileID: 20}, false},
		{"staff", Actor{UserID: 3, ProfileID: 30, IsStaff: true}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanModify(tt.actor, 10), tt.name)
	}
}
