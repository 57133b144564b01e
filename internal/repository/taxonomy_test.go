package repository

import (
	"context"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	tech := &models.Category{Title: "Tech", Slug: "tech"}
	require.NoError(t, repo.Create(ctx, tech))
	require.NoError(t, repo.Create(ctx, &models.Category{Title: "Art", Slug: "art"}))

	err := repo.Create(ctx, &models.Category{Title: "Tech again", Slug: "tech"})
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "slug", appErr.Field)

	list, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Art", list[0].Title)

	exists, err := repo.SlugExists(ctx, "tech", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.SlugExists(ctx, "tech", tech.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	tech.Title = "Technology"
	tech.Slug = "technology"
	require.NoError(t, repo.Update(ctx, tech, "tech"))
	got, err := repo.GetBySlug(ctx, "technology")
	require.NoError(t, err)
	assert.Equal(t, "Technology", got.Title)

	_, err = repo.GetBySlug(ctx, "tech")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, author := testutil.CreateUser(t, db, "writer@example.com", testutil.UserOpts{})
	post := testutil.CreatePost(t, db, author, "Hello", "hello", testutil.PostOpts{Category: tech})

	require.NoError(t, repo.Delete(ctx, tech))

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Nil(t, reloaded.CategoryID)
}

func TestTagRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	golang := &models.Tag{Name: "Go", Slug: "go"}
	require.NoError(t, repo.Create(ctx, golang))
	require.NoError(t, repo.Create(ctx, &models.Tag{Name: "Databases", Slug: "databases"}))

	list, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Databases", list[0].Name)

	found, err := repo.GetBySlugs(ctx, []string{"go", "missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, golang.ID, found[0].ID)

	empty, err := repo.GetBySlugs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, author := testutil.CreateUser(t, db, "writer@example.com", testutil.UserOpts{})
	post := testutil.CreatePost(t, db, author, "Tagged", "tagged", testutil.PostOpts{Tags: []models.Tag{*golang}})

	require.NoError(t, repo.Delete(ctx, golang))

	var links int64
	require.NoError(t, db.Table("post_tags").Where("post_id = ?", post.ID).Count(&links).Error)
	assert.Zero(t, links)

	_, err = repo.GetBySlug(ctx, "go")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%hello%", likePattern("Hello"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}
