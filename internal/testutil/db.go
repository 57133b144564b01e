// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPassword is the password of every fixture user.
const DefaultPassword = "strongpassword123"

var dbSeq atomic.Int64

// NewSQLiteDB opens a private in-memory SQLite database with the full schema.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:inkwell_test_%d?mode=memory&cache=shared&_foreign_keys=1", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// UserOpts customizes CreateUser.
type UserOpts struct {
	Staff      bool
	Unverified bool
	Inactive   bool
	Password   string
}

// CreateUser inserts a user with its profile and returns both.
func CreateUser(t testing.TB, db *gorm.DB, email string, opts UserOpts) (*models.User, *models.Profile) {
	t.Helper()
	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:      models.NormalizeEmail(email),
		Password:   string(hash),
		IsStaff:    opts.Staff,
		IsActive:   !opts.Inactive,
		IsVerified: !opts.Unverified,
	}
	require.NoError(t, db.Omit("Profile").Create(user).Error)
	// GORM skips zero-valued fields that carry a default, so persist false flags explicitly.
	require.NoError(t, db.Model(user).Updates(map[string]any{
		"is_active":   user.IsActive,
		"is_verified": user.IsVerified,
	}).Error)

	profile := &models.Profile{UserID: user.ID}
	require.NoError(t, db.Create(profile).Error)
	profile.User = user
	return user, profile
}

// CreateCategory inserts a category.
func CreateCategory(t testing.TB, db *gorm.DB, title, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Title: title, Slug: slug}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateTag inserts a tag.
func CreateTag(t testing.TB, db *gorm.DB, name, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// PostOpts customizes CreatePost.
type PostOpts struct {
	Status   string
	Content  string
	Category *models.Category
	Tags     []models.Tag
	Created  time.Time
}

// CreatePost inserts a post authored by author.
func CreatePost(t testing.TB, db *gorm.DB, author *models.Profile, title, slug string, opts PostOpts) *models.Post {
	t.Helper()
	status := opts.Status
	if status == "" {
		status = models.StatusPublished
	}
	content := opts.Content
	if content == "" {
		content = "Body of " + title
	}
	post := &models.Post{
		Title:    title,
		Slug:     slug,
		Content:  content,
		Status:   status,
		AuthorID: author.ID,
		Tags:     opts.Tags,
	}
	if opts.Category != nil {
		post.CategoryID = &opts.Category.ID
	}
	if !opts.Created.IsZero() {
		post.CreatedAt = opts.Created
		post.UpdatedAt = opts.Created
	}
	require.NoError(t, db.Omit("Author", "Category").Create(post).Error)
	return post
}

// CreateComment inserts a comment.
func CreateComment(t testing.TB, db *gorm.DB, post *models.Post, author *models.Profile, content string, approved bool) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: post.ID, AuthorID: author.ID, Content: content, IsApproved: approved}
	require.NoError(t, db.Omit("Post", "Author").Create(c).Error)
	if !approved {
		require.NoError(t, db.Model(c).Update("is_approved", false).Error)
	}
	return c
}

// PNGBytes encodes a solid w×h PNG.
func PNGBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
