package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	List(ctx context.Context, filter models.PostFilter, limit, offset int) ([]models.Post, int64, error)
	Update(ctx context.Context, post *models.Post, oldSlug string) error
	Delete(ctx context.Context, post *models.Post) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

var postOrderings = map[string]string{
	"created_date":  "posts.created_at ASC, posts.id ASC",
	"-created_date": "posts.created_at DESC, posts.id DESC",
	"title":         "posts.title ASC, posts.id ASC",
	"-title":        "posts.title DESC, posts.id DESC",
	"updated_date":  "posts.updated_at ASC, posts.id ASC",
	"-updated_date": "posts.updated_at DESC, posts.id DESC",
}

// ValidPostOrdering reports whether ordering is accepted by List.
func ValidPostOrdering(ordering string) bool {
	if ordering == "" {
		return true
	}
	_, ok := postOrderings[ordering]
	return ok
}

func withPostDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Author.User").Preload("Category").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Omit("Author", "Category").Create(post).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldError("slug", "post with this slug already exists.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := withPostDetails(r.db.WithContext(ctx)).First(&post, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	if err := withPostDetails(r.db.WithContext(ctx)).Where("slug = ?", slug).First(&post).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Post", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// visiblePosts restricts drafts to their author unless the viewer is staff.
func visiblePosts(viewerProfileID uint, viewerIsStaff bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case viewerIsStaff:
			return db
		case viewerProfileID == 0:
			return db.Where("posts.status = ?", models.StatusPublished)
		default:
			return db.Where("(posts.status = ? OR posts.author_id = ?)", models.StatusPublished, viewerProfileID)
		}
	}
}

func filterPosts(f models.PostFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Scopes(visiblePosts(f.ViewerProfileID, f.ViewerIsStaff))
		if f.Status != "" {
			db = db.Where("posts.status = ?", f.Status)
		}
		if f.Search != "" {
			pattern := likePattern(f.Search)
			db = db.Where("(LOWER(posts.title) LIKE ? ESCAPE '\\' OR LOWER(posts.content) LIKE ? ESCAPE '\\')", pattern, pattern)
		}
		if f.Category != "" {
			db = db.Where("posts.category_id IN (SELECT id FROM categories WHERE slug = ?)", f.Category)
		}
		if f.Tag != "" {
			db = db.Where("posts.id IN (SELECT post_tags.post_id FROM post_tags JOIN tags ON tags.id = post_tags.tag_id WHERE tags.slug = ?)", f.Tag)
		}
		if f.Author != "" {
			db = db.Where("posts.author_id IN (SELECT profiles.id FROM profiles JOIN users ON users.id = profiles.user_id WHERE users.email = ?)",
				models.NormalizeEmail(f.Author))
		}
		return db
	}
}

func (r *postRepository) List(ctx context.Context, filter models.PostFilter, limit, offset int) ([]models.Post, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(filterPosts(filter)).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	order, ok := postOrderings[filter.Ordering]
	if !ok {
		order = postOrderings["-created_date"]
	}

	var posts []models.Post
	err := withPostDetails(r.db.WithContext(ctx)).
		Scopes(filterPosts(filter), paginate(limit, offset)).
		Order(order).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post, oldSlug string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Category", "Tags").Save(post).Error; err != nil {
			return err
		}
		return tx.Model(post).Association("Tags").Replace(post.Tags)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldError("slug", "post with this slug already exists.")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, oldSlug, post.Slug)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.Slug)
	return nil
}
