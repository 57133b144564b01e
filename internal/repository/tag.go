package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	List(ctx context.Context, limit, offset int) ([]models.Tag, int64, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tag, error)
	GetBySlugs(ctx context.Context, slugs []string) ([]models.Tag, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	Create(ctx context.Context, tag *models.Tag) error
	Update(ctx context.Context, tag *models.Tag, oldSlug string) error
	Delete(ctx context.Context, tag *models.Tag) error
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) List(ctx context.Context, limit, offset int) ([]models.Tag, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Tag{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Scopes(paginate(limit, offset)).Find(&tags).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return tags, total, nil
}

func (r *tagRepository) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var tag models.Tag
	err := cache.Aside(ctx, cache.TagKey(slug), &tag, cache.TaxonomyTTL, func() error {
		if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tag).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Tag", slug)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) GetBySlugs(ctx context.Context, slugs []string) ([]models.Tag, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *tagRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Tag{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldError("slug", "tag with this slug already exists.")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateTag(ctx, tag.Slug)
	return nil
}

func (r *tagRepository) Update(ctx context.Context, tag *models.Tag, oldSlug string) error {
	posts, err := cachedPostSlugs(ctx, r.db, "id IN (SELECT post_id FROM post_tags WHERE tag_id = ?)", tag.ID)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(tag).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldError("slug", "tag with this slug already exists.")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateTag(ctx, oldSlug, tag.Slug)
	cache.InvalidatePost(ctx, posts...)
	return nil
}

func (r *tagRepository) Delete(ctx context.Context, tag *models.Tag) error {
	posts, err := cachedPostSlugs(ctx, r.db, "id IN (SELECT post_id FROM post_tags WHERE tag_id = ?)", tag.ID)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tag{}, tag.ID).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateTag(ctx, tag.Slug)
	cache.InvalidatePost(ctx, posts...)
	return nil
}
