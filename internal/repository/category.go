package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context, limit, offset int) ([]models.Category, int64, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category, oldSlug string) error
	Delete(ctx context.Context, category *models.Category) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context, limit, offset int) ([]models.Category, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("title ASC, id ASC").Scopes(paginate(limit, offset)).Find(&categories).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return categories, total, nil
}

func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := cache.Aside(ctx, cache.CategoryKey(slug), &category, cache.TaxonomyTTL, func() error {
		if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Category", slug)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldError("slug", "category with this slug already exists.")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategory(ctx, category.Slug)
	return nil
}

func (r *categoryRepository) Update(ctx context.Context, category *models.Category, oldSlug string) error {
	posts, err := cachedPostSlugs(ctx, r.db, "category_id = ?", category.ID)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldError("slug", "category with this slug already exists.")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateCategory(ctx, oldSlug, category.Slug)
	cache.InvalidatePost(ctx, posts...)
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, category *models.Category) error {
	posts, err := cachedPostSlugs(ctx, r.db, "category_id = ?", category.ID)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("category_id = ?", category.ID).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, category.ID).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateCategory(ctx, category.Slug)
	cache.InvalidatePost(ctx, posts...)
	return nil
}
