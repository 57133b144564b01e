package repository

import (
	"context"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	List(ctx context.Context, filter models.CommentFilter, limit, offset int) ([]models.Comment, int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
	// Approve marks the given comments approved and returns how many changed.
	Approve(ctx context.Context, ids []uint) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func withCommentDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Post").Preload("Post.Author").Preload("Author").Preload("Author.User")
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Post", "Author").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := withCommentDetails(r.db.WithContext(ctx)).First(&comment, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// visibleComments hides unapproved comments from everyone but their author and staff,
// and hides comments on drafts the viewer cannot see.
func visibleComments(f models.CommentFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.ViewerIsStaff {
			return db
		}
		if f.ViewerProfileID == 0 {
			return db.Where("comments.is_approved = ?", true).
				Where("comments.post_id IN (SELECT id FROM posts WHERE status = ?)", models.StatusPublished)
		}
		return db.Where("(comments.is_approved = ? OR comments.author_id = ?)", true, f.ViewerProfileID).
			Where("comments.post_id IN (SELECT id FROM posts WHERE status = ? OR author_id = ?)", models.StatusPublished, f.ViewerProfileID)
	}
}

func filterComments(f models.CommentFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Scopes(visibleComments(f))
		if f.PostID != 0 {
			db = db.Where("comments.post_id = ?", f.PostID)
		}
		if f.PendingOnly {
			db = db.Where("comments.is_approved = ?", false)
		}
		return db
	}
}

func (r *commentRepository) List(ctx context.Context, filter models.CommentFilter, limit, offset int) ([]models.Comment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Scopes(filterComments(filter)).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []models.Comment
	err := withCommentDetails(r.db.WithContext(ctx)).
		Scopes(filterComments(filter), paginate(limit, offset)).
		Order("comments.created_at DESC, comments.id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Post", "Author").Save(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) Approve(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id IN ? AND is_approved = ?", ids, false).
		Update("is_approved", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
