package service

import (
	"context"
	"fmt"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
)

const maxCommentLen = 5000

// CommentService implements comment listing, authoring and moderation.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

type ListCommentsInput struct {
	PostID      uint
	PendingOnly bool
	Page        int
	PageSize    int
}

type CreateCommentInput struct {
	PostID  uint
	Content string
}

func validateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewFieldError("content", "This field is required.")
	}
	if len(content) > maxCommentLen {
		return models.NewFieldError("content", "Ensure this field has no more than 5000 characters.")
	}
	return nil
}

func invalidPostError(id uint) error {
	return models.NewFieldError("post", fmt.Sprintf(`Invalid pk "%d" - object does not exist.`, id))
}

// CanViewComment reports whether actor may read c. c.Post must be loaded.
func CanViewComment(actor Actor, c *models.Comment) bool {
	if c.Post != nil && !CanView(actor, c.Post) {
		return false
	}
	if c.IsApproved || actor.IsStaff {
		return true
	}
	return actor.ProfileID != 0 && actor.ProfileID == c.AuthorID
}

// List returns the comments visible to actor. PendingOnly is a staff moderation queue.
func (s *CommentService) List(ctx context.Context, actor Actor, in ListCommentsInput) (*models.Page[models.Comment], error) {
	if in.PendingOnly {
		if err := requireStaff(actor); err != nil {
			return nil, err
		}
	}
	filter := models.CommentFilter{
		PostID:          in.PostID,
		ViewerProfileID: actor.ProfileID,
		ViewerIsStaff:   actor.IsStaff,
		PendingOnly:     in.PendingOnly,
	}
	page, pageSize := clampPage(in.Page, in.PageSize)
	items, total, err := s.commentRepo.List(ctx, filter, pageSize, models.Offset(page, pageSize))
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Comment]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get returns a single comment if actor may see it.
func (s *CommentService) Get(ctx context.Context, actor Actor, id uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanViewComment(actor, comment) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	return comment, nil
}

// Create adds a comment to a post the actor can see. Staff comments skip moderation.
func (s *CommentService) Create(ctx context.Context, actor Actor, in CreateCommentInput) (*models.Comment, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	if in.PostID == 0 {
		return nil, models.NewFieldError("post", "This field is required.")
	}
	if err := validateComment(in.Content); err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, invalidPostError(in.PostID)
		}
		return nil, err
	}
	if !CanView(actor, post) {
		return nil, invalidPostError(in.PostID)
	}

	comment := &models.Comment{
		PostID:     post.ID,
		AuthorID:   actor.ProfileID,
		Content:    in.Content,
		IsApproved: actor.IsStaff,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	if comment.IsApproved {
		middleware.CommentsModerated.Inc()
	}
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// Update edits the content of a comment. Only the author or staff may.
func (s *CommentService) Update(ctx context.Context, actor Actor, id uint, content string) (*models.Comment, error) {
	comment, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := requireModify(actor, comment.AuthorID); err != nil {
		return nil, err
	}
	if err := validateComment(content); err != nil {
		return nil, err
	}
	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, actor Actor, id uint) error {
	comment, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := requireModify(actor, comment.AuthorID); err != nil {
		return err
	}
	return s.commentRepo.Delete(ctx, id)
}

// Approve marks one comment approved. Staff only.
func (s *CommentService) Approve(ctx context.Context, actor Actor, id uint) (*models.Comment, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.commentRepo.Approve(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	middleware.CommentsModerated.Add(float64(n))
	comment.IsApproved = true
	return comment, nil
}

// ApproveMany approves a batch of comments and returns how many changed. Staff only.
func (s *CommentService) ApproveMany(ctx context.Context, actor Actor, ids []uint) (int64, error) {
	if err := requireStaff(actor); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, models.NewFieldError("ids", "This list may not be empty.")
	}
	n, err := s.commentRepo.Approve(ctx, ids)
	if err != nil {
		return 0, err
	}
	middleware.CommentsModerated.Add(float64(n))
	return n, nil
}
