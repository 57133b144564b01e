package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const (
	maxTitleLen   = 250
	maxContentLen = 100000
)

// PostService implements post listing, authoring and permissions.
type PostService struct {
	postRepo   repository.PostRepository
	categories *CategoryService
	tags       *TagService
}

func NewPostService(postRepo repository.PostRepository, categories *CategoryService, tags *TagService) *PostService {
	return &PostService{
		postRepo:   postRepo,
		categories: categories,
		tags:       tags,
	}
}

type ListPostsInput struct {
	Filter   models.PostFilter
	Page     int
	PageSize int
}

// CreatePostInput is a new post. Category is get-or-create; Tags are slugs of existing tags.
type CreatePostInput struct {
	Title    string
	Content  string
	Status   string
	Category *TaxonomyInput
	Tags     []string
}

// UpdatePostInput carries a partial update: nil fields are left unchanged.
type UpdatePostInput struct {
	Title    *string
	Content  *string
	Status   *string
	Category *TaxonomyInput
	// ClearCategory detaches the post from its category.
	ClearCategory bool
	Tags          *[]string
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewFieldError("title", "This field is required.")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return models.NewFieldError("title", "Ensure this field has no more than 250 characters.")
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewFieldError("content", "This field is required.")
	}
	if len(content) > maxContentLen {
		return models.NewFieldError("content", "Ensure this field has no more than 100000 characters.")
	}
	return nil
}

func validateStatus(status string) error {
	if !models.ValidPostStatus(status) {
		return models.NewFieldError("status", `"`+status+`" is not a valid choice.`)
	}
	return nil
}

// List returns the posts visible to actor, filtered and paginated.
func (s *PostService) List(ctx context.Context, actor Actor, in ListPostsInput) (*models.Page[models.Post], error) {
	filter := in.Filter
	if filter.Status != "" {
		if err := validateStatus(filter.Status); err != nil {
			return nil, err
		}
	}
	if !repository.ValidPostOrdering(filter.Ordering) {
		return nil, models.NewFieldError("ordering", "Unsupported ordering: "+filter.Ordering)
	}
	filter.ViewerProfileID = actor.ProfileID
	filter.ViewerIsStaff = actor.IsStaff

	page, pageSize := clampPage(in.Page, in.PageSize)
	posts, total, err := s.postRepo.List(ctx, filter, pageSize, models.Offset(page, pageSize))
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Post]{Items: posts, Total: total, Page: page, PageSize: pageSize}, nil
}

// CanView reports whether actor may read post. Drafts are private to their author and staff.
func CanView(actor Actor, post *models.Post) bool {
	if !post.IsDraft() {
		return true
	}
	return actor.IsStaff || (actor.ProfileID != 0 && actor.ProfileID == post.AuthorID)
}

// Get returns a post by slug, hiding drafts the actor may not see.
func (s *PostService) Get(ctx context.Context, actor Actor, slug string) (*models.Post, error) {
	post, err := s.postRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, post) {
		return nil, models.NewNotFoundError("Post", slug)
	}
	return post, nil
}

// Create publishes or drafts a post authored by the actor's profile.
func (s *PostService) Create(ctx context.Context, actor Actor, in CreatePostInput) (*models.Post, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	tags, err := s.tags.Resolve(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		Status:   status,
		AuthorID: actor.ProfileID,
		Tags:     tags,
	}
	if in.Category != nil {
		category, err := s.categories.GetOrCreate(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		post.CategoryID = &category.ID
	}

	post.Slug, err = uniqueSlug(ctx, validation.Slugify(post.Title), 0, s.postRepo.SlugExists)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

// Update applies a partial update. The slug is stable once assigned.
func (s *PostService) Update(ctx context.Context, actor Actor, slug string, in UpdatePostInput) (post *models.Post, published bool, err error) {
	post, err = s.Get(ctx, actor, slug)
	if err != nil {
		return nil, false, err
	}
	if err := requireModify(actor, post.AuthorID); err != nil {
		return nil, false, err
	}
	wasDraft := post.IsDraft()

	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, false, err
		}
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		if err := validateContent(*in.Content); err != nil {
			return nil, false, err
		}
		post.Content = *in.Content
	}
	if in.Status != nil {
		if err := validateStatus(*in.Status); err != nil {
			return nil, false, err
		}
		post.Status = *in.Status
	}
	switch {
	case in.ClearCategory:
		post.CategoryID = nil
		post.Category = nil
	case in.Category != nil:
		category, err := s.categories.GetOrCreate(ctx, *in.Category)
		if err != nil {
			return nil, false, err
		}
		post.CategoryID = &category.ID
		post.Category = category
	}
	if in.Tags != nil {
		tags, err := s.tags.Resolve(ctx, *in.Tags)
		if err != nil {
			return nil, false, err
		}
		post.Tags = tags
	}

	if err := s.postRepo.Update(ctx, post, slug); err != nil {
		return nil, false, err
	}
	updated, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, false, err
	}
	return updated, wasDraft && !updated.IsDraft(), nil
}

// SetImage stores the public URL of an uploaded post image.
func (s *PostService) SetImage(ctx context.Context, actor Actor, slug, imageURL string) (*models.Post, error) {
	post, err := s.Get(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err := requireModify(actor, post.AuthorID); err != nil {
		return nil, err
	}
	post.Image = imageURL
	if err := s.postRepo.Update(ctx, post, slug); err != nil {
		return nil, err
	}
	return post, nil
}

// CheckModify loads a post and verifies the actor may change it.
func (s *PostService) CheckModify(ctx context.Context, actor Actor, slug string) (*models.Post, error) {
	post, err := s.Get(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	if err := requireModify(actor, post.AuthorID); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post with its comments.
func (s *PostService) Delete(ctx context.Context, actor Actor, slug string) error {
	post, err := s.CheckModify(ctx, actor, slug)
	if err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, post)
}
