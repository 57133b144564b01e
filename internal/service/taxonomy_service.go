package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

const (
	maxCategoryTitle = 100
	maxTagName       = 50
)

// TaxonomyInput is the writable part of a category (Name holds the title) or tag.
type TaxonomyInput struct {
	Name string
	Slug string
}

// CategoryService manages post categories.
type CategoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// normalizeTaxonomy validates name and the optional slug, deriving the slug when blank.
func normalizeTaxonomy(in TaxonomyInput, nameField string, maxLen int) (string, string, bool, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", "", false, models.NewFieldError(nameField, "This field is required.")
	}
	if utf8.RuneCountInString(name) > maxLen {
		return "", "", false, models.NewFieldError(nameField, "Ensure this field has no more than "+strconv.Itoa(maxLen)+" characters.")
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return name, validation.Slugify(name), true, nil
	}
	if err := validation.ValidateSlug(slug); err != nil {
		return "", "", false, models.NewFieldError("slug", err.Error())
	}
	return name, slug, false, nil
}

func (s *CategoryService) List(ctx context.Context, page, pageSize int) (*models.Page[models.Category], error) {
	page, pageSize = clampPage(page, pageSize)
	items, total, err := s.repo.List(ctx, pageSize, models.Offset(page, pageSize))
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Category]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *CategoryService) Get(ctx context.Context, slug string) (*models.Category, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Create adds a category. An explicit slug must be free; a derived one gets a numeric suffix.
func (s *CategoryService) Create(ctx context.Context, actor Actor, in TaxonomyInput) (*models.Category, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	title, slug, derived, err := normalizeTaxonomy(in, "title", maxCategoryTitle)
	if err != nil {
		return nil, err
	}
	if derived {
		if slug, err = uniqueSlug(ctx, slug, 0, s.repo.SlugExists); err != nil {
			return nil, err
		}
	}
	category := &models.Category{Title: title, Slug: slug}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// GetOrCreate returns the category with the given (or derived) slug, creating it when missing.
func (s *CategoryService) GetOrCreate(ctx context.Context, in TaxonomyInput) (*models.Category, error) {
	title, slug, _, err := normalizeTaxonomy(in, "title", maxCategoryTitle)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetBySlug(ctx, slug)
	if err == nil {
		return existing, nil
	}
	if !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}
	category := &models.Category{Title: title, Slug: slug}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Update changes title and, when given, slug. Staff only.
func (s *CategoryService) Update(ctx context.Context, actor Actor, slug string, in TaxonomyInput) (*models.Category, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	category, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		in.Name = category.Title
	}
	if in.Slug == "" {
		in.Slug = category.Slug
	}
	title, newSlug, _, err := normalizeTaxonomy(in, "title", maxCategoryTitle)
	if err != nil {
		return nil, err
	}
	oldSlug := category.Slug
	category.Title, category.Slug = title, newSlug
	if err := s.repo.Update(ctx, category, oldSlug); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category; its posts become uncategorized. Staff only.
func (s *CategoryService) Delete(ctx context.Context, actor Actor, slug string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	category, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, category)
}

// TagService manages post tags.
type TagService struct {
	repo repository.TagRepository
}

func NewTagService(repo repository.TagRepository) *TagService {
	return &TagService{repo: repo}
}

func (s *TagService) List(ctx context.Context, page, pageSize int) (*models.Page[models.Tag], error) {
	page, pageSize = clampPage(page, pageSize)
	items, total, err := s.repo.List(ctx, pageSize, models.Offset(page, pageSize))
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Tag]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *TagService) Get(ctx context.Context, slug string) (*models.Tag, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *TagService) Create(ctx context.Context, actor Actor, in TaxonomyInput) (*models.Tag, error) {
	if err := requireAuthor(actor); err != nil {
		return nil, err
	}
	name, slug, derived, err := normalizeTaxonomy(in, "name", maxTagName)
	if err != nil {
		return nil, err
	}
	if derived {
		if slug, err = uniqueSlug(ctx, slug, 0, s.repo.SlugExists); err != nil {
			return nil, err
		}
	}
	tag := &models.Tag{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// Resolve maps tag slugs onto existing tags; an unknown slug is a validation error.
func (s *TagService) Resolve(ctx context.Context, slugs []string) ([]models.Tag, error) {
	if len(slugs) == 0 {
		return []models.Tag{}, nil
	}
	unique := make([]string, 0, len(slugs))
	seen := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		unique = append(unique, slug)
	}

	tags, err := s.repo.GetBySlugs(ctx, unique)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		found[t.Slug] = struct{}{}
	}
	for _, slug := range unique {
		if _, ok := found[slug]; !ok {
			return nil, models.NewFieldError("tags", "Object with slug="+slug+" does not exist.")
		}
	}
	return tags, nil
}

func (s *TagService) Update(ctx context.Context, actor Actor, slug string, in TaxonomyInput) (*models.Tag, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	tag, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		in.Name = tag.Name
	}
	if in.Slug == "" {
		in.Slug = tag.Slug
	}
	name, newSlug, _, err := normalizeTaxonomy(in, "name", maxTagName)
	if err != nil {
		return nil, err
	}
	oldSlug := tag.Slug
	tag.Name, tag.Slug = name, newSlug
	if err := s.repo.Update(ctx, tag, oldSlug); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, actor Actor, slug string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	tag, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, tag)
}
