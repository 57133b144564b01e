package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type categoryRequest struct {
	Title string `json:"title" validate:"required,max=100"`
	Slug  string `json:"slug" validate:"omitempty,slug,max=120"`
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
	Slug string `json:"slug" validate:"omitempty,slug,max=60"`
}

// Updates keep blank fields; PUT still requires the display name.
type updateCategoryRequest struct {
	Title string `json:"title" validate:"omitempty,max=100"`
	Slug  string `json:"slug" validate:"omitempty,slug,max=120"`
}

type updateTagRequest struct {
	Name string `json:"name" validate:"omitempty,max=50"`
	Slug string `json:"slug" validate:"omitempty,slug,max=60"`
}

// requireOnPut reports a missing field for full updates.
func requireOnPut(c *fiber.Ctx, field, value string) error {
	if c.Method() == fiber.MethodPut && value == "" {
		_ = respondError(c, models.NewFieldError(field, "This field is required."))
		return errResponseWritten
	}
	return nil
}

// ListCategories handles GET /api/v1/blog/category
// @Summary List categories
// @Tags blog
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} pageResponse[categoryResponse]
// @Router /v1/blog/category [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	result, err := s.categoryService.List(c.UserContext(), page, pageSize)
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, result, func(cat *models.Category) categoryResponse { return renderCategory(c, cat) })
}

// CreateCategory handles POST /api/v1/blog/category
// @Summary Create a category
// @Tags blog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body categoryRequest true "Category"
// @Success 201 {object} categoryResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /v1/blog/category [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	category, err := s.categoryService.Create(c.UserContext(), actor(c), service.TaxonomyInput{Name: req.Title, Slug: req.Slug})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(renderCategory(c, category))
}

// GetCategory handles GET /api/v1/blog/category/:slug
// @Summary Retrieve a category
// @Tags blog
// @Produce json
// @Param slug path string true "Category slug"
// @Success 200 {object} categoryResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/blog/category/{slug} [get]
func (s *Server) GetCategory(c *fiber.Ctx) error {
	category, err := s.categoryService.Get(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderCategory(c, category))
}

// UpdateCategory handles PUT and PATCH /api/v1/blog/category/:slug
// @Summary Rename a category
// @Description Staff only
// @Tags blog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "Category slug"
// @Param request body updateCategoryRequest true "Category"
// @Success 200 {object} categoryResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/category/{slug} [patch]
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	var req updateCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := requireOnPut(c, "title", req.Title); err != nil {
		return nil
	}
	category, err := s.categoryService.Update(c.UserContext(), actor(c), c.Params("slug"),
		service.TaxonomyInput{Name: req.Title, Slug: req.Slug})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderCategory(c, category))
}

// DeleteCategory handles DELETE /api/v1/blog/category/:slug
// @Summary Delete a category
// @Description Staff only. Posts in the category become uncategorized
// @Tags blog
// @Security BearerAuth
// @Param slug path string true "Category slug"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/category/{slug} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	if err := s.categoryService.Delete(c.UserContext(), actor(c), c.Params("slug")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListTags handles GET /api/v1/blog/tags
// @Summary List tags
// @Tags blog
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} pageResponse[tagResponse]
// @Router /v1/blog/tags [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	result, err := s.tagService.List(c.UserContext(), page, pageSize)
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, result, func(t *models.Tag) tagResponse { return renderTag(c, t) })
}

// CreateTag handles POST /api/v1/blog/tags
// @Summary Create a tag
// @Tags blog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body tagRequest true "Tag"
// @Success 201 {object} tagResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /v1/blog/tags [post]
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req tagRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	tag, err := s.tagService.Create(c.UserContext(), actor(c), service.TaxonomyInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(renderTag(c, tag))
}

// GetTag handles GET /api/v1/blog/tags/:slug
// @Summary Retrieve a tag
// @Tags blog
// @Produce json
// @Param slug path string true "Tag slug"
// @Success 200 {object} tagResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/blog/tags/{slug} [get]
func (s *Server) GetTag(c *fiber.Ctx) error {
	tag, err := s.tagService.Get(c.UserContext(), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderTag(c, tag))
}

// UpdateTag handles PUT and PATCH /api/v1/blog/tags/:slug
// @Summary Rename a tag
// @Description Staff only
// @Tags blog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "Tag slug"
// @Param request body updateTagRequest true "Tag"
// @Success 200 {object} tagResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/tags/{slug} [patch]
func (s *Server) UpdateTag(c *fiber.Ctx) error {
	var req updateTagRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := requireOnPut(c, "name", req.Name); err != nil {
		return nil
	}
	tag, err := s.tagService.Update(c.UserContext(), actor(c), c.Params("slug"),
		service.TaxonomyInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderTag(c, tag))
}

// DeleteTag handles DELETE /api/v1/blog/tags/:slug
// @Summary Delete a tag
// @Tags blog
// @Security BearerAuth
// @Param slug path string true "Tag slug"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/tags/{slug} [delete]
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	if err := s.tagService.Delete(c.UserContext(), actor(c), c.Params("slug")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
