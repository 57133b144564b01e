package server

import (
	"bytes"
	"encoding/json"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type categoryPayload struct {
	Title string `json:"title" validate:"required,max=100"`
	Slug  string `json:"slug" validate:"omitempty,slug,max=120"`
}

type createPostRequest struct {
	Title    string           `json:"title" validate:"required,max=250"`
	Content  string           `json:"content" validate:"required"`
	Status   string           `json:"status" validate:"omitempty,oneof=draft published"`
	Category *categoryPayload `json:"category"`
	Tags     []string         `json:"tags"`
}

// updatePostRequest is a partial update. A JSON null category detaches the post.
type updatePostRequest struct {
	Title    *string         `json:"title" validate:"omitempty,max=250"`
	Content  *string         `json:"content"`
	Status   *string         `json:"status" validate:"omitempty,oneof=draft published"`
	Category json.RawMessage `json:"category" swaggertype:"object"`
	Tags     *[]string       `json:"tags"`
}

func (p *categoryPayload) input() *service.TaxonomyInput {
	if p == nil {
		return nil
	}
	return &service.TaxonomyInput{Name: p.Title, Slug: p.Slug}
}

// ListPosts handles GET /api/v1/blog/posts
// @Summary List posts
// @Description Published posts for everyone, plus the caller's drafts; staff see every draft
// @Tags blog
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param status query string false "draft or published"
// @Param search query string false "Search title and content"
// @Param category query string false "Category slug"
// @Param tags query string false "Tag slug"
// @Param author query string false "Author email"
// @Param ordering query string false "created_date, -created_date, title or -title"
// @Success 200 {object} pageResponse[postResponse]
// @Router /v1/blog/posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	result, err := s.postService.List(c.UserContext(), actor(c), service.ListPostsInput{
		Filter: models.PostFilter{
			Status:   c.Query("status"),
			Search:   c.Query("search"),
			Category: c.Query("category"),
			Tag:      c.Query("tags"),
			Author:   c.Query("author"),
			Ordering: c.Query("ordering"),
		},
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, result, func(p *models.Post) postResponse { return s.renderPost(c, p) })
}

// CreatePost handles POST /api/v1/blog/posts
// @Summary Create a post
// @Description The category object is get-or-create; tags must be existing tag slugs
// @Tags blog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createPostRequest true "Post"
// @Success 201 {object} postResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /v1/blog/posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Create(c.UserContext(), actor(c), service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Status:   req.Status,
		Category: req.Category.input(),
		Tags:     req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}

	if !post.IsDraft() {
		s.publishPostPublished(c.UserContext(), post)
	}
	return c.Status(fiber.StatusCreated).JSON(s.renderPost(c, post))
}

// GetPost handles GET /api/v1/blog/posts/:slug
// @Summary Retrieve a post
// @Tags blog
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} postResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/blog/posts/{slug} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	slug := c.Params("slug")
	a := actor(c)

	// Anonymous readers only ever see published posts, so their view is shared.
	if !a.Authenticated() {
		var resp postResponse
		err := cache.Aside(c.UserContext(), cache.PostSlugKey(slug), &resp, cache.PostTTL, func() error {
			post, err := s.postService.Get(c.UserContext(), a, slug)
			if err != nil {
				return err
			}
			resp = s.renderPost(c, post)
			return nil
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(resp)
	}

	post, err := s.postService.Get(c.UserContext(), a, slug)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.renderPost(c, post))
}

// UpdatePost handles PUT and PATCH /api/v1/blog/posts/:slug
// @Summary Update a post
// @Description Author or staff only. PUT requires title and content
// @Tags blog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "Post slug"
// @Param request body updatePostRequest true "Fields to change"
// @Success 200 {object} postResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/posts/{slug} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req updatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if c.Method() == fiber.MethodPut {
		switch {
		case req.Title == nil:
			return respondError(c, models.NewFieldError("title", "This field is required."))
		case req.Content == nil:
			return respondError(c, models.NewFieldError("content", "This field is required."))
		}
	}

	in := service.UpdatePostInput{
		Title:   req.Title,
		Content: req.Content,
		Status:  req.Status,
		Tags:    req.Tags,
	}
	if raw := bytes.TrimSpace(req.Category); len(raw) > 0 {
		if bytes.Equal(raw, []byte("null")) {
			in.ClearCategory = true
		} else {
			var category categoryPayload
			if err := json.Unmarshal(raw, &category); err != nil {
				return respondError(c, models.NewFieldError("category", "Invalid category object."))
			}
			if err := parseStruct(c, &category); err != nil {
				return nil
			}
			in.Category = category.input()
		}
	}

	post, published, err := s.postService.Update(c.UserContext(), actor(c), c.Params("slug"), in)
	if err != nil {
		return respondError(c, err)
	}
	if published {
		s.publishPostPublished(c.UserContext(), post)
	}
	return c.JSON(s.renderPost(c, post))
}

// DeletePost handles DELETE /api/v1/blog/posts/:slug
// @Summary Delete a post
// @Tags blog
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/posts/{slug} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.Delete(c.UserContext(), actor(c), c.Params("slug")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadPostImage handles POST /api/v1/blog/posts/:slug/image
// @Summary Upload a post image
// @Tags blog
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param slug path string true "Post slug"
// @Param image formData file true "Image file"
// @Success 200 {object} postResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/posts/{slug}/image [post]
func (s *Server) UploadPostImage(c *fiber.Ctx) error {
	slug := c.Params("slug")
	post, err := s.postService.CheckModify(c.UserContext(), actor(c), slug)
	if err != nil {
		return respondError(c, err)
	}

	in, err := readUpload(c, s.imageService.MaxUploadSizeBytes())
	if err != nil {
		return nil
	}
	in.Kind = service.ImageKindPost
	in.OwnerID = post.AuthorID

	stored, err := s.imageService.Upload(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	post, err = s.postService.SetImage(c.UserContext(), actor(c), slug, stored.URL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.renderPost(c, post))
}
