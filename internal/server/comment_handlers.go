package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Post    uint   `json:"post" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type updateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// ListComments handles GET /api/v1/blog/comments
// @Summary List comments
// @Description Approved comments, plus the caller's own pending ones; staff see all
// @Tags blog
// @Produce json
// @Param post query int false "Post id"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} pageResponse[commentResponse]
// @Router /v1/blog/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	postID := c.QueryInt("post", 0)
	if postID < 0 {
		postID = 0
	}
	result, err := s.commentService.List(c.UserContext(), actor(c), service.ListCommentsInput{
		PostID:   uint(postID),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, result, renderComment)
}

// CreateComment handles POST /api/v1/blog/comments
// @Summary Comment on a post
// @Description Comments by non-staff wait for moderation
// @Tags blog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} commentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /v1/blog/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.commentService.Create(c.UserContext(), actor(c), service.CreateCommentInput{
		PostID:  req.Post,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	s.publishCommentCreated(c.UserContext(), callerID(c), comment)
	return c.Status(fiber.StatusCreated).JSON(renderComment(comment))
}

// GetComment handles GET /api/v1/blog/comments/:id
// @Summary Retrieve a comment
// @Tags blog
// @Produce json
// @Param id path int true "Comment id"
// @Success 200 {object} commentResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/blog/comments/{id} [get]
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.Get(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderComment(comment))
}

// UpdateComment handles PUT and PATCH /api/v1/blog/comments/:id
// @Summary Edit a comment
// @Description Author or staff only
// @Tags blog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Comment id"
// @Param request body updateCommentRequest true "New content"
// @Success 200 {object} commentResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/comments/{id} [patch]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.commentService.Update(c.UserContext(), actor(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderComment(comment))
}

// DeleteComment handles DELETE /api/v1/blog/comments/:id
// @Summary Delete a comment
// @Tags blog
// @Security BearerAuth
// @Param id path int true "Comment id"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/blog/comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type approvedCommentResponse struct {
	Detail string `json:"detail"`
	commentResponse
}

// ApproveComment handles POST /api/v1/blog/comments/:id/approve
// @Summary Approve a pending comment
// @Description Staff only
// @Tags blog
// @Security BearerAuth
// @Produce json
// @Param id path int true "Comment id"
// @Success 200 {object} approvedCommentResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/blog/comments/{id}/approve [post]
func (s *Server) ApproveComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.Approve(c.UserContext(), actor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	s.publishCommentApproved(c.UserContext(), callerID(c), comment)
	return c.JSON(approvedCommentResponse{Detail: "Comment approved.", commentResponse: renderComment(comment)})
}

// pendingComments lists comments awaiting moderation, newest first.
func (s *Server) pendingComments(c *fiber.Ctx) (*models.Page[models.Comment], error) {
	page, pageSize := pageParams(c)
	postID := c.QueryInt("post", 0)
	if postID < 0 {
		postID = 0
	}
	return s.commentService.List(c.UserContext(), actor(c), service.ListCommentsInput{
		PostID:      uint(postID),
		PendingOnly: true,
		Page:        page,
		PageSize:    pageSize,
	})
}
