package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateUserFlagsRequest struct {
	IsStaff     *bool `json:"is_staff"`
	IsActive    *bool `json:"is_active"`
	IsSuperuser *bool `json:"is_superuser"`
	IsVerified  *bool `json:"is_verified"`
}

type approveCommentsRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1"`
}

// AdminListUsers handles GET /api/v1/admin/users
// @Summary List accounts
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param is_staff query bool false "Filter by staff flag"
// @Param is_active query bool false "Filter by active flag"
// @Param is_superuser query bool false "Filter by superuser flag"
// @Param is_verified query bool false "Filter by verified flag"
// @Param search query string false "Email substring"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} pageResponse[userResponse]
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page, pageSize := pageParams(c)
	filter := models.UserFilter{
		IsStaff:     optionalBool(c, "is_staff"),
		IsActive:    optionalBool(c, "is_active"),
		IsSuperuser: optionalBool(c, "is_superuser"),
		IsVerified:  optionalBool(c, "is_verified"),
		Search:      c.Query("search"),
	}
	result, err := s.userService.List(c.UserContext(), actor(c), filter, page, pageSize)
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, result, renderUser)
}

// AdminUpdateUser handles PATCH /api/v1/admin/users/:id
// @Summary Change account flags
// @Description Only superusers may grant or revoke superuser
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User id"
// @Param request body updateUserFlagsRequest true "Flags to change"
// @Success 200 {object} userResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/admin/users/{id} [patch]
func (s *Server) AdminUpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateUserFlagsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.userService.SetFlags(c.UserContext(), actor(c), id, service.UserFlags{
		IsStaff:     req.IsStaff,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
		IsVerified:  req.IsVerified,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderUser(user))
}

// AdminPendingComments handles GET /api/v1/admin/comments/pending
// @Summary Moderation queue
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param post query int false "Post id"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} pageResponse[commentResponse]
// @Router /v1/admin/comments/pending [get]
func (s *Server) AdminPendingComments(c *fiber.Ctx) error {
	result, err := s.pendingComments(c)
	if err != nil {
		return respondError(c, err)
	}
	return respondPage(c, result, renderComment)
}

// AdminApproveComments handles POST /api/v1/admin/comments/approve
// @Summary Approve comments in bulk
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body approveCommentsRequest true "Comment ids"
// @Success 200 {object} object{approved=int}
// @Failure 400 {object} models.ErrorResponse
// @Router /v1/admin/comments/approve [post]
func (s *Server) AdminApproveComments(c *fiber.Ctx) error {
	var req approveCommentsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	n, err := s.commentService.ApproveMany(c.UserContext(), actor(c), req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"approved": n})
}

// GetFeatureFlags handles GET /api/v1/admin/feature-flags
// @Summary Feature flag configuration
// @Description Raw values and their evaluation for the caller
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /v1/admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(callerID(c)),
	})
}
