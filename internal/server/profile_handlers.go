package server

import (
	"io"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Bio       *string `json:"bio"`
}

// GetProfile handles GET /api/v1/accounts/profile
// @Summary Current user's profile
// @Tags accounts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} profileResponse
// @Router /v1/accounts/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.Get(c.UserContext(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderProfile(profile))
}

// UpdateProfile handles PUT and PATCH /api/v1/accounts/profile
// @Summary Update names and bio
// @Tags accounts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body updateProfileRequest true "Profile fields"
// @Success 200 {object} profileResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /v1/accounts/profile [patch]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	profile, err := s.profileService.Update(c.UserContext(), callerID(c), service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderProfile(profile))
}

// readUpload reads the "image" multipart file, refusing files above limit.
// On failure it writes a 400 response and returns errResponseWritten.
func readUpload(c *fiber.Ctx, limit int64) (service.UploadImageInput, error) {
	file, err := c.FormFile("image")
	if err != nil {
		_ = respondError(c, models.NewFieldError("image", "No file was submitted."))
		return service.UploadImageInput{}, errResponseWritten
	}
	if file.Size > limit {
		_ = respondError(c, models.NewFieldError("image", "File too large"))
		return service.UploadImageInput{}, errResponseWritten
	}

	src, err := file.Open()
	if err != nil {
		_ = respondError(c, models.NewFieldError("image", "Unable to read uploaded file"))
		return service.UploadImageInput{}, errResponseWritten
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		_ = respondError(c, models.NewFieldError("image", "Unable to read uploaded file"))
		return service.UploadImageInput{}, errResponseWritten
	}

	return service.UploadImageInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// UploadProfileImage handles POST /api/v1/accounts/profile/image
// @Summary Upload an avatar
// @Tags accounts
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file"
// @Success 200 {object} profileResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /v1/accounts/profile/image [post]
func (s *Server) UploadProfileImage(c *fiber.Ctx) error {
	in, err := readUpload(c, s.imageService.MaxUploadSizeBytes())
	if err != nil {
		return nil
	}
	in.Kind = service.ImageKindProfile
	in.OwnerID = callerID(c)

	stored, err := s.imageService.Upload(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	profile, err := s.profileService.SetImage(c.UserContext(), callerID(c), stored.URL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(renderProfile(profile))
}
