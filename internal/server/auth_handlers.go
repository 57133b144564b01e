package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type resetConfirmRequest struct {
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// Register handles POST /api/v1/accounts/register
// @Summary Register an account
// @Description Creates an unverified account and emails an activation link
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string,password2=string} true "Registration"
// @Success 201 {object} object{email=string,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /v1/accounts/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"email":   user.Email,
		"message": "User created. Activation email sent.",
	})
}

// ActivationConfirm handles GET /api/v1/accounts/activation/confirm/:token
// @Summary Activate an account
// @Tags accounts
// @Produce json
// @Param token path string true "Activation token"
// @Success 200 {object} object{detail=string}
// @Failure 400 {object} object{detail=string}
// @Failure 401 {object} object{detail=string}
// @Router /v1/accounts/activation/confirm/{token} [get]
func (s *Server) ActivationConfirm(c *fiber.Ctx) error {
	if err := s.authService.Activate(c.UserContext(), c.Params("token")); err != nil {
		return respondAccountError(c, err)
	}
	return respondDetail(c, fiber.StatusOK, "Your account has been successfully verified.")
}

// ActivationResend handles POST /api/v1/accounts/activation/resend
// @Summary Resend the activation email
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} object{detail=string}
// @Failure 400 {object} object{detail=string}
// @Router /v1/accounts/activation/resend [post]
func (s *Server) ActivationResend(c *fiber.Ctx) error {
	var req emailRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.authService.ResendActivation(c.UserContext(), req.Email); err != nil {
		return respondAccountError(c, err)
	}
	return respondDetail(c, fiber.StatusOK, "Activation email resent successfully.")
}

// Login handles POST /api/v1/accounts/jwt/create
// @Summary Obtain a JWT pair
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} object{access=string,refresh=string,user_id=int,email=string}
// @Failure 400 {object} object{details=string}
// @Failure 401 {object} object{detail=string}
// @Router /v1/accounts/jwt/create [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondAccountError(c, err)
	}

	return c.JSON(fiber.Map{
		"access":  res.Tokens.Access,
		"refresh": res.Tokens.Refresh,
		"user_id": res.User.ID,
		"email":   res.User.Email,
	})
}

// RefreshToken handles POST /api/v1/accounts/jwt/refresh
// @Summary Rotate a refresh token
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body object{refresh=string} true "Refresh token"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} object{detail=string}
// @Router /v1/accounts/jwt/refresh [post]
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	pair, err := s.authService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return respondAccountError(c, err)
	}
	return c.JSON(pair)
}

// VerifyToken handles POST /api/v1/accounts/jwt/verify
// @Summary Check a token
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body object{token=string} true "Access or refresh token"
// @Success 200 {object} object{}
// @Failure 401 {object} object{detail=string}
// @Router /v1/accounts/jwt/verify [post]
func (s *Server) VerifyToken(c *fiber.Ctx) error {
	var req verifyRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.authService.Verify(c.UserContext(), req.Token); err != nil {
		return respondAccountError(c, err)
	}
	return c.JSON(fiber.Map{})
}

// Logout handles POST /api/v1/accounts/logout
// @Summary Blacklist a refresh token
// @Tags accounts
// @Accept json
// @Param request body object{refresh=string} true "Refresh token"
// @Success 205
// @Failure 401 {object} object{detail=string}
// @Router /v1/accounts/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.authService.Logout(c.UserContext(), req.Refresh); err != nil {
		return respondAccountError(c, err)
	}
	return c.SendStatus(fiber.StatusResetContent)
}

// ChangePassword handles PUT /api/v1/accounts/change-password
// @Summary Change the caller's password
// @Tags accounts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{old_password=string,new_password=string,confirm_password=string} true "Passwords"
// @Success 200 {object} object{detail=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /v1/accounts/change-password [put]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	err := s.authService.ChangePassword(c.UserContext(), service.ChangePasswordInput{
		UserID:          callerID(c),
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return respondAccountError(c, err)
	}
	return respondDetail(c, fiber.StatusOK, "Password changed successfully.")
}

// PasswordResetRequest handles POST /api/v1/accounts/password-reset
// @Summary Email a password reset link
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} object{detail=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /v1/accounts/password-reset [post]
func (s *Server) PasswordResetRequest(c *fiber.Ctx) error {
	var req emailRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return respondAccountError(c, err)
	}
	return respondDetail(c, fiber.StatusOK, "Password reset link sent.")
}

// PasswordResetConfirm handles POST /api/v1/accounts/password-reset/confirm/:token
// @Summary Set a new password with a reset token
// @Tags accounts
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body object{new_password=string,confirm_password=string} true "New password"
// @Success 200 {object} object{detail=string}
// @Failure 400 {object} object{detail=string}
// @Failure 401 {object} object{detail=string}
// @Router /v1/accounts/password-reset/confirm/{token} [post]
func (s *Server) PasswordResetConfirm(c *fiber.Ctx) error {
	var req resetConfirmRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	err := s.authService.ConfirmPasswordReset(c.UserContext(), service.ResetPasswordInput{
		Token:           c.Params("token"),
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return respondAccountError(c, err)
	}
	return respondDetail(c, fiber.StatusOK, "Password has been reset.")
}
