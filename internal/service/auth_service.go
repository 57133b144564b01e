// Package service holds the business rules of the blog: accounts, posts, taxonomy,
// comments and media.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgPasswordMismatch   = "Password fields didn't match."
	msgPasswordsDiffer    = "Passwords do not match."
	msgBadCredentials     = "No active account found with the given credentials"
	msgNotVerified        = "User is not verified."
	msgAlreadyVerified    = "Account already verified."
	msgUserDoesNotExist   = "User does not exist."
	msgActivationExpired  = "Activation link has expired."
	msgResetExpired       = "Password reset link has expired."
	msgTokenMalformed     = "Token is malformed or invalid."
	msgTokenInvalid       = "Token is invalid or expired"
	msgTokenBlacklisted   = "Token is blacklisted"
	msgOldPasswordInvalid = "Old password is not correct."
)

// AccountMailer delivers the account emails. Implementations may send asynchronously.
type AccountMailer interface {
	SendActivation(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// AuthService implements registration, activation, JWT sessions and password management.
type AuthService struct {
	userRepo  repository.UserRepository
	tokens    *auth.Manager
	blacklist auth.Blacklist
	mailer    AccountMailer
	now       func() time.Time
}

// NewAuthService wires the account workflows.
func NewAuthService(
	userRepo repository.UserRepository,
	tokens *auth.Manager,
	blacklist auth.Blacklist,
	mailer AccountMailer,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokens:    tokens,
		blacklist: blacklist,
		mailer:    mailer,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	Password2 string
}

// LoginResult is a fresh token pair and the user it belongs to.
type LoginResult struct {
	Tokens *auth.TokenPair
	User   *models.User
}

type ChangePasswordInput struct {
	UserID          uint
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

type ResetPasswordInput struct {
	Token           string
	NewPassword     string
	ConfirmPassword string
}

// passwordFieldError keeps every failed rule reachable through errors.As.
func passwordFieldError(field string, err error) error {
	return &models.AppError{
		Code:    models.CodeValidation,
		Message: err.Error(),
		Field:   field,
		Err:     err,
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

func recordAuthEvent(event string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	middleware.AuthEvents.WithLabelValues(event, outcome).Inc()
}

// Register creates an unverified account and emails its activation link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "auth.register")
	defer func() {
		observability.EndSpan(span, err)
		recordAuthEvent("register", err)
	}()

	email := models.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldError("email", err.Error())
	}
	if in.Password != in.Password2 {
		return nil, models.NewFieldError("password", msgPasswordMismatch)
	}
	if err := validation.ValidatePassword(in.Password, email); err != nil {
		return nil, passwordFieldError("password", err)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewFieldError("email", "user with this email already exists.")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user = &models.User{Email: email, Password: hash}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.sendActivation(ctx, user)
	return user, nil
}

func (s *AuthService) sendActivation(ctx context.Context, user *models.User) {
	token, err := s.tokens.IssueActivation(user.ID)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "issue activation token", slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		return
	}
	if err := s.mailer.SendActivation(ctx, user.Email, token); err != nil {
		middleware.Logger.ErrorContext(ctx, "queue activation email", slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
	}
}

// Activate verifies the account named by an activation token.
func (s *AuthService) Activate(ctx context.Context, token string) (err error) {
	defer func() { recordAuthEvent("activate", err) }()

	claims, err := s.tokens.Parse(token, auth.TypeActivation)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return models.NewUnauthorizedError(msgActivationExpired)
		}
		return models.NewValidationError(msgTokenMalformed)
	}
	userID, _ := claims.UserID()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return models.NewValidationError(msgAlreadyVerified)
	}
	user.IsVerified = true
	return s.userRepo.Update(ctx, user)
}

// ResendActivation issues a new activation link for an unverified account.
func (s *AuthService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewValidationError(msgUserDoesNotExist)
	}
	if user.IsVerified {
		return models.NewValidationError(msgAlreadyVerified)
	}
	s.sendActivation(ctx, user)
	return nil
}

// Login checks credentials and returns an access/refresh pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "auth.login")
	defer func() {
		observability.EndSpan(span, err)
		recordAuthEvent("login", err)
	}()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// Run bcrypt even for unknown emails so timing does not reveal which accounts exist.
	hash := dummyHash
	if user != nil {
		hash = user.Password
	}
	passwordOK := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	if user == nil || !passwordOK || !user.IsActive {
		return nil, models.NewUnauthorizedError(msgBadCredentials)
	}
	if !user.IsVerified {
		return nil, models.NewFieldError("details", msgNotVerified)
	}

	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: pair, User: user}, nil
}

// dummyHash is a bcrypt hash of a random string, compared against when the email is unknown.
var dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoO5V3JYdM/2Ck8.GYSH3XCS.zrxPKL/by"

// Refresh rotates a refresh token: the presented one is blacklisted and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (pair *auth.TokenPair, err error) {
	defer func() { recordAuthEvent("refresh", err) }()

	claims, err := s.liveRefreshClaims(ctx, refresh)
	if err != nil {
		return nil, err
	}
	userID, _ := claims.UserID()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError(msgTokenInvalid)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError(msgBadCredentials)
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, claims.Expiry()); err != nil {
		return nil, models.NewInternalError(err)
	}
	pair, err = s.tokens.IssuePair(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pair, nil
}

func (s *AuthService) liveRefreshClaims(ctx context.Context, refresh string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(refresh, auth.TypeRefresh)
	if err != nil {
		return nil, models.NewUnauthorizedError(msgTokenInvalid)
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if revoked {
		return nil, models.NewUnauthorizedError(msgTokenBlacklisted)
	}
	return claims, nil
}

// Verify accepts a live access token or a non-blacklisted refresh token.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	if _, err := s.tokens.Parse(token, auth.TypeAccess); err == nil {
		return nil
	}
	_, err := s.liveRefreshClaims(ctx, token)
	return err
}

// Logout blacklists the refresh token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	claims, err := s.liveRefreshClaims(ctx, refresh)
	if err != nil {
		return err
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.Expiry()); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ChangePassword replaces the password of an authenticated user.
func (s *AuthService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.OldPassword)) != nil {
		return models.NewFieldError("old_password", msgOldPasswordInvalid)
	}
	if in.NewPassword != in.ConfirmPassword {
		return models.NewValidationError(msgPasswordsDiffer)
	}
	if err := validation.ValidatePassword(in.NewPassword, user.Email); err != nil {
		return passwordFieldError("new_password", err)
	}

	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hash
	return s.userRepo.Update(ctx, user)
}

// RequestPasswordReset emails a reset link bound to the current password hash.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { recordAuthEvent("password_reset_request", err) }()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewFieldError("email", "User with this email does not exist.")
	}

	token, err := s.tokens.IssueReset(user)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token.
// A token stops working once the password it was issued for has changed.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, in ResetPasswordInput) (err error) {
	defer func() { recordAuthEvent("password_reset_confirm", err) }()

	if in.NewPassword != in.ConfirmPassword {
		return models.NewValidationError(msgPasswordsDiffer)
	}

	claims, err := s.tokens.Parse(in.Token, auth.TypeReset)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return models.NewUnauthorizedError(msgResetExpired)
		}
		return models.NewValidationError(msgTokenMalformed)
	}
	userID, _ := claims.UserID()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if claims.Fingerprint != auth.PasswordFingerprint(user.Password) {
		return models.NewValidationError(msgTokenMalformed)
	}
	if err := validation.ValidatePassword(in.NewPassword, user.Email); err != nil {
		return passwordFieldError("new_password", err)
	}

	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hash
	return s.userRepo.Update(ctx, user)
}
