package service

import (
	"context"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// UserService is the staff-facing account administration.
type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// UserFlags is a partial update of the account flags.
type UserFlags struct {
	IsStaff     *bool
	IsActive    *bool
	IsSuperuser *bool
	IsVerified  *bool
}

func (s *UserService) List(ctx context.Context, actor Actor, filter models.UserFilter, page, pageSize int) (*models.Page[models.User], error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	page, pageSize = clampPage(page, pageSize)
	users, total, err := s.userRepo.List(ctx, filter, pageSize, models.Offset(page, pageSize))
	if err != nil {
		return nil, err
	}
	return &models.Page[models.User]{Items: users, Total: total, Page: page, PageSize: pageSize}, nil
}

// SetFlags changes account flags. Only superusers may grant or revoke
// superuser, or touch any flag of a superuser account.
func (s *UserService) SetFlags(ctx context.Context, actor Actor, userID uint, flags UserFlags) (*models.User, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if flags.IsSuperuser != nil && !actor.IsSuperuser {
		return nil, models.NewForbiddenError(msgNoPermission)
	}
	if actor.UserID == userID && flags.IsStaff != nil && !*flags.IsStaff {
		return nil, models.NewValidationError("You cannot remove your own staff status.")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsSuperuser && !actor.IsSuperuser {
		return nil, models.NewForbiddenError(msgNoPermission)
	}
	return s.applyFlags(ctx, user, flags)
}

func (s *UserService) applyFlags(ctx context.Context, user *models.User, flags UserFlags) (*models.User, error) {
	// Superusers are always staff: dropping staff requires dropping superuser too.
	stillSuperuser := user.IsSuperuser
	if flags.IsSuperuser != nil {
		stillSuperuser = *flags.IsSuperuser
	}
	if stillSuperuser && flags.IsStaff != nil && !*flags.IsStaff && flags.IsSuperuser == nil {
		return nil, models.NewValidationError("A superuser cannot lose staff status.")
	}
	if flags.IsStaff != nil {
		user.IsStaff = *flags.IsStaff
	}
	if flags.IsActive != nil {
		user.IsActive = *flags.IsActive
	}
	if flags.IsSuperuser != nil {
		user.IsSuperuser = *flags.IsSuperuser
	}
	if user.IsSuperuser {
		user.IsStaff = true
	}
	if flags.IsVerified != nil {
		user.IsVerified = *flags.IsVerified
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "account flags changed",
		slog.Uint64("target_user_id", uint64(user.ID)),
		slog.Bool("is_staff", user.IsStaff),
		slog.Bool("is_active", user.IsActive),
		slog.Bool("is_superuser", user.IsSuperuser),
		slog.Bool("is_verified", user.IsVerified))
	return user, nil
}

// SetFlagsByEmail is the operator entry point used by the admin CLI.
func (s *UserService) SetFlagsByEmail(ctx context.Context, email string, flags UserFlags) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	return s.applyFlags(ctx, user, flags)
}

// CreateSuperuser creates a verified staff superuser, or promotes the existing account.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string) (*models.User, bool, error) {
	email = models.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, false, models.NewFieldError("email", err.Error())
	}
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	yes := true
	all := UserFlags{IsStaff: &yes, IsActive: &yes, IsSuperuser: &yes, IsVerified: &yes}
	if existing != nil {
		user, err := s.applyFlags(ctx, existing, all)
		return user, false, err
	}

	if err := validation.ValidatePassword(password, email); err != nil {
		return nil, false, passwordFieldError("password", err)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user := &models.User{
		Email:       email,
		Password:    hash,
		IsStaff:     true,
		IsActive:    true,
		IsSuperuser: true,
		IsVerified:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
