package repository

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetAuthState returns the cached flags checked on every authenticated request.
	GetAuthState(ctx context.Context, id uint) (*models.AuthState, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Create inserts the user together with an empty profile.
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter models.UserFilter, limit, offset int) ([]models.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetAuthState(ctx context.Context, id uint) (*models.AuthState, error) {
	var state models.AuthState
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &state, cache.UserTTL, func() error {
		var user models.User
		if err := r.db.WithContext(ctx).Select("id", "email", "is_staff", "is_active", "is_superuser", "is_verified").
			First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		var profile models.Profile
		if err := r.db.WithContext(ctx).Select("id").Where("user_id = ?", id).First(&profile).Error; err == nil {
			user.Profile = &profile
		} else if !isNotFound(err) {
			return models.NewInternalError(err)
		}
		state = models.AuthStateOf(&user)
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(user).Error; err != nil {
			return err
		}
		profile := &models.Profile{UserID: user.ID}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldError("email", "user with this email already exists.")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("Profile").Save(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SQLite does not enforce cascades unless foreign keys are on; delete the profile explicitly.
		if err := tx.Where("user_id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) List(ctx context.Context, filter models.UserFilter, limit, offset int) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if filter.IsStaff != nil {
		q = q.Where("is_staff = ?", *filter.IsStaff)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsSuperuser != nil {
		q = q.Where("is_superuser = ?", *filter.IsSuperuser)
	}
	if filter.IsVerified != nil {
		q = q.Where("is_verified = ?", *filter.IsVerified)
	}
	if filter.Search != "" {
		q = q.Where("LOWER(email) LIKE ? ESCAPE '\\'", likePattern(filter.Search))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	if err := q.Order("email ASC").Scopes(paginate(limit, offset)).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}
