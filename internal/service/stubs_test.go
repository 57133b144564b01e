package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.User, error)
	getAuthStateFn func(context.Context, uint) (*models.AuthState, error)
	getByEmailFn   func(context.Context, string) (*models.User, error)
	createFn       func(context.Context, *models.User) error
	updateFn       func(context.Context, *models.User) error
	deleteFn       func(context.Context, uint) error
	listFn         func(context.Context, models.UserFilter, int, int) ([]models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetAuthState(ctx context.Context, id uint) (*models.AuthState, error) {
	return s.getAuthStateFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, f models.UserFilter, limit, offset int) ([]models.User, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}

// memoryUserRepo returns a userRepoStub backed by a map keyed by email.
func memoryUserRepo(seed ...*models.User) *userRepoStub {
	var mu sync.Mutex
	byEmail := map[string]*models.User{}
	var nextID uint = 1
	for _, u := range seed {
		if u.ID == 0 {
			u.ID = nextID
		}
		if u.ID >= nextID {
			nextID = u.ID + 1
		}
		byEmail[u.Email] = u
	}
	find := func(id uint) *models.User {
		for _, u := range byEmail {
			if u.ID == id {
				return u
			}
		}
		return nil
	}

	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			if u := find(id); u != nil {
				cp := *u
				return &cp, nil
			}
			return nil, models.NewNotFoundError("User", id)
		},
		getAuthStateFn: func(_ context.Context, id uint) (*models.AuthState, error) {
			mu.Lock()
			defer mu.Unlock()
			if u := find(id); u != nil {
				state := models.AuthStateOf(u)
				return &state, nil
			}
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			if u, ok := byEmail[models.NormalizeEmail(email)]; ok {
				cp := *u
				return &cp, nil
			}
			return nil, nil
		},
		createFn: func(_ context.Context, u *models.User) error {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := byEmail[u.Email]; ok {
				return models.NewFieldError("email", "user with this email already exists.")
			}
			u.ID = nextID
			nextID++
			u.Profile = &models.Profile{ID: u.ID, UserID: u.ID}
			cp := *u
			byEmail[u.Email] = &cp
			return nil
		},
		updateFn: func(_ context.Context, u *models.User) error {
			mu.Lock()
			defer mu.Unlock()
			cp := *u
			byEmail[u.Email] = &cp
			return nil
		},
		deleteFn: func(_ context.Context, id uint) error {
			mu.Lock()
			defer mu.Unlock()
			if u := find(id); u != nil {
				delete(byEmail, u.Email)
			}
			return nil
		},
		listFn: func(_ context.Context, _ models.UserFilter, _, _ int) ([]models.User, int64, error) {
			mu.Lock()
			defer mu.Unlock()
			out := make([]models.User, 0, len(byEmail))
			for _, u := range byEmail {
				out = append(out, *u)
			}
			return out, int64(len(out)), nil
		},
	}
}

// mailerStub records the tokens handed to AccountMailer.
type mailerStub struct {
	mu          sync.Mutex
	activations map[string]string
	resets      map[string]string
	err         error
}

func newMailerStub() *mailerStub {
	return &mailerStub{activations: map[string]string{}, resets: map[string]string{}}
}

func (m *mailerStub) SendActivation(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activations[email] = token
	return m.err
}

func (m *mailerStub) SendPasswordReset(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[email] = token
	return m.err
}

func (m *mailerStub) activation(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activations[email]
}

func (m *mailerStub) reset(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[email]
}

func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) *models.AppError {
	t.Helper()
	return assertCode(t, err, models.CodeValidation)
}

func assertFieldError(t *testing.T, err error, field string) *models.AppError {
	t.Helper()
	appErr := assertValidationError(t, err)
	assert.Equal(t, field, appErr.Field)
	return appErr
}
