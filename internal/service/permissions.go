package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/validation"
)

const msgNoPermission = "You do not have permission to perform this action."

// Actor is the caller as seen by permission checks. The zero value is an anonymous visitor.
type Actor struct {
	UserID      uint
	ProfileID   uint
	Email       string
	IsStaff     bool
	IsSuperuser bool
}

// ActorFromState builds an Actor from a user's cached auth state.
func ActorFromState(state *models.AuthState) Actor {
	if state == nil {
		return Actor{}
	}
	return Actor{
		UserID:      state.ID,
		ProfileID:   state.ProfileID,
		Email:       state.Email,
		IsStaff:     state.IsStaff,
		IsSuperuser: state.IsSuperuser,
	}
}

// Authenticated reports whether the actor is a logged-in user.
func (a Actor) Authenticated() bool {
	return a.UserID != 0
}

// CanModify reports whether the actor may change an object owned by ownerProfileID:
// the owner and staff may, anyone else may only read.
func CanModify(actor Actor, ownerProfileID uint) bool {
	if !actor.Authenticated() {
		return false
	}
	return actor.IsStaff || (actor.ProfileID != 0 && actor.ProfileID == ownerProfileID)
}

func requireAuthor(actor Actor) error {
	if !actor.Authenticated() {
		return models.NewUnauthorizedError("Authentication credentials were not provided.")
	}
	if actor.ProfileID == 0 {
		return models.NewValidationError("User doesn't exists")
	}
	return nil
}

func requireModify(actor Actor, ownerProfileID uint) error {
	if !actor.Authenticated() {
		return models.NewUnauthorizedError("Authentication credentials were not provided.")
	}
	if !CanModify(actor, ownerProfileID) {
		return models.NewForbiddenError(msgNoPermission)
	}
	return nil
}

func requireStaff(actor Actor) error {
	if !actor.Authenticated() {
		return models.NewUnauthorizedError("Authentication credentials were not provided.")
	}
	if !actor.IsStaff {
		return models.NewForbiddenError(msgNoPermission)
	}
	return nil
}

// maxSlugAttempts bounds the suffix search for a free slug.
const maxSlugAttempts = 1000

// uniqueSlug returns base, or base-2, base-3, ... whichever is free first.
func uniqueSlug(ctx context.Context, base string, excludeID uint, exists func(context.Context, string, uint) (bool, error)) (string, error) {
	if base == "" {
		return "", models.NewFieldError("slug", "Could not derive a slug; provide one explicitly.")
	}
	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := validation.SuffixSlug(base, n)
		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", models.NewFieldError("slug", "Could not find a free slug.")
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

const (
	// DefaultPageSize is used when the caller does not ask for a page size.
	DefaultPageSize = 5
	// MaxPageSize caps page_size.
	MaxPageSize = 100
)
