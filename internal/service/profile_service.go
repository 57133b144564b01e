package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// ProfileService reads and edits the caller's author profile.
type ProfileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// UpdateProfileInput is a partial profile update; nil fields are unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Bio       *string
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.profileRepo.GetByUserID(ctx, userID)
}

func checkNameLength(field, value string) error {
	if utf8.RuneCountInString(value) > 150 {
		return models.NewFieldError(field, "Ensure this field has no more than 150 characters.")
	}
	return nil
}

func (s *ProfileService) Update(ctx context.Context, userID uint, in UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if err := checkNameLength("first_name", v); err != nil {
			return nil, err
		}
		profile.FirstName = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if err := checkNameLength("last_name", v); err != nil {
			return nil, err
		}
		profile.LastName = v
	}
	if in.Bio != nil {
		profile.Bio = *in.Bio
	}
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SetImage stores the public URL of an uploaded avatar.
func (s *ProfileService) SetImage(ctx context.Context, userID uint, imageURL string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.Image = imageURL
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
