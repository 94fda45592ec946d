package service

import (
	"context"

	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/repository"
	"github.com/digitalmaniak/sidewidth/internal/validation"

	"github.com/google/uuid"
)

type ProfileService struct {
	profiles repository.ProfileRepository
}

func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// GetProfile returns the viewer's profile, creating the default one on first use.
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, models.NewUnauthorizedError("You must be logged in")
	}
	if err := s.profiles.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, userID)
}

// UpdateProfile applies patch to the viewer's profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, patch models.ProfilePatch) (*models.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.LocalRadius != nil {
		if err := validation.ValidateLocalRadius(*patch.LocalRadius); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		profile.LocalRadius = *patch.LocalRadius
	}

	switch {
	case patch.ResetInterests:
		profile.Interests = nil
	case patch.Interests != nil:
		names := make([]string, len(*patch.Interests))
		for i, c := range *patch.Interests {
			names[i] = string(c)
		}
		categories, err := validation.NormalizeInterests(names)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		list := make(models.InterestList, len(categories))
		for i, c := range categories {
			list[i] = string(c)
		}
		profile.Interests = list
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
