package repository

import (
	"context"
	"errors"

	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// Ensure creates a default profile for id unless one exists.
	Ensure(ctx context.Context, id uuid.UUID) error
	Update(ctx context.Context, profile *models.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	defer observability.TrackQuery("get", "profiles")()
	var profile models.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Profile", id)
	}
	if err != nil {
		return nil, classify("get profile", err)
	}
	return &profile, nil
}

func (r *profileRepository) Ensure(ctx context.Context, id uuid.UUID) error {
	defer observability.TrackQuery("ensure", "profiles")()
	profile := models.Profile{
		ID:          id,
		LocalRadius: models.DefaultLocalRadiusKm,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&profile).Error
	return classify("ensure profile", err)
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	defer observability.TrackQuery("update", "profiles")()
	// interests is always written so a nil list resets to every category
	res := r.db.WithContext(ctx).
		Model(profile).
		Select("local_radius", "interests").
		Updates(profile)
	if res.Error != nil {
		return classify("update profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", profile.ID)
	}
	return nil
}
