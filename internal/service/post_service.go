package service

import (
	"context"
	"log/slog"

	"github.com/digitalmaniak/sidewidth/internal/cache"
	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/repository"
	"github.com/digitalmaniak/sidewidth/internal/validation"

	"github.com/google/uuid"
)

type PostService struct {
	posts    repository.PostRepository
	votes    repository.VoteRepository
	profiles repository.ProfileRepository
}

type CreatePostInput struct {
	UserID       uuid.UUID
	SideA        string
	SideB        string
	Category     string
	Lat          *float64
	Long         *float64
	LocationName *string
	Description  *string
}

func NewPostService(
	posts repository.PostRepository,
	votes repository.VoteRepository,
	profiles repository.ProfileRepository,
) *PostService {
	return &PostService{posts: posts, votes: votes, profiles: profiles}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.FeedPost, error) {
	if in.UserID == uuid.Nil {
		return nil, models.NewUnauthorizedError("You must be logged in to post")
	}

	sideA := validation.SanitizeText(in.SideA)
	sideB := validation.SanitizeText(in.SideB)
	if err := validation.ValidateSide("side_a", sideA); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateSide("side_b", sideB); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, models.NewValidationError("category must be one of the known categories")
	}
	if err := validation.ValidateCoordinates(in.Lat, in.Long); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	locationName := sanitizeOptional(in.LocationName)
	description := sanitizeOptional(in.Description)
	if err := validation.ValidateOptionalText("location_name", locationName, validation.MaxLocationNameLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateOptionalText("description", description, validation.MaxDescriptionLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if err := s.profiles.Ensure(ctx, in.UserID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to ensure profile before post",
			slog.String("user_id", in.UserID.String()),
			slog.String("error", err.Error()),
		)
	}

	creator := in.UserID
	post := &models.Post{
		CreatedBy:    &creator,
		SideA:        sideA,
		SideB:        sideB,
		Category:     category,
		Lat:          in.Lat,
		Long:         in.Long,
		LocationName: locationName,
		Description:  description,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	cache.InvalidateFeeds(ctx)

	created := models.NewFeedPost(post, statsOf(nil))
	return &created, nil
}

// GetPost returns a post with statistics recomputed from its raw votes.
// The viewer's own vote is attached when viewer is set.
func (s *PostService) GetPost(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) (*models.FeedPost, error) {
	var post models.FeedPost
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		p, err := s.posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		records, err := s.votes.ListForPost(ctx, id)
		if err != nil {
			return err
		}
		post = models.NewFeedPost(p, statsOf(records))
		return nil
	})
	if err != nil {
		return nil, err
	}

	post.UserVote = 0
	if viewer != nil {
		values, err := s.votes.ValuesForUser(ctx, *viewer, []uuid.UUID{id})
		if err != nil {
			return nil, err
		}
		post.UserVote = values[id]
	}
	return &post, nil
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	clean := validation.SanitizeText(*s)
	if clean == "" {
		return nil
	}
	return &clean
}
