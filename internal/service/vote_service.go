package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digitalmaniak/sidewidth/internal/cache"
	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/observability"
	"github.com/digitalmaniak/sidewidth/internal/repository"
	"github.com/digitalmaniak/sidewidth/internal/stats"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// VoteService records opinions and returns the resulting statistics.
type VoteService struct {
	posts    repository.PostRepository
	votes    repository.VoteRepository
	profiles repository.ProfileRepository
}

func NewVoteService(
	posts repository.PostRepository,
	votes repository.VoteRepository,
	profiles repository.ProfileRepository,
) *VoteService {
	return &VoteService{posts: posts, votes: votes, profiles: profiles}
}

// Submit stores userID's vote on postID, replacing any earlier vote, and
// returns the post's statistics recomputed from its raw votes.
func (s *VoteService) Submit(ctx context.Context, userID, postID uuid.UUID, value int) (stats.Stats, error) {
	span, ctx := observability.StartSpan(ctx, "service", "VoteService.Submit",
		attribute.String("post.id", postID.String()),
		attribute.Int("vote.value", value),
	)
	defer span.End()

	st, err := s.submit(ctx, userID, postID, value)
	switch {
	case err == nil:
		observability.VotesSubmitted.WithLabelValues(observability.VoteResultAccepted).Inc()
	case models.HasCode(err, models.CodeInternal) || !isAppError(err):
		observability.VotesSubmitted.WithLabelValues(observability.VoteResultFailed).Inc()
		span.SetError(err)
	default:
		observability.VotesSubmitted.WithLabelValues(observability.VoteResultRejected).Inc()
		span.SetError(err)
	}
	return st, err
}

func (s *VoteService) submit(ctx context.Context, userID, postID uuid.UUID, value int) (stats.Stats, error) {
	if userID == uuid.Nil {
		return stats.Stats{}, models.NewUnauthorizedError("You must be logged in to vote")
	}
	if !stats.InRange(value) {
		return stats.Stats{}, models.NewValidationError(
			fmt.Sprintf("Vote value must be between %d and %d", stats.MinValue, stats.MaxValue))
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return stats.Stats{}, err
	}

	if err := s.profiles.Ensure(ctx, userID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to ensure profile before vote",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}

	if err := s.votes.Upsert(ctx, postID, userID, value); err != nil {
		return stats.Stats{}, err
	}
	cache.InvalidatePost(ctx, postID)

	records, err := s.votes.ListForPost(ctx, postID)
	if err != nil {
		return stats.Stats{}, err
	}
	return statsOf(records), nil
}

func statsOf(records []models.VoteRecord) stats.Stats {
	var acc stats.Accumulator
	for _, r := range records {
		acc.Add(r.Value)
	}
	return acc.Stats()
}
