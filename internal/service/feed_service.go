// Package service contains the business logic between HTTP handlers and repositories.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/cache"
	"github.com/digitalmaniak/sidewidth/internal/feed"
	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/observability"
	"github.com/digitalmaniak/sidewidth/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// FeedOptions tunes the feed planner.
type FeedOptions struct {
	PageSize        int
	DefaultRadiusKm float64
	// CacheTTL bounds how long a global feed page is served from Redis.
	// Zero disables feed caching.
	CacheTTL time.Duration
}

// FeedService plans and executes feed page queries.
type FeedService struct {
	posts    repository.PostRepository
	votes    repository.VoteRepository
	profiles repository.ProfileRepository
	opts     FeedOptions
}

func NewFeedService(
	posts repository.PostRepository,
	votes repository.VoteRepository,
	profiles repository.ProfileRepository,
	opts FeedOptions,
) *FeedService {
	if opts.PageSize <= 0 {
		opts.PageSize = feed.DefaultPageSize
	}
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = models.DefaultLocalRadiusKm
	}
	return &FeedService{posts: posts, votes: votes, profiles: profiles, opts: opts}
}

// PageSize is the fixed number of posts per page.
func (s *FeedService) PageSize() int { return s.opts.PageSize }

// viewerPrefs is what the planner reads from a viewer's profile.
type viewerPrefs struct {
	interests feed.InterestSet
	radiusKm  float64
}

func (s *FeedService) prefsFor(ctx context.Context, viewer *uuid.UUID) (viewerPrefs, error) {
	prefs := viewerPrefs{interests: feed.AllInterests(), radiusKm: s.opts.DefaultRadiusKm}
	if viewer == nil {
		return prefs, nil
	}
	profile, err := s.profiles.Get(ctx, *viewer)
	if models.HasCode(err, models.CodeNotFound) {
		return prefs, nil
	}
	if err != nil {
		return prefs, err
	}
	prefs.interests = feed.InterestsFromProfile(profile.Interests)
	if profile.LocalRadius > 0 {
		prefs.radiusKm = float64(profile.LocalRadius)
	}
	return prefs, nil
}

// Page returns one page of the requested feed for viewer, who is nil when
// anonymous.
func (s *FeedService) Page(ctx context.Context, viewer *uuid.UUID, req feed.Request) (feed.Page, error) {
	span, ctx := observability.StartSpan(ctx, "service", "FeedService.Page",
		attribute.String("feed.type", string(req.Type)),
		attribute.String("feed.sort", string(req.Sort)),
		attribute.Int("feed.page", req.NormalizedPage()),
	)
	defer span.End()

	page, err := s.page(ctx, viewer, req)
	if err != nil {
		span.SetError(err)
		return feed.Page{}, err
	}
	span.AddAttributes(attribute.Int("feed.results", len(page.Posts)))
	return page, nil
}

func (s *FeedService) page(ctx context.Context, viewer *uuid.UUID, req feed.Request) (feed.Page, error) {
	if err := req.Validate(); err != nil {
		return feed.Page{}, err
	}
	policy, err := feed.PolicyFor(req.Sort)
	if err != nil {
		return feed.Page{}, err
	}
	prefs, err := s.prefsFor(ctx, viewer)
	if err != nil {
		return feed.Page{}, err
	}

	pageNum := req.NormalizedPage()
	if prefs.interests.None() {
		return feed.NewPage(nil, pageNum, s.opts.PageSize), nil
	}

	observability.FeedQueries.WithLabelValues(string(req.Type), string(req.Sort)).Inc()

	var posts []models.FeedPost
	switch req.Type {
	case feed.Local:
		radius := prefs.radiusKm
		if req.RadiusKm != nil {
			radius = *req.RadiusKm
		}
		posts, err = s.posts.QueryNearby(ctx, repository.NearbyQuery{
			Lat:        *req.Lat,
			Long:       *req.Long,
			RadiusKm:   radius,
			Policy:     policy,
			Categories: prefs.interests.Strings(),
			Limit:      s.opts.PageSize,
			Offset:     req.Offset(s.opts.PageSize),
		})
	default:
		posts, err = s.globalPage(ctx, req, policy, prefs.interests)
	}
	if err != nil {
		return feed.Page{}, err
	}

	if viewer != nil {
		if err := s.annotate(ctx, *viewer, posts); err != nil {
			return feed.Page{}, err
		}
	}
	return feed.NewPage(posts, pageNum, s.opts.PageSize), nil
}

// globalPage serves the global feed through the cache. Cached pages are
// shared between viewers with the same interests and carry no user votes.
func (s *FeedService) globalPage(ctx context.Context, req feed.Request, policy feed.Policy, interests feed.InterestSet) ([]models.FeedPost, error) {
	query := repository.ViewQuery{
		Policy:     policy,
		Categories: interests.Strings(),
		Limit:      s.opts.PageSize,
		Offset:     req.Offset(s.opts.PageSize),
	}
	if s.opts.CacheTTL <= 0 {
		return s.posts.QueryFeedView(ctx, query)
	}

	gen, err := cache.FeedGeneration(ctx)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "feed cache bypassed", slog.String("error", err.Error()))
		return s.posts.QueryFeedView(ctx, query)
	}

	var posts []models.FeedPost
	key := cache.FeedKey(gen, string(req.Type), string(req.Sort), query.Categories, req.NormalizedPage())
	err = cache.Aside(ctx, key, &posts, s.opts.CacheTTL, func() error {
		var fetchErr error
		posts, fetchErr = s.posts.QueryFeedView(ctx, query)
		return fetchErr
	})
	return posts, err
}

// annotate sets UserVote on every post with one batch lookup.
func (s *FeedService) annotate(ctx context.Context, viewer uuid.UUID, posts []models.FeedPost) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	values, err := s.votes.ValuesForUser(ctx, viewer, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].UserVote = values[posts[i].ID]
	}
	return nil
}
