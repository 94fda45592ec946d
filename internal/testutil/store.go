// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/repository"
	"github.com/digitalmaniak/sidewidth/internal/stats"

	"github.com/google/uuid"
)

const earthRadiusMeters = 6371000.0

// Store is an in-memory stand-in for the posts, votes and profiles tables
// together with the post_stats view and get_nearby_posts function.
type Store struct {
	mu       sync.Mutex
	posts    map[uuid.UUID]models.Post
	votes    map[voteKey]int
	profiles map[uuid.UUID]models.Profile

	// Now is the clock used for trending scores.
	Now func() time.Time

	// Injected failures, returned by the matching operation when set.
	EnsureErr error
	UpsertErr error
	QueryErr  error

	// FeedQueries counts QueryFeedView and QueryNearby calls.
	FeedQueries int
	// EnsureCalls counts ProfileRepository.Ensure calls.
	EnsureCalls int
}

type voteKey struct {
	post uuid.UUID
	user uuid.UUID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		posts:    make(map[uuid.UUID]models.Post),
		votes:    make(map[voteKey]int),
		profiles: make(map[uuid.UUID]models.Profile),
		Now:      time.Now,
	}
}

// Posts returns the store as a PostRepository.
func (s *Store) Posts() repository.PostRepository { return postRepo{s} }

// Votes returns the store as a VoteRepository.
func (s *Store) Votes() repository.VoteRepository { return voteRepo{s} }

// Profiles returns the store as a ProfileRepository.
func (s *Store) Profiles() repository.ProfileRepository { return profileRepo{s} }

// AddPost inserts post directly, assigning an id and timestamp if missing.
func (s *Store) AddPost(post models.Post) models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.Now()
	}
	s.posts[post.ID] = post
	return post
}

// AddVote records a vote directly, bypassing injected failures.
func (s *Store) AddVote(postID, userID uuid.UUID, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[voteKey{postID, userID}] = value
}

// SetProfile stores profile as-is.
func (s *Store) SetProfile(profile models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
}

// VoteCount returns the number of stored votes on postID.
func (s *Store) VoteCount(postID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.votes {
		if k.post == postID {
			n++
		}
	}
	return n
}

// feedRows renders every post the way the post_stats view does.
func (s *Store) feedRows() []models.FeedPost {
	values := make([]stats.PostValue, 0, len(s.votes))
	for k, v := range s.votes {
		values = append(values, stats.PostValue{PostID: k.post, Value: v})
	}
	byPost := stats.ByPost(values)

	now := s.Now()
	rows := make([]models.FeedPost, 0, len(s.posts))
	for _, p := range s.posts {
		st := byPost[p.ID]
		row := models.NewFeedPost(&p, st)
		hours := now.Sub(p.CreatedAt).Hours()
		row.TrendingScore = float64(st.Count) / math.Pow(hours+2, 1.5)
		rows = append(rows, row)
	}
	return rows
}

func page(rows []models.FeedPost, limit, offset int) []models.FeedPost {
	if offset >= len(rows) {
		return []models.FeedPost{}
	}
	end := min(offset+limit, len(rows))
	return rows[offset:end]
}

func allowed(categories []string, c models.Category) bool {
	if categories == nil {
		return true
	}
	for _, name := range categories {
		if name == string(c) {
			return true
		}
	}
	return false
}

func haversine(lat1, long1, lat2, long2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLong := (long2 - long1) * rad
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Pow(math.Sin(dLong/2), 2)
	return earthRadiusMeters * 2 * math.Asin(math.Sqrt(a))
}

type postRepo struct{ s *Store }

func (r postRepo) Create(_ context.Context, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = r.s.Now()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.posts[post.ID] = *post
	return nil
}

func (r postRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	post, ok := r.s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	return &post, nil
}

func (r postRepo) QueryFeedView(_ context.Context, q repository.ViewQuery) ([]models.FeedPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.FeedQueries++
	if r.s.QueryErr != nil {
		return nil, r.s.QueryErr
	}
	var rows []models.FeedPost
	for _, row := range r.s.feedRows() {
		if allowed(q.Categories, row.Category) {
			rows = append(rows, row)
		}
	}
	return page(q.Policy.Apply(rows), q.Limit, q.Offset), nil
}

func (r postRepo) QueryNearby(_ context.Context, q repository.NearbyQuery) ([]models.FeedPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.FeedQueries++
	if r.s.QueryErr != nil {
		return nil, r.s.QueryErr
	}
	var rows []models.FeedPost
	for _, row := range r.s.feedRows() {
		if row.Lat == nil || row.Long == nil || !allowed(q.Categories, row.Category) {
			continue
		}
		d := haversine(q.Lat, q.Long, *row.Lat, *row.Long)
		if d > q.RadiusKm*1000 {
			continue
		}
		row.DistanceMeters = d
		rows = append(rows, row)
	}
	return page(q.Policy.Apply(rows), q.Limit, q.Offset), nil
}

type voteRepo struct{ s *Store }

func (r voteRepo) Upsert(_ context.Context, postID, userID uuid.UUID, value int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.UpsertErr != nil {
		return r.s.UpsertErr
	}
	if _, ok := r.s.posts[postID]; !ok {
		return models.NewConflictError("upsert vote violates a constraint", nil)
	}
	r.s.votes[voteKey{postID, userID}] = value
	return nil
}

func (r voteRepo) ListForPost(ctx context.Context, postID uuid.UUID) ([]models.VoteRecord, error) {
	return r.ListForPosts(ctx, []uuid.UUID{postID})
}

func (r voteRepo) ListForPosts(_ context.Context, postIDs []uuid.UUID) ([]models.VoteRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(postIDs))
	for _, id := range postIDs {
		want[id] = true
	}
	records := []models.VoteRecord{}
	for k, v := range r.s.votes {
		if want[k.post] {
			records = append(records, models.VoteRecord{PostID: k.post, UserID: k.user, Value: v})
		}
	}
	return records, nil
}

func (r voteRepo) ValuesForUser(_ context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	values := make(map[uuid.UUID]int, len(postIDs))
	for _, id := range postIDs {
		if v, ok := r.s.votes[voteKey{id, userID}]; ok {
			values[id] = v
		}
	}
	return values, nil
}

type profileRepo struct{ s *Store }

func (r profileRepo) Get(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	profile, ok := r.s.profiles[id]
	if !ok {
		return nil, models.NewNotFoundError("Profile", id)
	}
	return &profile, nil
}

func (r profileRepo) Ensure(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.EnsureCalls++
	if r.s.EnsureErr != nil {
		return r.s.EnsureErr
	}
	if _, ok := r.s.profiles[id]; !ok {
		r.s.profiles[id] = models.Profile{
			ID:          id,
			CreatedAt:   r.s.Now(),
			LocalRadius: models.DefaultLocalRadiusKm,
		}
	}
	return nil
}

func (r profileRepo) Update(_ context.Context, profile *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.profiles[profile.ID]
	if !ok {
		return models.NewNotFoundError("Profile", profile.ID)
	}
	existing.LocalRadius = profile.LocalRadius
	existing.Interests = profile.Interests
	r.s.profiles[profile.ID] = existing
	return nil
}
