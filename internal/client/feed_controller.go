package client

import (
	"context"
	"sync"

	"github.com/digitalmaniak/sidewidth/internal/feed"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/google/uuid"
)

// Filter is the feed combination a controller is showing.
type Filter struct {
	Type feed.Type
	Sort feed.SortBy
	// Location is nil while the viewer's position is unknown.
	Location *feed.Location
}

// Blocked reports whether f cannot be fetched yet.
func (f Filter) Blocked() bool {
	return f.Type == feed.Local && f.Location == nil
}

// FeedFetcher loads one page of a feed. APIClient implements it.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, f Filter, page int) (feed.Page, error)
}

// FeedState is a snapshot of a controller.
type FeedState struct {
	Filter  Filter
	Posts   []models.FeedPost
	Page    int
	HasMore bool
	Loading bool
	Blocked bool
}

// FeedController accumulates feed pages for one view. Loads are single
// flight; responses issued before the latest filter change are discarded.
type FeedController struct {
	fetcher  FeedFetcher
	pageSize int

	mu         sync.Mutex
	filter     Filter
	posts      []models.FeedPost
	seen       map[uuid.UUID]struct{}
	page       int
	hasMore    bool
	loading    bool
	generation uint64
}

func NewFeedController(fetcher FeedFetcher, pageSize int) *FeedController {
	if pageSize <= 0 {
		pageSize = feed.DefaultPageSize
	}
	return &FeedController{
		fetcher:  fetcher,
		pageSize: pageSize,
		seen:     make(map[uuid.UUID]struct{}),
		hasMore:  true,
	}
}

// State returns a copy of the controller state.
func (c *FeedController) State() FeedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	posts := make([]models.FeedPost, len(c.posts))
	copy(posts, c.posts)
	return FeedState{
		Filter:  c.filter,
		Posts:   posts,
		Page:    c.page,
		HasMore: c.hasMore,
		Loading: c.loading,
		Blocked: c.filter.Blocked(),
	}
}

// SetFilter clears the accumulated feed and fetches page 1 of f. It
// supersedes any fetch in flight. A local filter without a location is
// recorded but not fetched.
func (c *FeedController) SetFilter(ctx context.Context, f Filter) error {
	c.mu.Lock()
	c.filter = f
	c.posts = nil
	c.seen = make(map[uuid.UUID]struct{})
	c.page = 0
	c.hasMore = true
	c.generation++
	if f.Blocked() {
		c.loading = false
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	gen := c.generation
	c.mu.Unlock()

	_, err := c.fetch(ctx, gen, f, 1)
	return err
}

// Refresh reloads the current filter from page 1.
func (c *FeedController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	f := c.filter
	c.mu.Unlock()
	return c.SetFilter(ctx, f)
}

// LoadMore fetches the next page and appends its unseen posts. It reports
// false without fetching when a load is in flight, the feed is exhausted or
// the filter is blocked.
func (c *FeedController) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.loading || !c.hasMore || c.filter.Blocked() {
		c.mu.Unlock()
		return false, nil
	}
	c.loading = true
	gen, f, next := c.generation, c.filter, c.page+1
	c.mu.Unlock()

	return c.fetch(ctx, gen, f, next)
}

// fetch loads page and applies it if gen is still current.
func (c *FeedController) fetch(ctx context.Context, gen uint64, f Filter, page int) (bool, error) {
	result, err := c.fetcher.FetchFeed(ctx, f, page)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return true, nil
	}
	c.loading = false
	if err != nil {
		if !isAppError(err) {
			err = models.NewTransientFetchError(err)
		}
		return true, err
	}

	for _, p := range result.Posts {
		if _, dup := c.seen[p.ID]; dup {
			continue
		}
		c.seen[p.ID] = struct{}{}
		c.posts = append(c.posts, p)
	}
	c.page = page
	if len(result.Posts) < c.pageSize {
		c.hasMore = false
	}
	return true, nil
}
