package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/digitalmaniak/sidewidth/internal/feed"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeed serves a fixed post list per filter in pages.
type fakeFeed struct {
	mu       sync.Mutex
	posts    map[feed.SortBy][]models.FeedPost
	pageSize int
	calls    []int
	err      error
	// gate, when set, blocks each fetch until a value is received
	gate chan struct{}
	// started is signalled when a fetch begins
	started chan struct{}
}

func newFakeFeed(pageSize int) *fakeFeed {
	return &fakeFeed{posts: map[feed.SortBy][]models.FeedPost{}, pageSize: pageSize}
}

func (f *fakeFeed) add(sort feed.SortBy, n int) []models.FeedPost {
	out := make([]models.FeedPost, n)
	for i := range out {
		out[i] = models.FeedPost{ID: uuid.New(), Category: models.CategoryOther}
	}
	f.posts[sort] = append(f.posts[sort], out...)
	return out
}

func (f *fakeFeed) FetchFeed(_ context.Context, filter Filter, page int) (feed.Page, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, page)
	if f.err != nil {
		return feed.Page{}, f.err
	}
	all := f.posts[filter.Sort]
	start := min((page-1)*f.pageSize, len(all))
	end := min(start+f.pageSize, len(all))
	return feed.NewPage(all[start:end], page, f.pageSize), nil
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var global = Filter{Type: feed.Global, Sort: feed.SortLatest}

func TestFeedController_PagesUntilShortPage(t *testing.T) {
	fetcher := newFakeFeed(10)
	fetcher.add(feed.SortLatest, 23)
	c := NewFeedController(fetcher, 10)
	ctx := context.Background()

	require.NoError(t, c.SetFilter(ctx, global))
	st := c.State()
	assert.Len(t, st.Posts, 10)
	assert.Equal(t, 1, st.Page)
	assert.True(t, st.HasMore)

	started, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	st = c.State()
	assert.Len(t, st.Posts, 20)
	assert.True(t, st.HasMore)

	_, err = c.LoadMore(ctx)
	require.NoError(t, err)
	st = c.State()
	assert.Len(t, st.Posts, 23)
	assert.Equal(t, 3, st.Page)
	assert.False(t, st.HasMore)

	started, err = c.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, started, "exhausted feed does not fetch")
	assert.Equal(t, []int{1, 2, 3}, fetcher.calls)
}

func TestFeedController_MergeSkipsSeenPosts(t *testing.T) {
	fetcher := newFakeFeed(3)
	posts := fetcher.add(feed.SortLatest, 3)
	// page 2 repeats the last post of page 1, as happens when new posts shift the order
	fetcher.posts[feed.SortLatest] = append(fetcher.posts[feed.SortLatest], posts[2], models.FeedPost{ID: uuid.New()}, models.FeedPost{ID: uuid.New()})
	c := NewFeedController(fetcher, 3)
	ctx := context.Background()

	require.NoError(t, c.SetFilter(ctx, global))
	_, err := c.LoadMore(ctx)
	require.NoError(t, err)

	st := c.State()
	assert.Len(t, st.Posts, 5)
	ids := map[uuid.UUID]bool{}
	for _, p := range st.Posts {
		assert.False(t, ids[p.ID])
		ids[p.ID] = true
	}
	assert.True(t, st.HasMore, "a full page keeps the feed open even when it overlapped")
}

func TestFeedController_FilterChangeResets(t *testing.T) {
	fetcher := newFakeFeed(10)
	fetcher.add(feed.SortLatest, 15)
	divided := fetcher.add(feed.SortDivided, 2)
	c := NewFeedController(fetcher, 10)
	ctx := context.Background()

	require.NoError(t, c.SetFilter(ctx, global))
	_, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, c.State().HasMore)

	require.NoError(t, c.SetFilter(ctx, Filter{Type: feed.Global, Sort: feed.SortDivided}))
	st := c.State()
	assert.Equal(t, divided, st.Posts)
	assert.Equal(t, 1, st.Page)
	assert.False(t, st.HasMore)
}

func TestFeedController_LocalWithoutLocationIsBlocked(t *testing.T) {
	fetcher := newFakeFeed(10)
	fetcher.add(feed.SortLatest, 4)
	c := NewFeedController(fetcher, 10)
	ctx := context.Background()

	require.NoError(t, c.SetFilter(ctx, Filter{Type: feed.Local, Sort: feed.SortLatest}))
	st := c.State()
	assert.True(t, st.Blocked)
	assert.True(t, st.HasMore, "blocked is not the same as empty")
	assert.False(t, st.Loading)
	assert.Empty(t, st.Posts)

	started, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Zero(t, fetcher.callCount())

	require.NoError(t, c.SetFilter(ctx, Filter{
		Type:     feed.Local,
		Sort:     feed.SortLatest,
		Location: &feed.Location{Lat: 40.7, Long: -74},
	}))
	st = c.State()
	assert.False(t, st.Blocked)
	assert.Len(t, st.Posts, 4)
}

func TestFeedController_FetchErrorLeavesStateUnchanged(t *testing.T) {
	fetcher := newFakeFeed(10)
	fetcher.add(feed.SortLatest, 25)
	c := NewFeedController(fetcher, 10)
	ctx := context.Background()
	require.NoError(t, c.SetFilter(ctx, global))
	before := c.State()

	fetcher.err = errors.New("connection refused")
	started, err := c.LoadMore(ctx)
	assert.True(t, started)
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeTransientFetch))

	after := c.State()
	assert.Equal(t, before, after)

	fetcher.err = nil
	_, err = c.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, c.State().Posts, 20)
	assert.Equal(t, []int{1, 2, 2}, fetcher.calls)
}

func TestFeedController_SingleFlight(t *testing.T) {
	fetcher := newFakeFeed(10)
	fetcher.add(feed.SortLatest, 30)
	c := NewFeedController(fetcher, 10)
	ctx := context.Background()
	require.NoError(t, c.SetFilter(ctx, global))

	fetcher.gate = make(chan struct{})
	fetcher.started = make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.LoadMore(ctx)
	}()
	<-fetcher.started

	started, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, started, "a trigger while loading is ignored")
	assert.True(t, c.State().Loading)

	fetcher.gate <- struct{}{}
	<-done
	st := c.State()
	assert.False(t, st.Loading)
	assert.Len(t, st.Posts, 20)
}

func TestFeedController_DiscardsStaleResponses(t *testing.T) {
	fetcher := newFakeFeed(10)
	fetcher.add(feed.SortLatest, 10)
	trending := fetcher.add(feed.SortTrending, 3)
	c := NewFeedController(fetcher, 10)
	ctx := context.Background()

	fetcher.gate = make(chan struct{})
	fetcher.started = make(chan struct{}, 2)
	done := make(chan error, 1)
	go func() { done <- c.SetFilter(ctx, global) }()
	<-fetcher.started

	// the viewer switches sort before the first response arrives
	second := make(chan error, 1)
	go func() { second <- c.SetFilter(ctx, Filter{Type: feed.Global, Sort: feed.SortTrending}) }()
	<-fetcher.started

	// release both fetches; whichever lands first, only the newer one applies
	fetcher.gate <- struct{}{}
	fetcher.gate <- struct{}{}
	require.NoError(t, <-done)
	require.NoError(t, <-second)

	st := c.State()
	assert.Equal(t, feed.SortTrending, st.Filter.Sort)
	assert.ElementsMatch(t, trending, st.Posts)
	assert.False(t, st.Loading)
	assert.False(t, st.HasMore)
}
