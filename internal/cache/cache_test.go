package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dst *payload) func() error {
		return func() error {
			calls++
			*dst = payload{Name: "side", Count: 3}
			return nil
		}
	}

	var first payload
	require.NoError(t, Aside(ctx, "k", &first, time.Minute, fetch(&first)))
	var second payload
	require.NoError(t, Aside(ctx, "k", &second, time.Minute, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("k"))
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	boom := errors.New("boom")

	var dst payload
	err := Aside(context.Background(), "k", &dst, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestAside_WithoutClientCallsFetch(t *testing.T) {
	SetClient(nil)

	calls := 0
	var dst payload
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "k", &dst, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestAside_RedisDownFallsBackToFetch(t *testing.T) {
	mr := setupMiniredis(t)
	mr.Close()

	var dst payload
	err := Aside(context.Background(), "k", &dst, time.Minute, func() error {
		dst.Name = "fresh"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", dst.Name)
}

func TestInvalidatePost_BumpsFeedGeneration(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	postID := uuid.New()

	require.NoError(t, SetJSON(ctx, PostKey(postID), payload{Name: "x"}, PostTTL))
	gen, err := FeedGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	InvalidatePost(ctx, postID)

	assert.False(t, mr.Exists(PostKey(postID)))
	gen, err = FeedGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestFeedGeneration_ReadFailure(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set(FeedGenerationKey, "not-a-number"))

	_, err := FeedGeneration(context.Background())
	assert.Error(t, err)
}

func TestFeedGeneration_NoClient(t *testing.T) {
	SetClient(nil)
	gen, err := FeedGeneration(context.Background())
	require.NoError(t, err)
	assert.Zero(t, gen)
}

func TestFeedKey(t *testing.T) {
	assert.Equal(t, "feed:4:global:latest:all:p1", FeedKey(4, "global", "latest", nil, 1))
	assert.Equal(t, "feed:0:global:divided:[FOOD,SPORTS]:p2", FeedKey(0, "global", "divided", []string{"FOOD", "SPORTS"}, 2))
	assert.Equal(t, "feed:0:global:latest:[]:p1", FeedKey(0, "global", "latest", []string{}, 1))
}

func TestGetJSON_Miss(t *testing.T) {
	setupMiniredis(t)
	var dst payload
	assert.ErrorIs(t, GetJSON(context.Background(), "absent", &dst), ErrMiss)
}
