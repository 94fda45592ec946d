package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	PostKeyPrefix     = "post:%s"
	FeedKeyPrefix     = "feed:%d:%s:%s:%s:p%d"
	FeedGenerationKey = "feed:gen"
)

const (
	PostTTL = 5 * time.Minute
)

// PostKey is the anonymous post detail entry.
func PostKey(postID uuid.UUID) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// FeedKey is one anonymous feed page under feed generation gen. An empty
// category list is spelled "all".
func FeedKey(gen int64, feedType, sort string, categories []string, page int) string {
	cats := "all"
	if categories != nil {
		cats = "[" + strings.Join(categories, ",") + "]"
	}
	return fmt.Sprintf(FeedKeyPrefix, gen, feedType, sort, cats, page)
}

// FeedGeneration returns the current feed generation. Bumping it orphans
// every cached feed page, which then expires by TTL.
// An unset counter is generation 0. Any other read failure is returned,
// since pages keyed under a guessed generation could predate later votes.
func FeedGeneration(ctx context.Context) (int64, error) {
	if client == nil {
		return 0, nil
	}
	gen, err := client.Get(ctx, FeedGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read feed generation: %w", err)
	}
	return gen, nil
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateFeeds drops every cached feed page.
func InvalidateFeeds(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, FeedGenerationKey)
	}
}

// InvalidatePost drops the cached detail of a post and every feed page that
// may contain it.
func InvalidatePost(ctx context.Context, postID uuid.UUID) {
	Invalidate(ctx, PostKey(postID))
	InvalidateFeeds(ctx)
}
