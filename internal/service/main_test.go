package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/cache"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var baseTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newStore() *testutil.Store {
	store := testutil.NewStore()
	store.Now = func() time.Time { return baseTime.Add(48 * time.Hour) }
	return store
}

// seedPosts adds n posts one minute apart in category c, oldest first.
func seedPosts(store *testutil.Store, n int, c models.Category) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = store.AddPost(models.Post{
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
			SideA:     fmt.Sprintf("Side A %d", i),
			SideB:     fmt.Sprintf("Side B %d", i),
			Category:  c,
		})
	}
	return posts
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	t.Cleanup(func() { _ = cache.Close() })
	return mr
}

func ptr[T any](v T) *T { return &v }
