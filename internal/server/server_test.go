package server

import (
	"net/http"
	"strings"
	"testing"

	_ "github.com/digitalmaniak/sidewidth/docs"
	"github.com/digitalmaniak/sidewidth/internal/database"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestLivenessCheck(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "up", decode[map[string]any](t, body)["status"])
}

func TestReadinessCheck(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig())
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	type readiness struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}

	t.Run("healthy", func(t *testing.T) {
		s, err := NewServerWithDeps(testConfig(), db, rdb)
		require.NoError(t, err)

		status, body := doRequest(t, s.NewApp(), http.MethodGet, "/health/ready", nil, "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "healthy", decode[readiness](t, body).Status)
	})

	t.Run("redis missing", func(t *testing.T) {
		s, err := NewServerWithDeps(testConfig(), db, nil)
		require.NoError(t, err)

		status, body := doRequest(t, s.NewApp(), http.MethodGet, "/health/ready", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		got := decode[readiness](t, body)
		assert.Equal(t, "healthy", got.Checks["database"])
		assert.Equal(t, "unavailable", got.Checks["redis"])
	})

	t.Run("redis down", func(t *testing.T) {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		t.Cleanup(func() { _ = down.Close() })
		s, err := NewServerWithDeps(testConfig(), db, down)
		require.NoError(t, err)

		status, body := doRequest(t, s.NewApp(), http.MethodGet, "/health/ready", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, "unhealthy", decode[readiness](t, body).Checks["redis"])
	})
}

func TestNewServerWithDeps_RequiresDatabase(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), nil, nil)
	assert.Error(t, err)
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	doRequest(t, app, http.MethodGet, "/api/categories", nil, "")

	status, body := doRequest(t, app, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), "http_requests_total"))
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, decode[models.ErrorResponse](t, body).Code)
}

func TestRateLimit_GlobalLimitApplies(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	store := testutil.NewStore()
	s := newServer(cfg, nil, rdb, Repositories{
		Posts:    store.Posts(),
		Votes:    store.Votes(),
		Profiles: store.Profiles(),
	})
	limited := s.NewApp()

	for i := 0; i < 2; i++ {
		status, _ := doRequest(t, limited, http.MethodGet, "/api/categories", nil, "")
		require.Equal(t, http.StatusOK, status)
	}
	status, body := doRequest(t, limited, http.MethodGet, "/api/categories", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, models.CodeRateLimited, decode[models.ErrorResponse](t, body).Code)
}

func TestSwaggerDoc(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/api/swagger/doc.json", nil, "")
	require.Equal(t, http.StatusOK, status)
	doc := decode[map[string]any](t, body)
	assert.Equal(t, "/api", doc["basePath"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/posts/{id}/vote")
}

func TestWriteLimits_FailClosedInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = down.Close() })

	newApp := func(env string) *fiber.App {
		cfg := testConfig()
		cfg.Env = env
		cfg.RateLimitPerMinute = 100
		store := testutil.NewStore()
		return newServer(cfg, nil, down, Repositories{
			Posts:    store.Posts(),
			Votes:    store.Votes(),
			Profiles: store.Profiles(),
		}).NewApp()
	}
	token := signToken(t, uuid.New())
	votePath := "/api/posts/" + uuid.NewString() + "/vote"

	prod := newApp("production")
	status, body := doRequest(t, prod, http.MethodPost, votePath, VoteRequest{Value: ptr(40)}, token)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, models.CodeTransientFetch, decode[models.ErrorResponse](t, body).Code)

	// reads and the global limit stay fail-open
	status, _ = doRequest(t, prod, http.MethodGet, "/api/categories", nil, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, newApp("staging"), http.MethodPost, votePath, VoteRequest{Value: ptr(40)}, token)
	assert.Equal(t, http.StatusNotFound, status)
}
