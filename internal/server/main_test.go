package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/config"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret-key-that-is-long-enough-123"
	testIssuer   = "sidewidth-auth"
	testAudience = "sidewidth-client"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:            testSecret,
		JWTIssuer:            testIssuer,
		JWTAudience:          testAudience,
		AllowedOrigins:       "*",
		FeedPageSize:         10,
		DefaultLocalRadiusKm: 50,
	}
}

// newTestApp builds the full application over an in-memory store.
func newTestApp(t *testing.T) (*fiber.App, *testutil.Store) {
	t.Helper()
	store := testutil.NewStore()
	store.Now = func() time.Time { return baseTime.Add(48 * time.Hour) }

	s := newServer(testConfig(), nil, nil, Repositories{
		Posts:    store.Posts(),
		Votes:    store.Votes(),
		Profiles: store.Profiles(),
	})
	return s.NewApp(), store
}

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// doRequest sends a request through app and returns the status and body.
func doRequest(t *testing.T, app *fiber.App, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func seedPosts(store *testutil.Store, n int, c models.Category) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = store.AddPost(models.Post{
			SideA:     "Yes",
			SideB:     "No",
			Category:  c,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		})
	}
	return posts
}

func ptr[T any](v T) *T { return &v }
