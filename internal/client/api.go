// Package client is the consumer side of the SideWidth API: an HTTP client
// plus the feed pagination controller and vote session built on it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/feed"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/stats"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const defaultTimeout = 10 * time.Second

// APIClient talks to the /api routes of a SideWidth server.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithToken authenticates every request with a bearer token.
func WithToken(token string) Option {
	return func(c *APIClient) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *APIClient) { c.http = h }
}

// WithRateLimit throttles outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *APIClient) { c.limiter = rate.NewLimiter(r, burst) }
}

func NewAPIClient(baseURL string, opts ...Option) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFeed requests one page of the feed described by f.
func (c *APIClient) FetchFeed(ctx context.Context, f Filter, page int) (feed.Page, error) {
	q := url.Values{}
	q.Set("type", string(f.Type))
	q.Set("sort", string(f.Sort))
	q.Set("page", strconv.Itoa(page))
	if f.Location != nil {
		q.Set("lat", strconv.FormatFloat(f.Location.Lat, 'f', -1, 64))
		q.Set("long", strconv.FormatFloat(f.Location.Long, 'f', -1, 64))
		if f.Location.RadiusKm > 0 {
			q.Set("radius", strconv.FormatFloat(f.Location.RadiusKm, 'f', -1, 64))
		}
	}
	var out feed.Page
	err := c.do(ctx, http.MethodGet, "/api/feed?"+q.Encode(), nil, &out)
	return out, err
}

// GetPost fetches a post with fresh statistics.
func (c *APIClient) GetPost(ctx context.Context, id uuid.UUID) (*models.FeedPost, error) {
	var out models.FeedPost
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type voteResponse struct {
	Success bool        `json:"success"`
	Stats   stats.Stats `json:"stats"`
}

// SubmitVote records value on postID and returns the post's fresh statistics.
func (c *APIClient) SubmitVote(ctx context.Context, postID uuid.UUID, value int) (stats.Stats, error) {
	var out voteResponse
	body := map[string]int{"value": value}
	if err := c.do(ctx, http.MethodPost, "/api/posts/"+postID.String()+"/vote", body, &out); err != nil {
		return stats.Stats{}, err
	}
	return out.Stats, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.NewTransientFetchError(err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewTransientFetchError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return models.NewTransientFetchError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// decodeError rebuilds the server's AppError from an error response.
// Bodies that are not an error envelope become transient failures.
func decodeError(resp *http.Response) error {
	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
		return models.NewTransientFetchError(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	appErr := &models.AppError{Code: body.Code, Message: body.Error}
	if body.Details != "" {
		appErr.Err = errors.New(body.Details)
	}
	return appErr
}
