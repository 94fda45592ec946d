// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/digitalmaniak/sidewidth/internal/feed"
	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ViewQuery selects one page of the global feed from the post_stats view.
type ViewQuery struct {
	Policy feed.Policy
	// Categories restricts the page to an allowlist; nil means every category.
	Categories []string
	Limit      int
	Offset     int
}

// NearbyQuery selects one page of the local feed through get_nearby_posts.
type NearbyQuery struct {
	Lat        float64
	Long       float64
	RadiusKm   float64
	Policy     feed.Policy
	Categories []string
	Limit      int
	Offset     int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	QueryFeedView(ctx context.Context, q ViewQuery) ([]models.FeedPost, error)
	QueryNearby(ctx context.Context, q NearbyQuery) ([]models.FeedPost, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	return classify("create post", r.db.WithContext(ctx).Create(post).Error)
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err != nil {
		return nil, classify("get post", err)
	}
	return &post, nil
}

func (r *postRepository) QueryFeedView(ctx context.Context, q ViewQuery) ([]models.FeedPost, error) {
	defer observability.TrackQuery("feed", "post_stats")()
	base := r.db.WithContext(ctx).Table("post_stats")
	var rows []models.FeedPost
	err := applyPage(base, q.Policy, q.Categories, q.Limit, q.Offset).Find(&rows).Error
	if err != nil {
		return nil, classify("query feed view", err)
	}
	return validateRows(ctx, rows), nil
}

func (r *postRepository) QueryNearby(ctx context.Context, q NearbyQuery) ([]models.FeedPost, error) {
	defer observability.TrackQuery("nearby", "get_nearby_posts")()
	base := r.db.WithContext(ctx).Table("get_nearby_posts(?, ?, ?) AS nearby", q.Lat, q.Long, q.RadiusKm)
	var rows []models.FeedPost
	err := applyPage(base, q.Policy, q.Categories, q.Limit, q.Offset).Find(&rows).Error
	if err != nil {
		return nil, classify("query nearby posts", err)
	}
	return validateRows(ctx, rows), nil
}

// applyPage appends the pre-filter, interest allowlist, ORDER BY and paging
// of a sort policy.
func applyPage(db *gorm.DB, policy feed.Policy, categories []string, limit, offset int) *gorm.DB {
	if policy.Where != "" {
		db = db.Where(policy.Where, policy.Args...)
	}
	if categories != nil {
		db = db.Where("category IN ?", categories)
	}
	return db.Order(policy.OrderClause()).Limit(limit).Offset(offset)
}

// validateRows drops rows that do not describe a servable post. Such rows
// point at data written around the application and are logged.
func validateRows(ctx context.Context, rows []models.FeedPost) []models.FeedPost {
	out := make([]models.FeedPost, 0, len(rows))
	for _, row := range rows {
		var reason string
		switch {
		case row.ID == uuid.Nil:
			reason = "missing id"
		case !row.Category.Valid():
			reason = "unknown category"
		case (row.Lat == nil) != (row.Long == nil):
			reason = "partial location"
		case row.VoteCount < 0 || row.VoteStdDev < 0:
			reason = "negative statistics"
		}
		if reason != "" {
			middleware.Logger.WarnContext(ctx, "dropping invalid feed row",
				slog.String("post_id", row.ID.String()),
				slog.String("category", string(row.Category)),
				slog.String("reason", reason),
			)
			continue
		}
		out = append(out, row)
	}
	return out
}
