package repository

import (
	"context"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository stores at most one vote per (post, user).
type VoteRepository interface {
	// Upsert inserts the vote or overwrites the value of the existing one.
	Upsert(ctx context.Context, postID, userID uuid.UUID, value int) error
	ListForPost(ctx context.Context, postID uuid.UUID) ([]models.VoteRecord, error)
	ListForPosts(ctx context.Context, postIDs []uuid.UUID) ([]models.VoteRecord, error)
	// ValuesForUser returns the user's vote on each of postIDs that they voted on.
	ValuesForUser(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Upsert(ctx context.Context, postID, userID uuid.UUID, value int) error {
	defer observability.TrackQuery("upsert", "votes")()
	vote := models.Vote{
		PostID:    postID,
		UserID:    userID,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&vote).Error
	return classify("upsert vote", err)
}

func (r *voteRepository) ListForPost(ctx context.Context, postID uuid.UUID) ([]models.VoteRecord, error) {
	defer observability.TrackQuery("list", "votes")()
	var records []models.VoteRecord
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("post_id, user_id, value").
		Where("post_id = ?", postID).
		Scan(&records).Error
	if err != nil {
		return nil, classify("list votes", err)
	}
	return records, nil
}

func (r *voteRepository) ListForPosts(ctx context.Context, postIDs []uuid.UUID) ([]models.VoteRecord, error) {
	if len(postIDs) == 0 {
		return []models.VoteRecord{}, nil
	}
	defer observability.TrackQuery("list_batch", "votes")()
	var records []models.VoteRecord
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("post_id, user_id, value").
		Where("post_id IN ?", postIDs).
		Scan(&records).Error
	if err != nil {
		return nil, classify("list votes", err)
	}
	return records, nil
}

func (r *voteRepository) ValuesForUser(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	values := make(map[uuid.UUID]int, len(postIDs))
	if len(postIDs) == 0 {
		return values, nil
	}
	defer observability.TrackQuery("user_votes", "votes")()
	var records []models.VoteRecord
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("post_id, user_id, value").
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Scan(&records).Error
	if err != nil {
		return nil, classify("list user votes", err)
	}
	for _, rec := range records {
		values[rec.PostID] = rec.Value
	}
	return values, nil
}
