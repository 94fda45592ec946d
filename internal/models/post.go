// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/digitalmaniak/sidewidth/internal/stats"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a binary framing ("Side A vs Side B") that other users vote on.
type Post struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	CreatedBy    *uuid.UUID `gorm:"type:uuid;index" json:"created_by,omitempty"`
	SideA        string     `gorm:"not null" json:"side_a"`
	SideB        string     `gorm:"not null" json:"side_b"`
	Category     Category   `gorm:"type:text;not null;index" json:"category"`
	Lat          *float64   `json:"lat"`
	Long         *float64   `json:"long"`
	LocationName *string    `json:"location_name"`
	Description  *string    `gorm:"type:text" json:"description"`
}

// BeforeCreate assigns an identity when the caller did not.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasLocation reports whether the post carries coordinates.
func (p *Post) HasLocation() bool {
	return p.Lat != nil && p.Long != nil
}

// FeedPost is a post as served to a viewer: the post itself, its vote
// statistics, its distance from the viewer and the viewer's own vote.
type FeedPost struct {
	ID             uuid.UUID `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	SideA          string    `json:"side_a"`
	SideB          string    `json:"side_b"`
	Category       Category  `json:"category"`
	Lat            *float64  `json:"lat"`
	Long           *float64  `json:"long"`
	LocationName   *string   `json:"location_name"`
	Description    *string   `json:"description"`
	VoteCount      int       `json:"vote_count"`
	VoteAverage    float64   `json:"vote_average"`
	VoteStdDev     float64   `gorm:"column:vote_stddev" json:"vote_stddev"`
	TrendingScore  float64   `json:"trending_score"`
	DistanceMeters float64   `gorm:"column:dist_meters" json:"distance_meters"`
	UserVote       int       `gorm:"-" json:"user_vote"`
}

// Stats returns the vote statistics carried by the post.
func (p FeedPost) Stats() stats.Stats {
	return stats.Stats{Count: p.VoteCount, Mean: p.VoteAverage, StdDev: p.VoteStdDev}
}

// NewFeedPost builds the viewer-facing form of post with the given statistics.
func NewFeedPost(post *Post, s stats.Stats) FeedPost {
	return FeedPost{
		ID:           post.ID,
		CreatedAt:    post.CreatedAt,
		SideA:        post.SideA,
		SideB:        post.SideB,
		Category:     post.Category,
		Lat:          post.Lat,
		Long:         post.Long,
		LocationName: post.LocationName,
		Description:  post.Description,
		VoteCount:    s.Count,
		VoteAverage:  s.Mean,
		VoteStdDev:   s.StdDev,
	}
}
