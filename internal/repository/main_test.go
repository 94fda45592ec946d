package repository

import (
	"testing"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/database"
	"github.com/digitalmaniak/sidewidth/internal/feed"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupMockDB returns a Postgres-dialect gorm handle over sqlmock for the
// queries that depend on the post_stats view and get_nearby_posts.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLite returns a migrated in-memory database.
func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// postStatsRow stands in for the post_stats view on SQLite.
type postStatsRow struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt     time.Time
	SideA         string
	SideB         string
	Category      models.Category
	Lat           *float64
	Long          *float64
	VoteCount     int
	VoteAverage   float64
	VoteStdDev    float64 `gorm:"column:vote_stddev"`
	TrendingScore float64
}

func (postStatsRow) TableName() string { return "post_stats" }

func seedPostStats(t *testing.T, db *gorm.DB, rows ...postStatsRow) {
	t.Helper()
	require.NoError(t, db.AutoMigrate(&postStatsRow{}))
	for i := range rows {
		if rows[i].SideA == "" {
			rows[i].SideA, rows[i].SideB = "Yes", "No"
		}
		require.NoError(t, db.Create(&rows[i]).Error)
	}
}

func ptr[T any](v T) *T { return &v }

func mustPolicy(t *testing.T, s feed.SortBy) feed.Policy {
	t.Helper()
	p, err := feed.PolicyFor(s)
	require.NoError(t, err)
	return p
}
