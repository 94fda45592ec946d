package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/config"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every statement sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "sidewidth"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=sidewidth sslmode=disable", dsn)
}

func TestPing(t *testing.T) {
	assert.Error(t, Ping(context.Background(), nil))
	assert.NoError(t, Ping(context.Background(), openSQLite(t)))
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.True(t, db.Migrator().HasIndex(&models.Vote{}, "idx_votes_post_user"))
}

func TestEmbeddedMigrations(t *testing.T) {
	registered := GetMigrations()
	require.Len(t, registered, 3)

	for i, m := range registered {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpScript)
		assert.NotEmpty(t, m.DownScript)
	}
	assert.Equal(t, "000002_create_post_stats_view", registered[1].String())
	assert.Contains(t, registered[1].UpScript, "STDDEV_POP")
	assert.Contains(t, registered[2].UpScript, "get_nearby_posts")

	require.NotNil(t, GetMigrationByVersion(3))
	assert.Nil(t, GetMigrationByVersion(99))
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"m/000002_second.down.sql": {Data: []byte("SELECT -2;")},
		"m/000001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"m/000001_first.down.sql":  {Data: []byte("SELECT -1;")},
		"m/README.md":              {Data: []byte("ignored")},
		"m/bogus.up.sql":           {Data: []byte("skipped")},
	}

	got, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "SELECT -2;", got[1].DownScript)

	delete(fsys, "m/000001_first.down.sql")
	_, err = LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestLoadMigrations_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"duplicate version", fstest.MapFS{
			"m/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
			"m/000001_a.down.sql": {Data: []byte("SELECT 1;")},
			"m/000001_b.up.sql":   {Data: []byte("SELECT 1;")},
		}},
		{"down without up", fstest.MapFS{
			"m/000001_a.down.sql": {Data: []byte("SELECT 1;")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fsys, "m")
			assert.Error(t, err)
		})
	}
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "000007"))
}

func TestPendingMigrations(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	pending := pendingMigrations([]int{1, 3}, registered)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func testMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "widgets", UpScript: "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE widgets"},
		{Version: 2, Name: "gadgets", UpScript: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE gadgets"},
	}
}

func TestMigrator_UpStatusDown(t *testing.T) {
	db := openSQLite(t)
	m := newMigrator(db, testMigrations())
	ctx := context.Background()

	// missing log table reads as nothing applied
	status, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.AppliedVersions)
	assert.Len(t, status.PendingMigrations, 2)

	require.NoError(t, m.Up(ctx))
	assert.True(t, db.Migrator().HasTable("widgets"))
	assert.True(t, db.Migrator().HasTable("gadgets"))

	// second run is a no-op
	require.NoError(t, m.Up(ctx))
	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, status.AppliedVersions)
	assert.Empty(t, status.PendingMigrations)

	reverted, err := m.Down(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, reverted.Version)
	assert.False(t, db.Migrator().HasTable("gadgets"))

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	_, err = m.Down(ctx, 2)
	assert.Error(t, err)
}

func TestMigrator_FailedScriptRecordsNothing(t *testing.T) {
	db := openSQLite(t)
	broken := append(testMigrations()[:1], Migration{Version: 2, Name: "broken", UpScript: "CREATE TABLE"})
	m := newMigrator(db, broken)
	ctx := context.Background()

	require.Error(t, m.Up(ctx))
	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
}

func TestMigrator_RejectsUnknownAppliedVersion(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, newMigrator(db, testMigrations()).Up(ctx))

	err := newMigrator(db, testMigrations()[:1]).Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002")
}

func TestMigrator_DownWithNothingApplied(t *testing.T) {
	_, err := newMigrator(openSQLite(t), testMigrations()).Down(context.Background(), 0)
	assert.Error(t, err)
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(logger.Warn)
	quiet := l.LogMode(logger.Silent)
	assert.NotSame(t, l, quiet)
	assert.Equal(t, logger.Warn, l.level)
	assert.Equal(t, logger.Silent, quiet.(*GormLogger).level)
	assert.Equal(t, 200*time.Millisecond, l.slow)
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(logger.Warn)
	l.logger = slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, nil)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), `"msg":"slow query"`)

	buf.Reset()
	l.Trace(ctx, time.Now(), sql, errors.New("boom"))
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"sql":"SELECT 1"`)
}
