// Package database handles database connections and migrations.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/config"
	"github.com/digitalmaniak/sidewidth/internal/middleware"
	"github.com/digitalmaniak/sidewidth/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database connection instance.
var DB *gorm.DB

// slowQueryThreshold is the elapsed time above which queries log at warn.
const slowQueryThreshold = 200 * time.Millisecond

// GormLogger sends GORM output through the application slog logger so SQL
// lines carry the request id of the context they ran under.
type GormLogger struct {
	logger *slog.Logger
	level  logger.LogLevel
	slow   time.Duration
}

// NewGormLogger returns a GormLogger at level.
func NewGormLogger(level logger.LogLevel) *GormLogger {
	return &GormLogger{logger: middleware.Logger, level: level, slow: slowQueryThreshold}
}

// LogMode returns a copy of l at level.
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Error, slog.LevelError, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, threshold logger.LogLevel, level slog.Level, msg string, data []interface{}) {
	if l.level >= threshold {
		l.logger.Log(ctx, level, fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed queries at error and slow ones at warn. Every query is
// logged at info only when the level asks for it.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		level slog.Level
		msg   string
	)
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		level, msg = slog.LevelError, "query failed"
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		level, msg = slog.LevelWarn, "slow query"
	case l.level >= logger.Info:
		level, msg = slog.LevelInfo, "query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if level == slog.LevelError {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}

// DSN builds the PostgreSQL connection string for cfg.
func DSN(cfg *config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		sslMode,
	)
}

// GormConfig is shared by every dialector the application opens.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         NewGormLogger(logger.Warn),
		TranslateError: true,
	}
}

// connectAttempts bounds how often Connect retries while Postgres starts up.
const connectAttempts = 5

// Connect opens the Postgres database for cfg, retrying with a growing delay
// until it answers a ping or ctx ends.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := open(ctx, cfg)
		if err == nil {
			middleware.Logger.Info("database connected",
				slog.String("host", cfg.DBHost),
				slog.String("name", cfg.DBName),
			)
			DB = db
			return db, nil
		}
		lastErr = err
		if attempt == connectAttempts {
			break
		}

		delay := time.Duration(attempt) * time.Second
		middleware.Logger.Warn("database not ready",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to connect to database: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, lastErr)
}

func open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), GormConfig())
	if err != nil {
		return nil, err
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	if err := Ping(ctx, db); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return db, nil
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)
	}
	return nil
}

// Ping reports whether the database answers within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PersistentModels returns the GORM models whose tables the SQL migrations
// own. Tests use it to build the same tables on SQLite.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Post{},
		&models.Vote{},
	}
}

// AutoMigrate creates the tables of PersistentModels. The post_stats view and
// get_nearby_posts function are Postgres-only and come from RunMigrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
