package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/middleware"

	"gorm.io/gorm"
)

// migrationLockID keys the Postgres advisory lock held while migrating so
// concurrently starting API replicas apply each script once.
const migrationLockID int64 = 0x5157_1d7e

// MigrationLog is one applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// SchemaStatus reports applied and pending migrations.
type SchemaStatus struct {
	AppliedVersions   []int
	PendingMigrations []Migration
}

// Migrator applies a fixed set of migrations to db and records them in
// migration_logs.
type Migrator struct {
	db         *gorm.DB
	registered []Migration
}

// NewMigrator returns a Migrator for the embedded migrations.
func NewMigrator(db *gorm.DB) *Migrator {
	return newMigrator(db, migrations)
}

func newMigrator(db *gorm.DB, registered []Migration) *Migrator {
	return &Migrator{db: db, registered: registered}
}

// Applied returns applied versions in ascending order. A missing log table
// reads as an empty schema.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	versions := []int{}
	err := m.db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		if isMissingTableError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// Status reads the log without changing the schema.
func (m *Migrator) Status(ctx context.Context) (*SchemaStatus, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return &SchemaStatus{
		AppliedVersions:   applied,
		PendingMigrations: pendingMigrations(applied, m.registered),
	}, nil
}

// Up applies every pending migration in version order. Each script and its
// log row commit together.
func (m *Migrator) Up(ctx context.Context) error {
	return m.locked(ctx, func(db *gorm.DB) error {
		if err := db.AutoMigrate(&MigrationLog{}); err != nil {
			return fmt.Errorf("failed to ensure migration logs table: %w", err)
		}

		runner := &Migrator{db: db, registered: m.registered}
		applied, err := runner.Applied(ctx)
		if err != nil {
			return err
		}
		if err := validateAppliedVersions(applied, m.registered); err != nil {
			return err
		}

		pending := pendingMigrations(applied, m.registered)
		if len(pending) == 0 {
			middleware.Logger.Debug("schema up to date", slog.Int("applied", len(applied)))
			return nil
		}
		for _, mig := range pending {
			if err := runner.apply(ctx, mig); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	start := time.Now()
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.UpScript).Error; err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", mig.String(), err)
		}
		if err := tx.Create(&MigrationLog{Version: mig.Version, Name: mig.Name}).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", mig.String(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("migration applied",
		slog.String("migration", mig.String()),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// Down reverts version, or the latest applied migration when version is 0.
// The rollback script and the log removal commit together.
func (m *Migrator) Down(ctx context.Context, version int) (*Migration, error) {
	var reverted *Migration
	err := m.locked(ctx, func(db *gorm.DB) error {
		runner := &Migrator{db: db, registered: m.registered}
		applied, err := runner.Applied(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			if len(applied) == 0 {
				return errors.New("no migrations have been applied")
			}
			version = applied[len(applied)-1]
		}
		if !slices.Contains(applied, version) {
			return fmt.Errorf("migration %d has not been applied", version)
		}
		mig := runner.find(version)
		if mig == nil {
			return fmt.Errorf("migration version %d not found", version)
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.DownScript).Error; err != nil {
				return fmt.Errorf("failed to run rollback SQL for migration %s: %w", mig.String(), err)
			}
			return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
		})
		if err != nil {
			return err
		}
		middleware.Logger.Info("migration rolled back", slog.String("migration", mig.String()))
		reverted = mig
		return nil
	})
	return reverted, err
}

func (m *Migrator) find(version int) *Migration {
	for i := range m.registered {
		if m.registered[i].Version == version {
			return &m.registered[i]
		}
	}
	return nil
}

// locked runs fn on a single pooled connection holding the migration
// advisory lock. Other dialects have no such lock and run fn directly.
func (m *Migrator) locked(ctx context.Context, fn func(db *gorm.DB) error) error {
	if m.db.Dialector.Name() != "postgres" {
		return fn(m.db.WithContext(ctx))
	}
	return m.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(?)", migrationLockID).Error; err != nil {
			return fmt.Errorf("failed to take migration lock: %w", err)
		}
		defer conn.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)
		return fn(conn)
	})
}

func pendingMigrations(applied []int, registered []Migration) []Migration {
	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}

// validateAppliedVersions rejects a database migrated by a newer build.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == version }) {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("migration_logs contains unknown versions not present in code: %s",
		strings.Join(unknown, ", "))
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return NewMigrator(db).Up(ctx)
}

// GetSchemaStatus reports the embedded migrations against db.
func GetSchemaStatus(ctx context.Context, db *gorm.DB) (*SchemaStatus, error) {
	return NewMigrator(db).Status(ctx)
}

// RollbackMigration reverts version, or the latest when version is 0.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) (*Migration, error) {
	return NewMigrator(db).Down(ctx, version)
}
