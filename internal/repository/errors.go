package repository

import (
	"errors"
	"fmt"

	"github.com/digitalmaniak/sidewidth/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE codes for constraint violations.
const (
	sqlStateForeignKeyViolation = "23503"
	sqlStateUniqueViolation     = "23505"
)

// classify maps a storage error to the application error taxonomy.
// Constraint violations become conflicts; everything else is wrapped with op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConstraintViolation(err) {
		return models.NewConflictError(op+" violates a constraint", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateForeignKeyViolation || pgErr.Code == sqlStateUniqueViolation
	}
	return false
}
