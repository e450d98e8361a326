package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint failure from
// Postgres (pgx or lib/pq) or SQLite. When constraintName is provided the
// constraint (or, for SQLite, the column list) must match as well.
func IsUniqueViolation(err error, constraintName string) bool {
	return matchesConstraint(err, pgUniqueViolation, "UNIQUE constraint failed", constraintName)
}

// IsForeignKeyViolation reports whether err is a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	return matchesConstraint(err, pgForeignKeyViolation, "FOREIGN KEY constraint failed", "")
}

// IsCheckViolation reports whether err is a CHECK constraint failure.
func IsCheckViolation(err error) bool {
	return matchesConstraint(err, pgCheckViolation, "CHECK constraint failed", "")
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func matchesConstraint(err error, pgCode, sqliteMarker, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgCode && (constraintName == "" || pgxErr.ConstraintName == constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgCode && (constraintName == "" || pqErr.Constraint == constraintName)
	}

	msg := err.Error()
	if !strings.Contains(msg, sqliteMarker) && !(pgCode == pgUniqueViolation && strings.Contains(msg, "duplicate key value")) {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// Classify translates a storage error into the API error taxonomy:
// missing rows become NOT_FOUND, unique violations CONFLICT, and everything
// else INTERNAL_ERROR. Errors that are already typed pass through.
func Classify(err error, notFoundMsg, conflictMsg, op string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	switch {
	case IsNotFound(err):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMsg)
	case IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, conflictMsg)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
	}
}
