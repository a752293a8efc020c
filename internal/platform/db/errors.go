package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nou-pos/nou/internal/shared"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Wrap translates driver errors into the shared taxonomy, prefixing op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, shared.ErrNotFound)
	case IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, shared.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w: %v", op, shared.ErrBackend, err)
	}
}
