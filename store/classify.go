package store

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// classify maps a raw driver error to one of the package's sentinel
// errors so callers never see pgconn/pgx error types directly.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTransient
	}

	return err
}
