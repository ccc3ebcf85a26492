package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/warpkit/warpdb/internal/db"
)

// connectionExceptionClass is the PostgreSQL SQLSTATE class for connection
// exceptions (08000, 08003, 08006, ...).
const connectionExceptionClass = "08"

// MapError maps a driver error to the runtime's error vocabulary. Connection
// exceptions are wrapped as db.ErrConnection so callers can detect them with
// errors.Is; everything else passes through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionException(err) {
		return fmt.Errorf("%w: %v", db.ErrConnection, err)
	}
	return err
}

// IsConnectionException checks if the given error is a PostgreSQL connection
// exception (SQLSTATE class 08).
func IsConnectionException(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, connectionExceptionClass)
}
