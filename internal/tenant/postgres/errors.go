package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/epsum/epsumstock/internal/tenant"
)

// mapPostgresError maps PostgreSQL errors onto the tenant sentinels. The
// original error stays in the chain so retry classification still sees it.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s: %w", tenant.ErrNameTaken, pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		// Deleting a referenced row reports "update or delete on table ...".
		if strings.HasPrefix(pgErr.Message, "update or delete") {
			return fmt.Errorf("%w: %s: %w", tenant.ErrDeletionNotAllowed, pgErr.ConstraintName, err)
		}
		return fmt.Errorf("%w: %s: %w", tenant.ErrNotFound, pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		if pgErr.ConstraintName == "products_quantity_check" {
			return fmt.Errorf("%w: %w", tenant.ErrInsufficientStock, err)
		}
		return fmt.Errorf("%w: %s: %w", tenant.ErrValidation, pgErr.ConstraintName, err)

	case pgerrcode.NumericValueOutOfRange:
		return fmt.Errorf("%w: value out of range: %w", tenant.ErrValidation, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.AdminShutdown, pgerrcode.CrashShutdown:
		return fmt.Errorf("database server unavailable: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	case pgerrcode.InsufficientResources,
		pgerrcode.DiskFull,
		pgerrcode.OutOfMemory,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("database resource limit: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, err)
	}
}
