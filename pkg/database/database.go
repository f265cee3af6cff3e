package database

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/iota-uz/role-import/pkg/configuration"
)

// ConnectionError reports a database that could not be reached or that
// dropped the connection mid-run.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection (%s): %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Open connects with the configured driver and pings the server within
// opts.Timeout. The pool is limited to one connection; runs are sequential.
func Open(ctx context.Context, opts configuration.DatabaseOptions) (*sqlx.DB, error) {
	switch opts.Driver {
	case configuration.DriverMySQL, configuration.DriverPostgres, configuration.DriverPgx:
	default:
		return nil, errors.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := sqlx.Open(opts.Driver, opts.ConnectionString())
	if err != nil {
		return nil, &ConnectionError{Driver: opts.Driver, Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Driver: opts.Driver, Err: err}
	}
	return db, nil
}

// Classify wraps err in a ConnectionError when it indicates a lost or
// unreachable server. Other errors are returned unchanged.
func Classify(driverName string, err error) error {
	if err == nil || !IsConnectionError(err) {
		return err
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return err
	}
	return &ConnectionError{Driver: driverName, Err: err}
}

func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08"
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUniqueViolation reports a duplicate-key failure from any supported driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
