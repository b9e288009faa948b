package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"tutoring/internal/metrics"
)

// Supported driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// ConfigurationError reports a missing or unusable connection descriptor.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "database configuration: " + e.Reason
}

// ConnectionError reports a driver failing to produce a live connection.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection (%s): %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Config describes how to reach the database.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// DB is the database gateway. It hands out one fresh connection per caller
// and keeps no idle connections around.
type DB struct {
	Client  *sql.DB
	driver  string
	metrics *metrics.Metrics
	openErr error
}

// Open validates cfg and prepares the driver. No connection is made until Acquire.
func Open(cfg Config, m *metrics.Metrics) (*DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, &ConfigurationError{Reason: "connection string not set"}
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, &ConfigurationError{Reason: "unsupported driver " + strconv.Quote(driver)}
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}
	db.SetMaxIdleConns(0)
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return &DB{Client: db, driver: driver, metrics: m}, nil
}

// Unavailable returns a gateway whose every Acquire fails with err, so a
// process started without a usable descriptor still answers requests.
func Unavailable(err error) *DB {
	return &DB{openErr: err}
}

// Driver returns the driver name in use.
func (d *DB) Driver() string { return d.driver }

// Acquire returns a live connection. The caller must Close it.
func (d *DB) Acquire(ctx context.Context) (*sql.Conn, error) {
	if d == nil {
		return nil, &ConfigurationError{Reason: "database not configured"}
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	if d.Client == nil {
		return nil, &ConfigurationError{Reason: "database not configured"}
	}
	conn, err := d.Client.Conn(ctx)
	if err == nil {
		// sql.DB opens lazily: make sure the connection actually works.
		if err = conn.PingContext(ctx); err != nil {
			_ = conn.Close()
		}
	}
	d.metrics.ConnOpened(err)
	if err != nil {
		return nil, &ConnectionError{Driver: d.driver, Err: err}
	}
	return conn, nil
}

// Ping checks that a connection can be established.
func (d *DB) Ping(ctx context.Context) error {
	conn, err := d.Acquire(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Rebind rewrites ? placeholders into the form the driver expects.
func (d *DB) Rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// IsConfigurationError reports whether err is a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsConnectionError reports whether err is a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
