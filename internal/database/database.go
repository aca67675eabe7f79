// Package database centralises sqlx connection helpers.  Two drivers are
// registered: go-sql-driver/mysql (MySQL, MariaDB) and lib/pq (Postgres).
// Store code writes `?` placeholders and calls db.Rebind, so one query text
// serves both unless a statement needs dialect-specific syntax.
//
// Public entry points:
//
//	Open(driver, dsn)                       – conservative pool sizes.
//	OpenWithOptions(ctx, driver, dsn, opts) – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Driver names accepted by Open.  They double as sqlx bind-type keys.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options tunes one pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra Ping attempts after the first
	RetryBackoff    time.Duration // sleep between attempts
}

// DefaultOptions returns 15 max open, 5 idle, and a 30-minute lifetime.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Open returns a *sqlx.DB with DefaultOptions.
func Open(driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(context.Background(), driver, dsn, DefaultOptions())
}

// OpenWithOptions opens the pool and pings it, retrying the ping
// opts.Retries times so a database that is still booting does not abort
// startup.
func OpenWithOptions(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	switch driver {
	case DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.RetryBackoff):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("database: ping %s: %w", driver, err)
}
