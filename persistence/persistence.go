// Package persistence opens the bun database used by the account store.
package persistence

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options customize Open.
type Options struct {
	Driver string
	DSN    string
	// Debug logs every query with its arguments.
	Debug bool
}

// Option mutates Options.
type Option func(*Options)

// WithQueryDebug toggles the bundebug query hook.
func WithQueryDebug(enabled bool) Option {
	return func(o *Options) {
		o.Debug = enabled
	}
}

// Open connects to driver at dsn and returns a bun.DB with the matching
// dialect. SQLite connections are limited to one so writes serialize.
func Open(driver, dsn string, opts ...Option) (*bun.DB, error) {
	o := Options{Driver: strings.ToLower(strings.TrimSpace(driver)), DSN: dsn}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var db *bun.DB
	switch o.Driver {
	case DriverSQLite, "sqlite3", "":
		sqldb, err := sql.Open(sqliteshim.ShimName, o.DSN)
		if err != nil {
			return nil, fmt.Errorf("persistence: open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres, "postgresql", "pg":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(o.DSN)))
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("persistence: unsupported driver %q", driver)
	}

	if o.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return db, nil
}
