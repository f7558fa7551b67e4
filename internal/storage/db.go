// Package storage is the SQL row store shared by the sqlite and postgres backends.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects driver name and placeholder syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgres:
		return "postgres"
	}
	return "unknown"
}

func (d Dialect) driverName() string {
	return d.String()
}

// Rebind rewrites '?' placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// SQLiteDSN enables foreign keys and a busy timeout on every connection.
func SQLiteDSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// OpenSQLite opens (creating if needed) the database file and migrates it.
func OpenSQLite(ctx context.Context, dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(ctx, DialectSQLite, SQLiteDSN(dbPath), func(db *sql.DB) {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
		db.SetMaxOpenConns(1)
	})
}

// OpenPostgres connects to the hosted database and migrates it.
func OpenPostgres(ctx context.Context, dsn string) (*Repository, error) {
	return open(ctx, DialectPostgres, dsn, func(db *sql.DB) {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	})
}

func open(ctx context.Context, d Dialect, dsn string, tune func(*sql.DB)) (*Repository, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d, err)
	}
	tune(db)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewRepository(db, d), nil
}
