package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"pushhook/internal/platform/config"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// DB is a *sql.DB that remembers which engine it talks to.
type DB struct {
	*sql.DB
	Dialect string
}

func Wrap(db *sql.DB, dialect string) *DB {
	return &DB{DB: db, Dialect: dialect}
}

// DriverFor maps a database URL onto a driver name and DSN.
func DriverFor(url string) (driver, dsn string) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DialectPostgres, url
	}

	// For local sqlite files, strip "file:" since mattn/go-sqlite3 takes a plain path too
	dsn = url
	if strings.HasPrefix(dsn, "file:") {
		dsn = dsn[len("file:"):]
	}
	return DialectSQLite, dsn
}

func Open(cfg config.DatabaseConfig) (*DB, error) {
	driver, dsn := DriverFor(cfg.URL)

	if driver == DialectSQLite && dsn != ":memory:" && !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return Wrap(db, driver), nil
}

// Rebind rewrites ? placeholders into $n for postgres.
func (d *DB) Rebind(query string) string {
	if d.Dialect != DialectPostgres {
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

// Placeholders returns "?, ?, ..." with n entries.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
