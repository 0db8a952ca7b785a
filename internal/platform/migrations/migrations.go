package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const dir = "sql"

// goose keeps its FS and dialect in package globals.
var mu sync.Mutex

type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

// SetLogger routes goose output through zerolog.
func SetLogger(logger zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	goose.SetLogger(gooseLogger{logger: logger.With().Str("component", "migrations").Logger()})
}

func prepare(dialect string) error {
	goose.SetBaseFS(embeddedMigrations)
	return goose.SetDialect(dialect)
}

func Up(db *sql.DB, dialect string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := prepare(dialect); err != nil {
		return err
	}
	return goose.Up(db, dir)
}

func Down(db *sql.DB, dialect string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := prepare(dialect); err != nil {
		return err
	}
	return goose.Down(db, dir)
}

func Status(db *sql.DB, dialect string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := prepare(dialect); err != nil {
		return err
	}
	return goose.Status(db, dir)
}

// Run dispatches on the -direction flag value of cmd/migrate.
func Run(db *sql.DB, dialect, direction string) error {
	switch direction {
	case "up":
		return Up(db, dialect)
	case "down":
		return Down(db, dialect)
	case "status":
		return Status(db, dialect)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
}
