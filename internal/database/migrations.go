// file: internal/database/migrations.go
// version: 2.0.0
// guid: 9a8b7c6d-5e4f-3d2c-1b0a-9f8e7d6c5b4a

package database

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// goose keeps its logger, base FS and dialect in package globals.
var migrationMutex sync.Mutex

// gooseZerologAdapter redirects goose output to zerolog.
type gooseZerologAdapter struct{}

func (*gooseZerologAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (*gooseZerologAdapter) Fatalf(format string, v ...any) {
	log.Fatal().Msgf(format, v...)
}

// migrateSQLite applies the embedded goose migrations to db.
func migrateSQLite(db *sql.DB) error {
	migrationMutex.Lock()
	defer migrationMutex.Unlock()

	goose.SetLogger(&gooseZerologAdapter{})
	goose.SetBaseFS(migrationFiles)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("error setting goose dialect: %w", err)
	}
	if err := goose.Up(db, migrationDir); err != nil {
		return fmt.Errorf("error running migrations up: %w", err)
	}
	return nil
}

// schemaVersion reports the applied schema version of db.
func schemaVersion(db *sql.DB) (int64, error) {
	migrationMutex.Lock()
	defer migrationMutex.Unlock()

	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}

// RunMigrations brings the store schema up to date. SQLite uses the
// embedded goose migrations; Pebble records its key schema version.
func RunMigrations(store Store) error {
	switch s := store.(type) {
	case *SQLiteStore:
		return migrateSQLite(s.db)
	case *PebbleStore:
		return s.migrate()
	default:
		return nil
	}
}
