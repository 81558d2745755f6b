package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS inference_runs (
	id              VARCHAR(26) PRIMARY KEY,
	tag             VARCHAR(36) NOT NULL UNIQUE,
	model_name      TEXT NOT NULL,
	response_method VARCHAR(16) NOT NULL,
	image_name      TEXT NOT NULL DEFAULT '',
	object_count    INTEGER NOT NULL DEFAULT 0,
	status          VARCHAR(16) NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	request_id      TEXT NOT NULL DEFAULT '',
	archived        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inference_runs_created_at ON inference_runs (created_at);
`

func init() {
	// modernc registers as "sqlite", which sqlx does not know the bindvar style of
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// New opens the database named by DB_DRIVER and DB_DSN and applies the schema.
func New() (*sqlx.DB, error) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = DriverSQLite
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" && driver == DriverSQLite {
		dsn = "./storage/nuyolo.db"
	}

	return Open(driver, dsn)
}

func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite {
		if file := sqliteFile(dsn); file != "" {
			if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// sqliteFile is the file path behind a sqlite DSN, or "" for in-memory databases.
func sqliteFile(dsn string) string {
	file := strings.TrimPrefix(dsn, "file:")
	query := ""
	if i := strings.IndexByte(file, '?'); i >= 0 {
		file, query = file[:i], file[i+1:]
	}
	if file == "" || file == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return file
}
