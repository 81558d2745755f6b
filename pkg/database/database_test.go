package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(db.Rebind(`INSERT INTO inference_runs (id, tag, model_name, response_method, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`), "01", "tag-1", "yolov5s.pt", "view", "done", 1)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM inference_runs`))
	assert.Equal(t, 1, count)

	// applying twice is harmless
	assert.NoError(t, Migrate(db))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "")
	assert.ErrorContains(t, err, "unsupported")
}

func TestNewCreatesDefaultDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_DSN", "")

	db, err := New()
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, "storage", "nuyolo.db"))
	assert.NoError(t, err)
}

func TestOpenNestedFileDSN(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "a", "b", "runs.db") + "?_pragma=busy_timeout(5000)"
	db, err := Open(DriverSQLite, dsn)
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.Ping())
}

func TestSQLiteFile(t *testing.T) {
	assert.Equal(t, "./storage/nuyolo.db", sqliteFile("./storage/nuyolo.db"))
	assert.Equal(t, "/tmp/x.db", sqliteFile("file:/tmp/x.db?_pragma=foreign_keys(1)"))
	assert.Equal(t, "", sqliteFile(":memory:"))
	assert.Equal(t, "", sqliteFile("file:test?mode=memory&cache=shared"))
	assert.Equal(t, "", sqliteFile(""))
}
