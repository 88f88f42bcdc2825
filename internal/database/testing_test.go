package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/saltyorg/taskd/internal/config"
)

// openTestDB opens a fresh SQLite database with the task schema applied
func openTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Backend:  config.BackendSQLite,
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := Open(context.Background(), cfg, DefaultPoolConfig())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
	return db
}
