package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/saltyorg/taskd/internal/config"
)

func TestOpen_SQLitePathWithURICharacters(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"tasks?v2.db", "tasks#1.db", "100%.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			cfg := &config.DatabaseConfig{Backend: config.BackendSQLite, FilePath: path}

			db, err := Open(context.Background(), cfg, DefaultPoolConfig())
			if err != nil {
				t.Fatalf("failed to open db: %v", err)
			}
			defer db.Close()
			if err := db.EnsureSchema(context.Background()); err != nil {
				t.Fatalf("failed to ensure schema: %v", err)
			}

			if _, err := os.Stat(path); err != nil {
				t.Fatalf("expected database file at %s: %v", path, err)
			}
		})
	}
}
