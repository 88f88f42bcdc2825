package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var taskTableDDL = map[Dialect]string{
	DialectSQLite: `
		CREATE TABLE IF NOT EXISTS task (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	DialectPostgres: `
		CREATE TABLE IF NOT EXISTS task (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT now()
		)`,
}

// EnsureSchema creates the task table when it does not exist yet. It is
// idempotent and does not track versions.
func (db *DB) EnsureSchema(ctx context.Context) error {
	ddl, ok := taskTableDDL[db.dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", db.dialect)
	}

	s := db.factory.NewSession()
	defer func() { _ = s.Close() }()

	if _, err := exec(ctx, s, ddl); err != nil {
		return fmt.Errorf("failed to create task table: %w", err)
	}
	if err := s.Commit(ctx); err != nil {
		return fmt.Errorf("failed to create task table: %w", err)
	}

	log.Debug().Str("dialect", string(db.dialect)).Msg("Task schema ready")
	return nil
}
