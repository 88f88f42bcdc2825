package database

import (
	"context"
	"fmt"
)

// Check runs a trivial round trip (SELECT 1) through s and returns the
// values it produced.
func Check(ctx context.Context, s Querier) ([]int64, error) {
	rows, err := query(ctx, s, "SELECT 1")
	if err != nil {
		return nil, fmt.Errorf("database check failed: %w", err)
	}
	defer rows.Close()

	var results []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("database check failed: %w", err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database check failed: %w", err)
	}
	return results, nil
}

// Optimize refreshes planner statistics: PRAGMA optimize on SQLite, ANALYZE
// of the task table on Postgres.
func (db *DB) Optimize(ctx context.Context) error {
	stmt := "PRAGMA optimize"
	if db.dialect == DialectPostgres {
		stmt = "ANALYZE task"
	}

	// Statistics commands run outside a session transaction.
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	return nil
}
