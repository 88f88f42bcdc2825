package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/saltyorg/taskd/internal/config"
)

// Dialect selects SQL flavour differences between the supported stores
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// PoolConfig tunes the shared connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// PrePing verifies a pooled connection before a session starts using it
	PrePing bool
}

// DefaultPoolConfig returns pool settings suitable for either backend
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		PrePing:         true,
	}
}

// LoadPoolConfig reads pool overrides through loader
func LoadPoolConfig(loader *config.Loader) PoolConfig {
	def := DefaultPoolConfig()
	return PoolConfig{
		MaxOpenConns:    loader.Int("DB_MAX_OPEN_CONNS", def.MaxOpenConns),
		MaxIdleConns:    loader.Int("DB_MAX_IDLE_CONNS", def.MaxIdleConns),
		ConnMaxLifetime: loader.Duration("DB_CONN_MAX_LIFETIME", def.ConnMaxLifetime),
		PrePing:         loader.Bool("DB_PRE_PING", def.PrePing),
	}
}

// DB is the store engine: one connection pool shared by every session
type DB struct {
	conn    *sql.DB
	dialect Dialect
	factory *Factory
}

// Open creates the engine for cfg and verifies the store is reachable
func Open(ctx context.Context, cfg *config.DatabaseConfig, pool PoolConfig) (*DB, error) {
	conn, err := sql.Open(cfg.Driver(), cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(pool.MaxOpenConns)
	conn.SetMaxIdleConns(pool.MaxIdleConns)
	conn.SetConnMaxLifetime(pool.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dialect := DialectSQLite
	if cfg.Backend == config.BackendPostgres {
		dialect = DialectPostgres
	}
	db := newDB(conn, dialect, pool)

	log.Debug().
		Str("backend", string(cfg.Backend)).
		Str("dsn", cfg.Redacted()).
		Int("max_open_conns", pool.MaxOpenConns).
		Msg("Database connection established")

	return db, nil
}

func newDB(conn *sql.DB, dialect Dialect, pool PoolConfig) *DB {
	db := &DB{conn: conn, dialect: dialect}
	db.factory = &Factory{db: conn, dialect: dialect, prePing: pool.PrePing}
	return db
}

// Factory returns the session factory bound to this engine
func (db *DB) Factory() *Factory {
	return db.factory
}

// Dialect returns the SQL dialect of the engine
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Stats exposes pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.conn.Stats()
}

// Close releases every pooled connection
func (db *DB) Close() error {
	return db.conn.Close()
}
