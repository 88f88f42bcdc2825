package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// ErrSessionClosed is returned by any use of a session after Close
var ErrSessionClosed = errors.New("session is closed")

// Factory produces independent sessions over the shared pool
type Factory struct {
	db      *sql.DB
	dialect Dialect
	prePing bool
}

// NewSession returns a new session. No connection is taken from the pool
// until the session runs its first statement.
func (f *Factory) NewSession() *Session {
	return &Session{db: f.db, dialect: f.dialect, prePing: f.prePing}
}

// Session is a unit of work against the store. Statements run inside a
// transaction that is opened lazily and stays open until Commit or Rollback;
// nothing is committed implicitly.
type Session struct {
	db      *sql.DB
	dialect Dialect
	prePing bool

	mu     sync.Mutex
	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
}

// Dialect returns the SQL dialect the session speaks
func (s *Session) Dialect() Dialect {
	return s.dialect
}

// Tx returns the session's open transaction, starting one if needed
func (s *Session) Tx(ctx context.Context) (*sql.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}

	if s.conn == nil {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire connection: %w", err)
		}
		if s.prePing {
			if err := conn.PingContext(ctx); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("connection failed pre-ping: %w", err)
			}
		}
		s.conn = conn
	}

	// Not bound to ctx: only Commit, Rollback or Close end the transaction.
	tx, err := s.conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

// Active reports whether a transaction is currently open
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx != nil
}

// Commit commits the open transaction, if any. The session stays usable;
// the next statement starts a new transaction.
func (s *Session) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the open transaction, if any
func (s *Session) Rollback(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	return s.rollbackLocked()
}

func (s *Session) rollbackLocked() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Close rolls back any open transaction and returns the connection to the
// pool. Calling Close more than once is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	rbErr := s.rollbackLocked()
	if s.conn == nil {
		return rbErr
	}
	connErr := s.conn.Close()
	s.conn = nil
	return errors.Join(rbErr, connErr)
}
