package database

import (
	"context"
	"errors"
	"fmt"
)

// Unit is the transactional handle a Scope manages
type Unit interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error
}

// Outcome is how the work owning a Scope ended
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

func (o Outcome) String() string {
	if o == OutcomeFailure {
		return "failure"
	}
	return "success"
}

// Scope binds at most one Unit to a single piece of work (one HTTP request).
// The unit is opened lazily on first access. Finish ends it exactly once:
// commit on success, rollback on failure, then close on every path.
type Scope[U Unit] struct {
	open     func() U
	unit     U
	opened   bool
	finished bool
}

// NewScope returns an empty scope that opens units with open
func NewScope[U Unit](open func() U) *Scope[U] {
	return &Scope[U]{open: open}
}

// Get returns the scope's unit, opening it on first call
func (s *Scope[U]) Get() U {
	if !s.opened {
		s.unit = s.open()
		s.opened = true
	}
	return s.unit
}

// Opened reports whether Get has been called
func (s *Scope[U]) Opened() bool {
	return s.opened
}

// Finish resolves the unit according to outcome and closes it. When no unit
// was opened it does nothing. The returned error joins any commit, rollback
// and close failures.
func (s *Scope[U]) Finish(ctx context.Context, outcome Outcome) (err error) {
	if !s.opened || s.finished {
		return nil
	}
	s.finished = true

	defer func() {
		if cErr := s.unit.Close(); cErr != nil {
			err = errors.Join(err, fmt.Errorf("close: %w", cErr))
		}
	}()

	if outcome == OutcomeFailure {
		if rbErr := s.unit.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback: %w", rbErr)
		}
		return nil
	}

	if cmErr := s.unit.Commit(ctx); cmErr != nil {
		return &CommitError{Err: cmErr}
	}
	return nil
}

// CommitError reports that a successful unit of work could not be committed
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return "commit: " + e.Err.Error()
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
