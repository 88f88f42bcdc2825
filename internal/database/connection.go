package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Querier is the part of a Session a repository borrows
type Querier interface {
	Tx(ctx context.Context) (*sql.Tx, error)
	Commit(ctx context.Context) error
	Dialect() Dialect
}

func exec(ctx context.Context, q Querier, query string, args ...any) (sql.Result, error) {
	tx, err := q.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return tx.ExecContext(ctx, rebind(q.Dialect(), query), args...)
}

func query(ctx context.Context, q Querier, query string, args ...any) (*sql.Rows, error) {
	tx, err := q.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return tx.QueryContext(ctx, rebind(q.Dialect(), query), args...)
}

// queryRow runs a single-row query. A failure to obtain the transaction is
// reported by the returned scanner, mirroring *sql.Row.
func queryRow(ctx context.Context, q Querier, query string, args ...any) rowScanner {
	tx, err := q.Tx(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return tx.QueryRowContext(ctx, rebind(q.Dialect(), query), args...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// rebind rewrites ? placeholders to $1..$n for postgres. Queries in this
// package never contain a literal '?' inside strings.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
