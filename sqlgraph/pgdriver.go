package sqlgraph

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// registers the "postgres" database/sql driver Open dials.
	_ "github.com/lib/pq"

	"github.com/hashintel/graphcompiler/temporal"
)

// Driver wraps a *sql.DB opened against the "postgres" database/sql driver,
// giving the compiled Statement a thin, single-dialect execution surface.
type Driver struct {
	db *sql.DB
}

// Open opens a new Postgres connection pool at source and registers it as a
// Driver.
func Open(source string) (*Driver, error) {
	db, err := sql.Open("postgres", source)
	if err != nil {
		return nil, fmt.Errorf("sqlgraph: open postgres: %w", err)
	}
	return &Driver{db: db}, nil
}

// OpenDB wraps an already-open *sql.DB as a Driver.
func OpenDB(db *sql.DB) *Driver { return &Driver{db: db} }

// DB returns the underlying connection pool.
func (d *Driver) DB() *sql.DB { return d.db }

// Close closes the underlying connection pool.
func (d *Driver) Close() error { return d.db.Close() }

// Tx starts a transaction.
func (d *Driver) Tx(ctx context.Context) (*sql.Tx, error) {
	return d.db.BeginTx(ctx, nil)
}

// Rows is the result of executing a compiled Statement.
type Rows struct {
	*sql.Rows
}

// ExecQuerier is implemented by both *sql.DB and *sql.Tx, letting Query run
// a Statement against either a pooled connection or an open transaction.
type ExecQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Query executes stmt against q and returns the resulting rows.
func Query(ctx context.Context, q ExecQuerier, stmt *Statement) (*Rows, error) {
	rows, err := q.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("sqlgraph: query: %w", err)
	}
	return &Rows{rows}, nil
}

// tstzrangeLiteral formats iv as a single Postgres range-literal string (e.g.
// "[2026-01-01T00:00:00Z,)"), bound as one ParamTstzRange parameter against
// a `&&` operand — Postgres infers the parameter's type from the column on
// the other side, so no explicit cast is needed.
func tstzrangeLiteral(iv temporal.Interval) string {
	lower, upper, flags := iv.Range()
	lowerText := ""
	if iv.Lower.Kind != temporal.Unbounded {
		lowerText = lower.Format(time.RFC3339Nano)
	}
	upperText := ""
	if iv.Upper.Kind != temporal.Unbounded {
		upperText = upper.Format(time.RFC3339Nano)
	}
	return string(flags[0]) + lowerText + "," + upperText + string(flags[1])
}
