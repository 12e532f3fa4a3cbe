// Package postgres is the PostgreSQL implementation of every repository.
// Statements run on the transaction carried in context when one is open, so
// repositories compose into a single unit of work through Store.RunInTx.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "flock/pkg/domain"
	dErrors "flock/pkg/domain-errors"
	"flock/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

//go:embed schema.sql
var schema string

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type scanner interface {
	Scan(dest ...any) error
}

// Store owns the connection pool.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

func New(db *sql.DB) *Store {
	return &Store{db: db, timeout: defaultTxTimeout}
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// RunInTx runs fn inside a database transaction carried in ctx. Nested calls
// join the open transaction. Hooks registered with tx.AfterCommit run after
// a successful commit.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	ctx, runHooks := tx.WithHooks(tx.WithTx(ctx, sqlTx))
	if err := fn(ctx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	runHooks()
	return nil
}

func (s *Store) execer(ctx context.Context) tx.Execer {
	return tx.Pick(ctx, s.db)
}

// forUpdate locks the rows a unit of work reads so concurrent writers
// serialise on them.
func forUpdate(ctx context.Context) string {
	if _, ok := tx.From(ctx); ok {
		return " FOR UPDATE"
	}
	return ""
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == uniqueViolation
}

func requireOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullMemberID(p *id.MemberID) uuid.NullUUID {
	if p == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*p), Valid: true}
}

func memberIDPtr(n uuid.NullUUID) *id.MemberID {
	if !n.Valid {
		return nil
	}
	m := id.MemberID(n.UUID)
	return &m
}

// Members returns the member repository.
func (s *Store) Members() *Members { return &Members{s: s} }

// Services returns the service catalog repository.
func (s *Store) Services() *Services { return &Services{s: s} }

// Events returns the check-in event repository.
func (s *Store) Events() *Events { return &Events{s: s} }

// Tasks returns the follow-up task repository.
func (s *Store) Tasks() *Tasks { return &Tasks{s: s} }

// Visitors returns the visitor record repository.
func (s *Store) Visitors() *Visitors { return &Visitors{s: s} }

// Absences returns the absence and run repository.
func (s *Store) Absences() *Absences { return &Absences{s: s} }
