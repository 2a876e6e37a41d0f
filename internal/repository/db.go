package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrUniqueViolation is returned when an insert hits a unique constraint
	ErrUniqueViolation = errors.New("unique violation")
	// ErrForeignKeyViolation is returned when a referenced row is missing or still referenced
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DB is the part of *pgxpool.Pool the repositories use
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// classify maps driver errors onto the package sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pgErr.ConstraintName)
		}
	}
	return err
}

// withTx runs fn in a transaction, committing when it returns nil
func withTx(ctx context.Context, db DB, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// predicates collects WHERE conditions. Conditions use ? for arguments,
// which are numbered in the order they are added.
type predicates struct {
	conds []string
	args  []any
}

func (p *predicates) add(cond string, args ...any) {
	var b strings.Builder
	for _, ch := range cond {
		if ch == '?' && len(args) > 0 {
			p.args = append(p.args, args[0])
			args = args[1:]
			b.WriteString("$")
			b.WriteString(strconv.Itoa(len(p.args)))
			continue
		}
		b.WriteRune(ch)
	}
	p.conds = append(p.conds, b.String())
}

// arg appends a bare argument and returns its placeholder
func (p *predicates) arg(v any) string {
	p.args = append(p.args, v)
	return "$" + strconv.Itoa(len(p.args))
}

func (p *predicates) where() string {
	if len(p.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.conds, " AND ")
}
