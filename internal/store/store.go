package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/baisoku/sonar/internal/survey"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres implements survey.Store on top of pgx.
type Postgres struct {
	db   DB
	pool *pgxpool.Pool
}

var _ survey.Store = (*Postgres)(nil)

func New(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: pool, pool: pool}, nil
}

// NewWithDB wraps an existing connection, such as a transaction-scoped pool
// or a mock.
func NewWithDB(db DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the survey tables when they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return survey.ErrNotFound
	}
	return err
}
