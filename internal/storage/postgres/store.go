package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
)

// DBTX is satisfied by both the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements the Genesis backend on PostgreSQL.
type Store struct {
	pool          *pgxpool.Pool
	db            DBTX
	defaultBoosts int
}

// NewStore opens a connection pool and verifies it with a ping.
func NewStore(ctx context.Context, dataSourceName string, defaultBoosts int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.InfoContext(ctx, "connected to PostgreSQL")
	return &Store{pool: pool, db: pool, defaultBoosts: defaultBoosts}, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&Store{pool: s.pool, db: tx, defaultBoosts: s.defaultBoosts}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// notFound maps pgx.ErrNoRows, malformed ids and missing foreign rows to storage.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "22P02" || pgErr.Code == "23503") {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return err
}

// conflict maps unique violations to storage.ErrConflict.
func conflict(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", what, storage.ErrConflict)
	}
	return err
}

// nullableSummary turns the columns of a LEFT JOINed profile into a summary.
func nullableSummary(id, fullName, avatar *string) *models.ProfileSummary {
	if id == nil {
		return nil
	}
	s := &models.ProfileSummary{ID: *id, AvatarURL: avatar}
	if fullName != nil {
		s.FullName = *fullName
	}
	return s
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
