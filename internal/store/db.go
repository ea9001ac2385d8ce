package store

import (
	"context"
	"errors"

	"github.com/credence-core/credence/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by point writes that matched no row.
var ErrNotFound = errors.New("not found")

// DB is the querier shared by pool- and transaction-bound stores.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres implementation of the storage contract.
type Store struct {
	pool *pgxpool.Pool // nil when transaction-bound
	db   DB
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

func (s *Store) Graph() domain.GraphStore                     { return &GraphStore{db: s.db} }
func (s *Store) Verifications() domain.VerificationEventStore { return &VerificationEventStore{db: s.db} }
func (s *Store) Claims() domain.ClaimStore                    { return &ClaimStore{db: s.db} }
func (s *Store) TrustStates() domain.TrustStateStore          { return &TrustStateStore{db: s.db} }
func (s *Store) Checkpoints() domain.CheckpointStore          { return &CheckpointStore{db: s.db} }
func (s *Store) Jobs() domain.ProjectionJobStore              { return &ProjectionJobStore{db: s.db} }
func (s *Store) Versions() domain.VersionStore                { return &VersionStore{db: s.db} }

// WithTransaction runs fn against a transaction-bound store. Nested calls
// reuse the enclosing transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
