package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/repository"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same repository code serves pool-scoped reads and in-transaction work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles all repositories over one handle. The pool-backed Store
// also implements repository.Transactor.
type Store struct {
	db  *sql.DB
	dbx DBTX

	events        repository.EventRepository
	payments      repository.PaymentRepository
	contracts     repository.ContractRepository
	audit         repository.AuditRepository
	notifications repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return newStore(db, db)
}

func newStore(db *sql.DB, dbx DBTX) *Store {
	return &Store{
		db:            db,
		dbx:           dbx,
		events:        NewEventRepository(dbx),
		payments:      NewPaymentRepository(dbx),
		contracts:     NewContractRepository(dbx),
		audit:         NewAuditRepository(dbx),
		notifications: NewNotificationRepository(dbx),
	}
}

func (s *Store) Events() repository.EventRepository { return s.events }
func (s *Store) Payments() repository.PaymentRepository { return s.payments }
func (s *Store) Contracts() repository.ContractRepository { return s.contracts }
func (s *Store) Audit() repository.AuditRepository { return s.audit }
func (s *Store) Notifications() repository.NotificationRepository { return s.notifications }

// RunSerializable opens one serializable transaction, optionally acquires
// a transaction-scoped advisory lock keyed by lockKey, and runs fn against
// transaction-bound repositories. Serialization failures (including those
// reported at commit) surface as repository.ErrSerializationConflict so
// callers can retry the whole attempt.
func (s *Store) RunSerializable(ctx context.Context, lockKey string, fn func(repository.TxStore) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if lockKey != "" {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("advisory lock %q: %w", lockKey, mapError(err))
		}
	}

	if err := fn(newStore(s.db, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

// mapError translates driver error codes into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return repository.ErrSerializationConflict
		case "23505":
			return repository.ErrDuplicateKey
		}
	}
	return err
}

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Database ping failed", "error", err)
		return err
	}
	return nil
}
