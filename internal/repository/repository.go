package repository

import (
	"context"
	"errors"
	"time"

	"rentfolio-backend/internal/domain"
)

// Sentinel errors mapped from driver-level failures so services can make
// retry decisions without importing the postgres package.
var (
	ErrNotFound              = errors.New("record not found")
	ErrDuplicateKey          = errors.New("duplicate key")
	ErrSerializationConflict = errors.New("serialization conflict")
)

type EventRepository interface {
	// Append inserts one immutable event. It never reads prior state;
	// callers hold their correctness guarantees from the surrounding
	// transaction.
	Append(ctx context.Context, event *domain.Event) error
	ListByTarget(ctx context.Context, targetType domain.TargetType, targetID string) ([]domain.Event, error)
	// ListWithdrawals returns every event of every withdrawal stream
	// requested by actorID, or of all streams when actorID is nil (admin
	// scope). Transition events authored by reviewers are included.
	ListWithdrawals(ctx context.Context, actorID *int64) ([]domain.Event, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	// Settle persists a terminal status change plus receipt number,
	// failure reason and owner-notification timestamp.
	Settle(ctx context.Context, payment *domain.Payment) error
	// SumCompleted totals completed payment amounts, scoped to properties
	// owned by ownerID or global when ownerID is nil.
	SumCompleted(ctx context.Context, ownerID *int64) (float64, error)
	ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Payment, error)
}

type ContractRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Contract, error)
}

type AuditRepository interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int64, limit, offset int64) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
}

// TxStore exposes the repositories bound to one database handle, either
// the pool or a single open transaction.
type TxStore interface {
	Events() EventRepository
	Payments() PaymentRepository
	Contracts() ContractRepository
	Audit() AuditRepository
	Notifications() NotificationRepository
}

// Transactor runs a function inside one serializable transaction. When
// lockKey is non-empty a transaction-scoped advisory lock keyed by the
// string is acquired before fn runs, so conflicting operations sharing the
// key serialize on it. A store-detected conflict surfaces as
// ErrSerializationConflict after rollback.
type Transactor interface {
	RunSerializable(ctx context.Context, lockKey string, fn func(TxStore) error) error
}
