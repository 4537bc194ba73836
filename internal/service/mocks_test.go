package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/provider"
	"rentfolio-backend/internal/repository"
)

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Append(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) ListByTarget(ctx context.Context, targetType domain.TargetType, targetID string) ([]domain.Event, error) {
	args := m.Called(ctx, targetType, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockEventRepository) ListWithdrawals(ctx context.Context, actorID *int64) ([]domain.Event, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Settle(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) SumCompleted(ctx context.Context, ownerID *int64) (float64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPaymentRepository) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Payment, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNotificationRepository) List(ctx context.Context, userID int64, limit, offset int64) ([]domain.Notification, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, id, userID int64) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) RequestPayment(ctx context.Context, req provider.PaymentRequest) (*provider.PaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.PaymentResponse), args.Error(1)
}

// fakeTxStore bundles the repository mocks behind the TxStore interface so a
// single instance can serve both pool reads and transactional writes.
type fakeTxStore struct {
	events        *MockEventRepository
	payments      *MockPaymentRepository
	contracts     *MockContractRepository
	audit         *MockAuditRepository
	notifications *MockNotificationRepository
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{
		events:        new(MockEventRepository),
		payments:      new(MockPaymentRepository),
		contracts:     new(MockContractRepository),
		audit:         new(MockAuditRepository),
		notifications: new(MockNotificationRepository),
	}
}

func (s *fakeTxStore) Events() repository.EventRepository { return s.events }
func (s *fakeTxStore) Payments() repository.PaymentRepository { return s.payments }
func (s *fakeTxStore) Contracts() repository.ContractRepository { return s.contracts }
func (s *fakeTxStore) Audit() repository.AuditRepository { return s.audit }
func (s *fakeTxStore) Notifications() repository.NotificationRepository { return s.notifications }

// fakeTransactor hands fn the wrapped store, optionally failing attempts
// with a serialization conflict to exercise the retry loop: `failures`
// rejects before fn runs, `commitFailures` runs fn and then fails the
// attempt, like a conflict detected at commit. Lock keys are recorded for
// assertion.
type fakeTransactor struct {
	store          repository.TxStore
	failures       int
	commitFailures int
	lockKeys       []string
}

func (t *fakeTransactor) RunSerializable(ctx context.Context, lockKey string, fn func(repository.TxStore) error) error {
	t.lockKeys = append(t.lockKeys, lockKey)
	if t.failures > 0 {
		t.failures--
		return repository.ErrSerializationConflict
	}
	if t.commitFailures > 0 {
		t.commitFailures--
		if err := fn(t.store); err != nil {
			return err
		}
		return repository.ErrSerializationConflict
	}
	return fn(t.store)
}
