package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/provider"
	"rentfolio-backend/internal/repository"
)

func activeContract() *domain.Contract {
	return &domain.Contract{
		ID:         10,
		PropertyID: 5,
		TenantID:   9,
		OwnerID:    42,
		RentAmount: 150_000,
		Status:     domain.ContractStatusActive,
	}
}

func TestInitiatePayment(t *testing.T) {
	ctx := context.Background()
	tenant := domain.Actor{ID: 9, Email: "tenant@rentfolio.test", Role: domain.RoleTenant}

	validInput := PaymentInitiationInput{
		ContractID:     10,
		Amount:         150_000,
		PhoneNumber:    "237650111222",
		Provider:       "MTN",
		IdempotencyKey: "client-key-0001",
	}

	t.Run("Success", func(t *testing.T) {
		store := newFakeTxStore()
		txn := &fakeTransactor{store: store}
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, txn, providerClient)

		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).
			Return(nil, repository.ErrNotFound).Once()
		store.contracts.On("GetByID", ctx, int64(10)).Return(activeContract(), nil)
		providerClient.On("RequestPayment", ctx, mock.AnythingOfType("provider.PaymentRequest")).
			Return(&provider.PaymentResponse{TransactionID: "MP-abc123", Status: provider.StatusPending}, nil)
		store.payments.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)
		store.audit.On("Record", ctx, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)

		result, err := svc.InitiatePayment(ctx, tenant, validInput)
		require.NoError(t, err)
		assert.False(t, result.Idempotent)
		assert.Equal(t, "MP-abc123", result.TransactionID)
		assert.Equal(t, domain.PaymentStatusPending, result.Status)
		assert.NotEmpty(t, result.PaymentID)

		created := store.payments.Calls[1].Arguments.Get(1).(*domain.Payment)
		assert.Equal(t, validInput.IdempotencyKey, created.IdempotencyKey)
		assert.Equal(t, tenant.ID, created.InitiatedByID)
		assert.Equal(t, string(domain.RoleTenant), created.InitiatedByRole)
		require.NotNil(t, created.TenantID)
		assert.Equal(t, int64(9), *created.TenantID)
	})

	t.Run("IdempotentReplaySameCaller", func(t *testing.T) {
		store := newFakeTxStore()
		txn := &fakeTransactor{store: store}
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, txn, providerClient)

		existing := &domain.Payment{
			ID:            "pay-1",
			TransactionID: "MP-abc123",
			Status:        domain.PaymentStatusPending,
			InitiatedByID: tenant.ID,
		}
		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).Return(existing, nil)

		result, err := svc.InitiatePayment(ctx, tenant, validInput)
		require.NoError(t, err)
		assert.True(t, result.Idempotent)
		assert.Equal(t, "pay-1", result.PaymentID)
		// no new provider call, no new row
		providerClient.AssertNotCalled(t, "RequestPayment", mock.Anything, mock.Anything)
		store.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Empty(t, txn.lockKeys)
	})

	t.Run("IdempotencyKeyOwnedByOtherCaller", func(t *testing.T) {
		store := newFakeTxStore()
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, &fakeTransactor{store: store}, providerClient)

		existing := &domain.Payment{ID: "pay-1", InitiatedByID: 777}
		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).Return(existing, nil)

		_, err := svc.InitiatePayment(ctx, tenant, validInput)
		assert.ErrorIs(t, err, ErrIdempotencyKeyConflict)
	})

	t.Run("ContractNotFound", func(t *testing.T) {
		store := newFakeTxStore()
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, &fakeTransactor{store: store}, providerClient)

		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).Return(nil, repository.ErrNotFound)
		store.contracts.On("GetByID", ctx, int64(10)).Return(nil, repository.ErrNotFound)

		_, err := svc.InitiatePayment(ctx, tenant, validInput)
		assert.ErrorIs(t, err, ErrContractNotFound)
	})

	t.Run("ContractNotActive", func(t *testing.T) {
		store := newFakeTxStore()
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, &fakeTransactor{store: store}, providerClient)

		terminated := activeContract()
		terminated.Status = domain.ContractStatusTerminated
		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).Return(nil, repository.ErrNotFound)
		store.contracts.On("GetByID", ctx, int64(10)).Return(terminated, nil)

		_, err := svc.InitiatePayment(ctx, tenant, validInput)
		assert.ErrorIs(t, err, ErrContractNotActive)
	})

	t.Run("AmountMismatch", func(t *testing.T) {
		store := newFakeTxStore()
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, &fakeTransactor{store: store}, providerClient)

		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).Return(nil, repository.ErrNotFound)
		store.contracts.On("GetByID", ctx, int64(10)).Return(activeContract(), nil)

		in := validInput
		in.Amount = 150_000.02
		_, err := svc.InitiatePayment(ctx, tenant, in)
		assert.ErrorIs(t, err, ErrAmountMismatch)
		providerClient.AssertNotCalled(t, "RequestPayment", mock.Anything, mock.Anything)
	})

	t.Run("AmountWithinEpsilonAccepted", func(t *testing.T) {
		store := newFakeTxStore()
		txn := &fakeTransactor{store: store}
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, txn, providerClient)

		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).Return(nil, repository.ErrNotFound)
		store.contracts.On("GetByID", ctx, int64(10)).Return(activeContract(), nil)
		providerClient.On("RequestPayment", ctx, mock.AnythingOfType("provider.PaymentRequest")).
			Return(&provider.PaymentResponse{TransactionID: "MP-eps", Status: provider.StatusPending}, nil)
		store.payments.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)
		store.audit.On("Record", ctx, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)

		in := validInput
		in.Amount = 150_000.005
		_, err := svc.InitiatePayment(ctx, tenant, in)
		assert.NoError(t, err)
	})

	t.Run("TenantCannotPayOthersContract", func(t *testing.T) {
		store := newFakeTxStore()
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, &fakeTransactor{store: store}, providerClient)

		other := activeContract()
		other.TenantID = 777
		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).Return(nil, repository.ErrNotFound)
		store.contracts.On("GetByID", ctx, int64(10)).Return(other, nil)

		_, err := svc.InitiatePayment(ctx, tenant, validInput)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("ProviderRejected", func(t *testing.T) {
		store := newFakeTxStore()
		txn := &fakeTransactor{store: store}
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, txn, providerClient)

		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).Return(nil, repository.ErrNotFound)
		store.contracts.On("GetByID", ctx, int64(10)).Return(activeContract(), nil)
		providerClient.On("RequestPayment", ctx, mock.AnythingOfType("provider.PaymentRequest")).
			Return(&provider.PaymentResponse{Status: provider.StatusFailed, Message: "subscriber cannot be reached"}, nil)

		_, err := svc.InitiatePayment(ctx, tenant, validInput)
		assert.ErrorIs(t, err, ErrProviderRejected)
		// rejection happens before any row is written
		store.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("DuplicateKeyRaceFallsBackToWinner", func(t *testing.T) {
		store := newFakeTxStore()
		txn := &fakeTransactor{store: store}
		providerClient := new(MockProviderClient)
		svc := NewPaymentService(store, txn, providerClient)

		winner := &domain.Payment{
			ID:            "pay-winner",
			TransactionID: "MP-winner",
			Status:        domain.PaymentStatusPending,
			InitiatedByID: tenant.ID,
		}
		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).
			Return(nil, repository.ErrNotFound).Once()
		store.contracts.On("GetByID", ctx, int64(10)).Return(activeContract(), nil)
		providerClient.On("RequestPayment", ctx, mock.AnythingOfType("provider.PaymentRequest")).
			Return(&provider.PaymentResponse{TransactionID: "MP-loser", Status: provider.StatusPending}, nil)
		store.payments.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).
			Return(repository.ErrDuplicateKey)
		store.payments.On("GetByIdempotencyKey", ctx, validInput.IdempotencyKey).
			Return(winner, nil).Once()

		result, err := svc.InitiatePayment(ctx, tenant, validInput)
		require.NoError(t, err)
		assert.True(t, result.Idempotent)
		assert.Equal(t, "pay-winner", result.PaymentID)
		assert.Equal(t, "MP-winner", result.TransactionID)
	})

	t.Run("Validation", func(t *testing.T) {
		store := newFakeTxStore()
		svc := NewPaymentService(store, &fakeTransactor{store: store}, new(MockProviderClient))

		cases := []struct {
			name   string
			mutate func(*PaymentInitiationInput)
		}{
			{"ShortIdempotencyKey", func(in *PaymentInitiationInput) { in.IdempotencyKey = "short" }},
			{"IdempotencyKeyBadChars", func(in *PaymentInitiationInput) { in.IdempotencyKey = "has spaces in it!" }},
			{"MissingContract", func(in *PaymentInitiationInput) { in.ContractID = 0 }},
			{"ZeroAmount", func(in *PaymentInitiationInput) { in.Amount = 0 }},
			{"MissingPhone", func(in *PaymentInitiationInput) { in.PhoneNumber = " " }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				in := validInput
				tc.mutate(&in)
				_, err := svc.InitiatePayment(ctx, tenant, in)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			})
		}
	})
}

func TestGetPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		store := newFakeTxStore()
		svc := NewPaymentService(store, &fakeTransactor{store: store}, new(MockProviderClient))

		payment := &domain.Payment{ID: "pay-1", Status: domain.PaymentStatusCompleted}
		store.payments.On("GetByID", ctx, "pay-1").Return(payment, nil)

		got, err := svc.GetPayment(ctx, "pay-1")
		require.NoError(t, err)
		assert.Equal(t, payment, got)
	})

	t.Run("NotFound", func(t *testing.T) {
		store := newFakeTxStore()
		svc := NewPaymentService(store, &fakeTransactor{store: store}, new(MockProviderClient))

		store.payments.On("GetByID", ctx, "missing").Return(nil, repository.ErrNotFound)

		_, err := svc.GetPayment(ctx, "missing")
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()

	t.Run("ExpiresPendingPayments", func(t *testing.T) {
		store := newFakeTxStore()
		txn := &fakeTransactor{store: store}
		svc := NewPaymentService(store, txn, new(MockProviderClient))

		stale := domain.Payment{
			ID:            "pay-1",
			TransactionID: "MP-stale",
			Status:        domain.PaymentStatusPending,
			CreatedAt:     time.Now().Add(-2 * time.Hour),
		}
		store.payments.On("ListStalePending", ctx, mock.AnythingOfType("time.Time")).
			Return([]domain.Payment{stale}, nil)
		fresh := stale
		store.payments.On("GetByTransactionID", ctx, "MP-stale").Return(&fresh, nil)
		store.payments.On("Settle", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)
		store.audit.On("Record", ctx, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)

		expired, err := svc.ExpireStale(ctx, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, expired)
		assert.Equal(t, []string{"payment:MP-stale"}, txn.lockKeys)

		settled := store.payments.Calls[2].Arguments.Get(1).(*domain.Payment)
		assert.Equal(t, domain.PaymentStatusFailed, settled.Status)
		assert.Equal(t, "provider callback timeout", settled.FailureReason)
	})

	t.Run("CommitConflictRetryCountsOnce", func(t *testing.T) {
		store := newFakeTxStore()
		// First attempt runs fully but fails at commit; the retry succeeds.
		// The expired count must reflect the one committed sweep.
		txn := &fakeTransactor{store: store, commitFailures: 1}
		svc := NewPaymentService(store, txn, new(MockProviderClient))

		stale := domain.Payment{
			ID:            "pay-1",
			TransactionID: "MP-stale",
			Status:        domain.PaymentStatusPending,
			CreatedAt:     time.Now().Add(-2 * time.Hour),
		}
		store.payments.On("ListStalePending", ctx, mock.AnythingOfType("time.Time")).
			Return([]domain.Payment{stale}, nil)
		// Fresh row per attempt: the rolled-back first attempt leaves the
		// database unchanged, so the retry reads PENDING again.
		store.payments.On("GetByTransactionID", ctx, "MP-stale").
			Return(&domain.Payment{ID: "pay-1", TransactionID: "MP-stale", Status: domain.PaymentStatusPending}, nil).Once()
		store.payments.On("GetByTransactionID", ctx, "MP-stale").
			Return(&domain.Payment{ID: "pay-1", TransactionID: "MP-stale", Status: domain.PaymentStatusPending}, nil).Once()
		store.payments.On("Settle", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)
		store.audit.On("Record", ctx, mock.AnythingOfType("*domain.AuditEntry")).Return(nil)

		expired, err := svc.ExpireStale(ctx, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, expired)
		assert.Len(t, txn.lockKeys, 2)
	})

	t.Run("SkipsPaymentSettledBetweenListAndLock", func(t *testing.T) {
		store := newFakeTxStore()
		txn := &fakeTransactor{store: store}
		svc := NewPaymentService(store, txn, new(MockProviderClient))

		stale := domain.Payment{ID: "pay-1", TransactionID: "MP-late", Status: domain.PaymentStatusPending}
		store.payments.On("ListStalePending", ctx, mock.AnythingOfType("time.Time")).
			Return([]domain.Payment{stale}, nil)
		settled := stale
		settled.Status = domain.PaymentStatusCompleted
		store.payments.On("GetByTransactionID", ctx, "MP-late").Return(&settled, nil)

		expired, err := svc.ExpireStale(ctx, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 0, expired)
		store.payments.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
	})
}
