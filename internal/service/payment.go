package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/provider"
	"rentfolio-backend/internal/repository"
)

// amountEpsilon tolerates floating-point representation when matching a
// payment against the contract rent. It is not an underpayment allowance.
const amountEpsilon = 0.01

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{12,128}$`)

type paymentService struct {
	store    repository.TxStore
	txn      repository.Transactor
	provider provider.Client
}

func NewPaymentService(store repository.TxStore, txn repository.Transactor, providerClient provider.Client) PaymentService {
	return &paymentService{store: store, txn: txn, provider: providerClient}
}

func (s *paymentService) validateInitiation(in PaymentInitiationInput) error {
	if !idempotencyKeyPattern.MatchString(in.IdempotencyKey) {
		return invalid("idempotency_key", "must be 12-128 characters of A-Z, a-z, 0-9, '-' or '_'")
	}
	if in.ContractID <= 0 {
		return invalid("contract_id", "is required")
	}
	if in.Amount <= 0 {
		return invalid("amount", "must be positive")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return invalid("phone_number", "is required")
	}
	return nil
}

func (s *paymentService) InitiatePayment(ctx context.Context, actor domain.Actor, in PaymentInitiationInput) (*PaymentInitiationResult, error) {
	logger.EnterMethod("paymentService.InitiatePayment", "actorID", actor.ID, "contractID", in.ContractID)

	if err := s.validateInitiation(in); err != nil {
		logger.ExitMethodWithError("paymentService.InitiatePayment", err, "actorID", actor.ID)
		return nil, err
	}

	// A retried client request with the same key resolves to the existing
	// row; a different caller must not be able to replay it.
	existing, err := s.store.Payments().GetByIdempotencyKey(ctx, in.IdempotencyKey)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.InitiatedByID != actor.ID {
			return nil, ErrIdempotencyKeyConflict
		}
		logger.ExitMethod("paymentService.InitiatePayment", "paymentID", existing.ID, "idempotent", true)
		return &PaymentInitiationResult{
			PaymentID:     existing.ID,
			TransactionID: existing.TransactionID,
			Status:        existing.Status,
			Idempotent:    true,
		}, nil
	}

	contract, err := s.store.Contracts().GetByID(ctx, in.ContractID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}
	if contract.Status != domain.ContractStatusActive {
		return nil, ErrContractNotActive
	}
	if diff := in.Amount - contract.RentAmount; diff > amountEpsilon || diff < -amountEpsilon {
		return nil, ErrAmountMismatch
	}
	if actor.Role == domain.RoleTenant && contract.TenantID != actor.ID {
		return nil, ErrForbidden
	}

	providerResp, err := s.provider.RequestPayment(ctx, provider.PaymentRequest{
		Amount:      in.Amount,
		PhoneNumber: in.PhoneNumber,
		Provider:    in.Provider,
		ContractID:  in.ContractID,
	})
	if err != nil {
		return nil, fmt.Errorf("payment provider: %w", err)
	}
	if providerResp.Status == provider.StatusFailed {
		logger.Warn("Provider rejected payment initiation", "contractID", in.ContractID, "message", providerResp.Message)
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, providerResp.Message)
	}

	actorID := actor.ID
	tenantID := contract.TenantID
	payment := &domain.Payment{
		ID:              uuid.NewString(),
		Amount:          in.Amount,
		Method:          in.Provider,
		TransactionID:   providerResp.TransactionID,
		IdempotencyKey:  in.IdempotencyKey,
		Status:          domain.PaymentStatusPending,
		ContractID:      contract.ID,
		TenantID:        &tenantID,
		PropertyID:      contract.PropertyID,
		InitiatedByID:   actor.ID,
		InitiatedByRole: string(actor.Role),
	}

	err = s.txn.RunSerializable(ctx, "", func(r repository.TxStore) error {
		if err := r.Payments().Create(ctx, payment); err != nil {
			return err
		}
		return r.Audit().Record(ctx, &domain.AuditEntry{
			ActorID:    &actorID,
			ActorEmail: actor.Email,
			Action:     domain.AuditPaymentInitiated,
			TargetType: string(domain.TargetTypePayment),
			TargetID:   payment.ID,
			Detail:     fmt.Sprintf("contract=%d amount=%.2f transaction=%s", contract.ID, in.Amount, payment.TransactionID),
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Two identical requests raced; the provider call above was
			// for a short-lived token and is safe to discard. Hand back
			// the row that won.
			winner, lookupErr := s.store.Payments().GetByIdempotencyKey(ctx, in.IdempotencyKey)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if winner.InitiatedByID != actor.ID {
				return nil, ErrIdempotencyKeyConflict
			}
			logger.ExitMethod("paymentService.InitiatePayment", "paymentID", winner.ID, "idempotent", true)
			return &PaymentInitiationResult{
				PaymentID:     winner.ID,
				TransactionID: winner.TransactionID,
				Status:        winner.Status,
				Idempotent:    true,
			}, nil
		}
		logger.ExitMethodWithError("paymentService.InitiatePayment", err, "contractID", in.ContractID)
		return nil, err
	}

	logger.ExitMethod("paymentService.InitiatePayment", "paymentID", payment.ID, "transactionID", payment.TransactionID)
	return &PaymentInitiationResult{
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
		Status:        payment.Status,
		Idempotent:    false,
	}, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	payment, err := s.store.Payments().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// ExpireStale fails PENDING payments whose provider never called back.
// Each payment settles under the same transaction lock the webhook uses,
// so a sweep cannot race a late callback.
func (s *paymentService) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	stale, err := s.store.Payments().ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var expired int
	for i := range stale {
		transactionID := stale[i].TransactionID
		lockKey := fmt.Sprintf("payment:%s", transactionID)
		// The count only moves once the transaction commits; a retried
		// attempt resets the flag so a commit-time conflict is not counted.
		var swept bool
		err := runWithRetry(ctx, s.txn, lockKey, func(r repository.TxStore) error {
			swept = false
			payment, err := r.Payments().GetByTransactionID(ctx, transactionID)
			if err != nil {
				return err
			}
			if payment.Status.Terminal() {
				// A callback landed between the list and the lock.
				return nil
			}
			payment.Status = domain.PaymentStatusFailed
			payment.FailureReason = "provider callback timeout"
			if err := r.Payments().Settle(ctx, payment); err != nil {
				return err
			}
			swept = true
			return r.Audit().Record(ctx, &domain.AuditEntry{
				Action:     domain.AuditPaymentExpired,
				TargetType: string(domain.TargetTypePayment),
				TargetID:   payment.ID,
				Detail:     fmt.Sprintf("pending since %s", payment.CreatedAt.UTC().Format(time.RFC3339)),
			})
		})
		if err != nil {
			logger.Error("Failed to expire stale payment", "transactionID", transactionID, "error", err)
			continue
		}
		if swept {
			expired++
		}
	}
	return expired, nil
}
