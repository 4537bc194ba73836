package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentfolio-backend/internal/config"
	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/ledger"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/repository"
)

// maxTxAttempts bounds the retry loop around serializable transactions.
// Only store-detected serialization conflicts are retried; business-rule
// rejections come back on the first attempt.
const maxTxAttempts = 3

type withdrawalService struct {
	store repository.TxStore
	txn   repository.Transactor
	cfg   config.WithdrawalConfig
}

func NewWithdrawalService(store repository.TxStore, txn repository.Transactor, cfg config.WithdrawalConfig) WithdrawalService {
	return &withdrawalService{store: store, txn: txn, cfg: cfg}
}

// runWithRetry executes fn in a serializable transaction under lockKey,
// retrying the whole attempt on serialization conflicts up to the bound.
func runWithRetry(ctx context.Context, txn repository.Transactor, lockKey string, fn func(repository.TxStore) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = txn.RunSerializable(ctx, lockKey, fn)
		if err == nil || !errors.Is(err, repository.ErrSerializationConflict) {
			return err
		}
		logger.Warn("Serialization conflict, retrying transaction", "lockKey", lockKey, "attempt", attempt)
	}
	logger.Error("Transaction retries exhausted", "lockKey", lockKey, "attempts", maxTxAttempts)
	return ErrConflict
}

// revenueScope returns the owner filter for completed-payment revenue:
// managers see their own properties, admins see the whole platform.
func revenueScope(actor domain.Actor) *int64 {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	id := actor.ID
	return &id
}

// ownRecords narrows projected withdrawals to those requested by actorID.
func ownRecords(records []domain.WithdrawalRecord, actorID int64) []domain.WithdrawalRecord {
	own := make([]domain.WithdrawalRecord, 0, len(records))
	for _, rec := range records {
		if rec.ActorID != nil && *rec.ActorID == actorID {
			own = append(own, rec)
		}
	}
	return own
}

// maskAccountNumber retains the last 4 characters and replaces the rest
// with '*' before anything reaches storage.
func maskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func (s *withdrawalService) validateRequest(actor domain.Actor, in WithdrawalRequestInput) error {
	if !actor.CanWithdraw() {
		return ErrForbidden
	}
	if in.Amount <= 0 {
		return invalid("amount", "must be positive")
	}
	if in.Amount > s.cfg.MaxPerRequest {
		return invalid("amount", fmt.Sprintf("exceeds per-request ceiling of %.0f", s.cfg.MaxPerRequest))
	}
	if !in.Method.Valid() {
		return invalid("method", "must be one of MOMO, BANK, CASHOUT")
	}
	if strings.TrimSpace(in.AccountLabel) == "" {
		return invalid("account_label", "is required")
	}
	if strings.TrimSpace(in.AccountNumber) == "" {
		return invalid("account_number", "is required")
	}
	return nil
}

func (s *withdrawalService) RequestWithdrawal(ctx context.Context, actor domain.Actor, in WithdrawalRequestInput, meta domain.RequestMeta) (*WithdrawalRequestResult, error) {
	logger.EnterMethod("withdrawalService.RequestWithdrawal", "actorID", actor.ID, "amount", in.Amount)

	if err := s.validateRequest(actor, in); err != nil {
		logger.ExitMethodWithError("withdrawalService.RequestWithdrawal", err, "actorID", actor.ID)
		return nil, err
	}

	withdrawalID := uuid.NewString()
	scope := revenueScope(actor)
	lockKey := fmt.Sprintf("withdraw:%d", actor.ID)

	var result *WithdrawalRequestResult
	err := runWithRetry(ctx, s.txn, lockKey, func(r repository.TxStore) error {
		// Both reads happen after the advisory lock is held, so no
		// concurrent request from the same actor can slip a stale
		// balance past the check.
		revenue, err := r.Payments().SumCompleted(ctx, scope)
		if err != nil {
			return err
		}
		events, err := r.Events().ListWithdrawals(ctx, scope)
		if err != nil {
			return err
		}
		records := ledger.ProjectWithdrawals(events)
		reserved := ledger.SumReserved(records)
		available := ledger.AvailableBalance(revenue, reserved)

		if in.Amount > available {
			return ErrInsufficientBalance
		}

		// Daily ceilings are per requesting actor. Admin balance reads span
		// the whole platform, but other actors' same-day requests must not
		// consume the admin's own quota.
		own := ownRecords(records, actor.ID)
		dayStart := ledger.DayStart(time.Now())
		if ledger.CountDailyRequested(own, dayStart) >= s.cfg.MaxDailyCount {
			return ErrDailyCountLimit
		}
		if ledger.SumDailyRequested(own, dayStart)+in.Amount > s.cfg.MaxDailyAmount {
			return ErrDailyAmountLimit
		}

		snapshot := domain.WithdrawalSnapshot{
			Status:          domain.WithdrawalStatusRequested,
			Amount:          in.Amount,
			Method:          in.Method,
			AccountLabel:    in.AccountLabel,
			AccountNumber:   maskAccountNumber(in.AccountNumber),
			Note:            in.Note,
			AvailableBefore: available,
			AvailableAfter:  available - in.Amount,
			IP:              meta.IP,
			UserAgent:       meta.UserAgent,
		}
		details, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}

		actorID := actor.ID
		event := &domain.Event{
			ActorID:    &actorID,
			ActorEmail: actor.Email,
			ActorRole:  string(actor.Role),
			Action:     domain.ActionWithdrawalRequested,
			TargetType: domain.TargetTypeWithdrawal,
			TargetID:   withdrawalID,
			Details:    details,
		}
		if err := r.Events().Append(ctx, event); err != nil {
			return err
		}

		audit := &domain.AuditEntry{
			ActorID:    &actorID,
			ActorEmail: actor.Email,
			Action:     domain.AuditWithdrawalRequested,
			TargetType: string(domain.TargetTypeWithdrawal),
			TargetID:   withdrawalID,
			Detail:     fmt.Sprintf("amount=%.2f method=%s available_before=%.2f", in.Amount, in.Method, available),
		}
		if err := r.Audit().Record(ctx, audit); err != nil {
			return err
		}

		result = &WithdrawalRequestResult{
			ID:                    withdrawalID,
			Status:                domain.WithdrawalStatusRequested,
			AvailableBalanceAfter: available - in.Amount,
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("withdrawalService.RequestWithdrawal", err, "actorID", actor.ID)
		return nil, err
	}

	logger.ExitMethod("withdrawalService.RequestWithdrawal", "withdrawalID", result.ID, "availableAfter", result.AvailableBalanceAfter)
	return result, nil
}

func (s *withdrawalService) TransitionWithdrawal(ctx context.Context, reviewer domain.Actor, withdrawalID string, next domain.WithdrawalStatus, note string, meta domain.RequestMeta) (domain.WithdrawalStatus, error) {
	logger.EnterMethod("withdrawalService.TransitionWithdrawal", "reviewerID", reviewer.ID, "withdrawalID", withdrawalID, "next", next)

	if !reviewer.Elevated() {
		return "", ErrForbidden
	}
	if next != domain.WithdrawalStatusApproved && next != domain.WithdrawalStatusPaid && next != domain.WithdrawalStatusRejected {
		return "", invalid("status", "must be one of APPROVED, PAID, REJECTED")
	}
	if withdrawalID == "" {
		return "", invalid("withdrawal_id", "is required")
	}

	// The lock is scoped to the withdrawal, not the reviewer: different
	// withdrawals may be reviewed concurrently, the same one must not.
	lockKey := fmt.Sprintf("withdraw:status:%s", withdrawalID)

	err := runWithRetry(ctx, s.txn, lockKey, func(r repository.TxStore) error {
		events, err := r.Events().ListByTarget(ctx, domain.TargetTypeWithdrawal, withdrawalID)
		if err != nil {
			return err
		}
		record := ledger.ProjectOne(events)
		if record == nil {
			return ErrWithdrawalNotFound
		}
		if !domain.CanTransition(record.Status, next) {
			return ErrInvalidTransition
		}

		// Amount, method and account fields are carried forward from the
		// projected record, never re-entered by the reviewer.
		snapshot := domain.WithdrawalSnapshot{
			Status:        next,
			Amount:        record.Amount,
			Method:        record.Method,
			AccountLabel:  record.AccountLabel,
			AccountNumber: record.AccountNumber,
			Note:          note,
			IP:            meta.IP,
			UserAgent:     meta.UserAgent,
		}
		details, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}

		reviewerID := reviewer.ID
		event := &domain.Event{
			ActorID:    &reviewerID,
			ActorEmail: reviewer.Email,
			ActorRole:  string(reviewer.Role),
			Action:     domain.ActionWithdrawalTransition,
			TargetType: domain.TargetTypeWithdrawal,
			TargetID:   withdrawalID,
			Details:    details,
		}
		if err := r.Events().Append(ctx, event); err != nil {
			return err
		}

		audit := &domain.AuditEntry{
			ActorID:    &reviewerID,
			ActorEmail: reviewer.Email,
			Action:     domain.AuditWithdrawalTransition,
			TargetType: string(domain.TargetTypeWithdrawal),
			TargetID:   withdrawalID,
			Detail:     fmt.Sprintf("%s -> %s", record.Status, next),
		}
		if err := r.Audit().Record(ctx, audit); err != nil {
			return err
		}

		// The requester learns about the review in the same commit as the
		// transition itself.
		if record.ActorID != nil {
			notification := &domain.Notification{
				UserID:  *record.ActorID,
				Type:    domain.NotificationTypeWithdrawalUpdated,
				Title:   "Withdrawal update",
				Message: fmt.Sprintf("Your withdrawal of %.2f is now %s", record.Amount, next),
			}
			if err := r.Notifications().Create(ctx, notification); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("withdrawalService.TransitionWithdrawal", err, "withdrawalID", withdrawalID)
		return "", err
	}

	logger.ExitMethod("withdrawalService.TransitionWithdrawal", "withdrawalID", withdrawalID, "status", next)
	return next, nil
}

func (s *withdrawalService) GetBalance(ctx context.Context, actor domain.Actor) (*domain.Balance, error) {
	if !actor.CanWithdraw() {
		return nil, ErrForbidden
	}
	scope := revenueScope(actor)

	revenue, err := s.store.Payments().SumCompleted(ctx, scope)
	if err != nil {
		return nil, err
	}
	events, err := s.store.Events().ListWithdrawals(ctx, scope)
	if err != nil {
		return nil, err
	}
	records := ledger.ProjectWithdrawals(events)
	reserved := ledger.SumReserved(records)

	return &domain.Balance{
		TotalRevenue: revenue,
		Reserved:     reserved,
		Paid:         ledger.SumPaid(records),
		Available:    ledger.AvailableBalance(revenue, reserved),
	}, nil
}

func (s *withdrawalService) ListWithdrawals(ctx context.Context, actor domain.Actor) ([]domain.WithdrawalRecord, error) {
	if !actor.CanWithdraw() {
		return nil, ErrForbidden
	}
	events, err := s.store.Events().ListWithdrawals(ctx, revenueScope(actor))
	if err != nil {
		return nil, err
	}
	return ledger.ProjectWithdrawals(events), nil
}
