package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/repository"
)

type webhookService struct {
	txn repository.Transactor
}

func NewWebhookService(txn repository.Transactor) WebhookService {
	return &webhookService{txn: txn}
}

func providerReportedSuccess(status string) bool {
	switch strings.ToUpper(status) {
	case "SUCCESSFUL", "SUCCESS", "COMPLETED":
		return true
	}
	return false
}

// receiptNumber derives RCP-<yyyymmdd>-<last6ofId> from the payment id.
func receiptNumber(paymentID string, at time.Time) string {
	compact := strings.ReplaceAll(paymentID, "-", "")
	if len(compact) > 6 {
		compact = compact[len(compact)-6:]
	}
	return fmt.Sprintf("RCP-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(compact))
}

func (s *webhookService) ProcessCallback(ctx context.Context, payload WebhookPayload) (*WebhookResult, error) {
	logger.EnterMethod("webhookService.ProcessCallback", "transactionID", payload.TransactionID, "providerStatus", payload.Status)

	if strings.TrimSpace(payload.TransactionID) == "" {
		return nil, invalid("transaction_id", "is required")
	}
	if strings.TrimSpace(payload.Status) == "" {
		return nil, invalid("status", "is required")
	}

	// Settlement, audit entries and the owner notification commit
	// atomically; the webhook may be redelivered any number of times with
	// no side effect after the first successful processing.
	lockKey := fmt.Sprintf("payment:%s", payload.TransactionID)

	var result *WebhookResult
	err := runWithRetry(ctx, s.txn, lockKey, func(r repository.TxStore) error {
		payment, err := r.Payments().GetByTransactionID(ctx, payload.TransactionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		if payment.Status.Terminal() {
			result = &WebhookResult{
				Status:        "already_processed",
				PaymentID:     payment.ID,
				PaymentStatus: payment.Status,
				ReceiptNumber: payment.ReceiptNumber,
			}
			return nil
		}

		mismatch := s.secureMatchFailure(payload, payment)
		success := providerReportedSuccess(payload.Status) && mismatch == ""

		if success {
			payment.Status = domain.PaymentStatusCompleted
			if payment.ReceiptNumber == "" {
				payment.ReceiptNumber = receiptNumber(payment.ID, time.Now())
			}
		} else {
			payment.Status = domain.PaymentStatusFailed
			if mismatch != "" {
				payment.FailureReason = mismatch
			} else if payload.Message != "" {
				payment.FailureReason = payload.Message
			} else {
				payment.FailureReason = fmt.Sprintf("provider status %s", payload.Status)
			}
		}

		notifyOwner := success && payment.InitiatedByRole == string(domain.RoleTenant)
		var ownerID int64
		if notifyOwner {
			contract, err := r.Contracts().GetByID(ctx, payment.ContractID)
			if err != nil {
				return err
			}
			ownerID = contract.OwnerID
			now := time.Now()
			payment.OwnerNotifiedAt = &now
		}

		if err := r.Payments().Settle(ctx, payment); err != nil {
			return err
		}

		auditAction := domain.AuditPaymentCompleted
		detail := fmt.Sprintf("transaction=%s receipt=%s", payment.TransactionID, payment.ReceiptNumber)
		if !success {
			auditAction = domain.AuditPaymentFailed
			detail = fmt.Sprintf("transaction=%s reason=%s", payment.TransactionID, payment.FailureReason)
			if mismatch != "" && providerReportedSuccess(payload.Status) {
				// Provider said success but the payload failed the
				// secure-match check; never silently accepted.
				auditAction = domain.AuditWebhookValidationFailed
			}
		}
		if err := r.Audit().Record(ctx, &domain.AuditEntry{
			Action:     auditAction,
			TargetType: string(domain.TargetTypePayment),
			TargetID:   payment.ID,
			Detail:     detail,
		}); err != nil {
			return err
		}

		if notifyOwner {
			note := &domain.Notification{
				UserID:  ownerID,
				Type:    domain.NotificationTypePaymentReceived,
				Title:   "Rent payment received",
				Message: fmt.Sprintf("Payment of %.2f received, receipt %s", payment.Amount, payment.ReceiptNumber),
			}
			if err := r.Notifications().Create(ctx, note); err != nil {
				return err
			}
			if err := r.Audit().Record(ctx, &domain.AuditEntry{
				Action:     domain.AuditOwnerNotified,
				TargetType: string(domain.TargetTypePayment),
				TargetID:   payment.ID,
				Detail:     fmt.Sprintf("owner=%d", ownerID),
			}); err != nil {
				return err
			}
		}

		result = &WebhookResult{
			Status:        "processed",
			PaymentID:     payment.ID,
			PaymentStatus: payment.Status,
			ReceiptNumber: payment.ReceiptNumber,
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("webhookService.ProcessCallback", err, "transactionID", payload.TransactionID)
		return nil, err
	}

	logger.ExitMethod("webhookService.ProcessCallback", "paymentID", result.PaymentID, "paymentStatus", result.PaymentStatus)
	return result, nil
}

// secureMatchFailure checks the payload's amount and contract against the
// stored payment. Empty return means the payload matches.
func (s *webhookService) secureMatchFailure(payload WebhookPayload, payment *domain.Payment) string {
	if payload.Amount != nil {
		if diff := *payload.Amount - payment.Amount; diff > amountEpsilon || diff < -amountEpsilon {
			return fmt.Sprintf("amount mismatch: webhook %.2f, payment %.2f", *payload.Amount, payment.Amount)
		}
	}
	if payload.ContractID != nil && *payload.ContractID != payment.ContractID {
		return fmt.Sprintf("contract mismatch: webhook %d, payment %d", *payload.ContractID, payment.ContractID)
	}
	return ""
}
