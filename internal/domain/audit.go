package domain

import "time"

// Audit actions written alongside monetary state transitions.
const (
	AuditPaymentInitiated        = "PAYMENT_INITIATED"
	AuditPaymentCompleted        = "PAYMENT_COMPLETED"
	AuditPaymentFailed           = "PAYMENT_FAILED"
	AuditPaymentExpired          = "PAYMENT_EXPIRED"
	AuditWebhookValidationFailed = "PAYMENT_WEBHOOK_VALIDATION_FAILED"
	AuditOwnerNotified           = "PAYMENT_OWNER_NOTIFIED"
	AuditWithdrawalRequested     = "WITHDRAWAL_REQUESTED"
	AuditWithdrawalTransition    = "WITHDRAWAL_STATUS_CHANGED"
)

// AuditEntry is a compliance record of one state transition. It is written
// in the same transaction as the transition it describes but is never read
// back into balance projection.
type AuditEntry struct {
	ID         int64     `json:"id"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	ActorEmail string    `json:"actor_email,omitempty"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
