package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Terminal reports whether the payment can no longer change status.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Payment is a conventional durable row, not event-sourced. IdempotencyKey
// and TransactionID are unique; TransactionID is the join key used by the
// provider webhook.
type Payment struct {
	ID              string        `json:"id"`
	Amount          float64       `json:"amount"`
	Method          string        `json:"method"`
	TransactionID   string        `json:"transaction_id"`
	IdempotencyKey  string        `json:"-"`
	Status          PaymentStatus `json:"status"`
	ContractID      int64         `json:"contract_id"`
	TenantID        *int64        `json:"tenant_id,omitempty"`
	PropertyID      int64         `json:"property_id"`
	InitiatedByID   int64         `json:"initiated_by_id"`
	InitiatedByRole string        `json:"initiated_by_role"`
	ReceiptNumber   string        `json:"receipt_number,omitempty"`
	FailureReason   string        `json:"failure_reason,omitempty"`
	OwnerNotifiedAt *time.Time    `json:"owner_notified_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
