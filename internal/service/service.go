package service

import (
	"context"
	"time"

	"rentfolio-backend/internal/domain"
)

type WithdrawalRequestInput struct {
	Amount        float64                 `json:"amount"`
	Method        domain.WithdrawalMethod `json:"method"`
	AccountLabel  string                  `json:"account_label"`
	AccountNumber string                  `json:"account_number"`
	Note          string                  `json:"note,omitempty"`
}

type WithdrawalRequestResult struct {
	ID                    string                  `json:"id"`
	Status                domain.WithdrawalStatus `json:"status"`
	AvailableBalanceAfter float64                 `json:"available_balance_after"`
}

type WithdrawalService interface {
	RequestWithdrawal(ctx context.Context, actor domain.Actor, in WithdrawalRequestInput, meta domain.RequestMeta) (*WithdrawalRequestResult, error)
	TransitionWithdrawal(ctx context.Context, reviewer domain.Actor, withdrawalID string, next domain.WithdrawalStatus, note string, meta domain.RequestMeta) (domain.WithdrawalStatus, error)
	GetBalance(ctx context.Context, actor domain.Actor) (*domain.Balance, error)
	ListWithdrawals(ctx context.Context, actor domain.Actor) ([]domain.WithdrawalRecord, error)
}

type PaymentInitiationInput struct {
	ContractID     int64   `json:"contract_id"`
	Amount         float64 `json:"amount"`
	PhoneNumber    string  `json:"phone_number"`
	Provider       string  `json:"provider"`
	IdempotencyKey string  `json:"-"`
}

type PaymentInitiationResult struct {
	PaymentID     string               `json:"payment_id"`
	TransactionID string               `json:"transaction_id"`
	Status        domain.PaymentStatus `json:"status"`
	Idempotent    bool                 `json:"idempotent"`
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, actor domain.Actor, in PaymentInitiationInput) (*PaymentInitiationResult, error)
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	// ExpireStale fails PENDING payments older than ttl whose provider
	// never called back. Returns the number of payments expired.
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// WebhookPayload is the schema-validated provider callback body.
type WebhookPayload struct {
	TransactionID string   `json:"transaction_id"`
	Status        string   `json:"status"`
	Amount        *float64 `json:"amount,omitempty"`
	ContractID    *int64   `json:"contract_id,omitempty"`
	Message       string   `json:"message,omitempty"`
}

type WebhookResult struct {
	Status        string               `json:"status"`
	PaymentID     string               `json:"payment_id"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	ReceiptNumber string               `json:"receipt_number,omitempty"`
}

type WebhookService interface {
	// ProcessCallback settles a payment exactly once. Redeliveries of an
	// already-settled transaction return the stored status unchanged with
	// no new side effects. Signature verification happens at the HTTP
	// boundary over the raw body, before parsing.
	ProcessCallback(ctx context.Context, payload WebhookPayload) (*WebhookResult, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int64, page, pageSize int64) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
}
