package domain

type NotificationType string

const (
	NotificationTypePaymentReceived   NotificationType = "PAYMENT_RECEIVED"
	NotificationTypeWithdrawalUpdated NotificationType = "WITHDRAWAL_UPDATED"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt string           `json:"created_at"`
}
