package domain

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusRequested WithdrawalStatus = "REQUESTED"
	WithdrawalStatusApproved  WithdrawalStatus = "APPROVED"
	WithdrawalStatusPaid      WithdrawalStatus = "PAID"
	WithdrawalStatusRejected  WithdrawalStatus = "REJECTED"
)

type WithdrawalMethod string

const (
	WithdrawalMethodMomo    WithdrawalMethod = "MOMO"
	WithdrawalMethodBank    WithdrawalMethod = "BANK"
	WithdrawalMethodCashout WithdrawalMethod = "CASHOUT"
)

// legalTransitions is the full transition table. PAID and REJECTED are
// terminal: they have no outgoing edges.
var legalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusRequested: {WithdrawalStatusApproved, WithdrawalStatusRejected},
	WithdrawalStatusApproved:  {WithdrawalStatusPaid, WithdrawalStatusRejected},
}

// CanTransition reports whether from -> to is a legal status advance.
func CanTransition(from, to WithdrawalStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusRequested, WithdrawalStatusApproved, WithdrawalStatusPaid, WithdrawalStatusRejected:
		return true
	}
	return false
}

func (m WithdrawalMethod) Valid() bool {
	switch m {
	case WithdrawalMethodMomo, WithdrawalMethodBank, WithdrawalMethodCashout:
		return true
	}
	return false
}

// WithdrawalSnapshot is the typed payload carried inside each withdrawal
// event. AvailableBefore/After are informational audit values captured at
// request time; they are never re-derived on read.
type WithdrawalSnapshot struct {
	Status          WithdrawalStatus `json:"status"`
	Amount          float64          `json:"amount"`
	Method          WithdrawalMethod `json:"method"`
	AccountLabel    string           `json:"account_label"`
	AccountNumber   string           `json:"account_number"` // masked, last 4 retained
	Note            string           `json:"note,omitempty"`
	AvailableBefore float64          `json:"available_before"`
	AvailableAfter  float64          `json:"available_after"`
	IP              string           `json:"ip,omitempty"`
	UserAgent       string           `json:"user_agent,omitempty"`
}

// WithdrawalRecord is the projected current state of one withdrawal. It is
// derived from the event log on every read and never persisted on its own.
type WithdrawalRecord struct {
	ID            string           `json:"id"`
	ActorID       *int64           `json:"actor_id,omitempty"`
	ActorEmail    string           `json:"actor_email,omitempty"`
	Status        WithdrawalStatus `json:"status"`
	Amount        float64          `json:"amount"`
	Method        WithdrawalMethod `json:"method"`
	AccountLabel  string           `json:"account_label"`
	AccountNumber string           `json:"account_number"`
	Note          string           `json:"note,omitempty"`
	RequestedAt   time.Time        `json:"requested_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Reserved reports whether the record's amount counts against available
// balance (non-terminal-but-not-rejected).
func (r *WithdrawalRecord) Reserved() bool {
	switch r.Status {
	case WithdrawalStatusRequested, WithdrawalStatusApproved, WithdrawalStatusPaid:
		return true
	}
	return false
}

// Balance is the computed spendable position for one actor scope. It is
// never stored.
type Balance struct {
	TotalRevenue float64 `json:"total_revenue"`
	Reserved     float64 `json:"reserved"`
	Paid         float64 `json:"paid"`
	Available    float64 `json:"available"`
}
