package domain

import "time"

type TargetType string

const (
	TargetTypeWithdrawal TargetType = "WITHDRAWAL"
	TargetTypePayment    TargetType = "PAYMENT"
	TargetTypeContract   TargetType = "CONTRACT"
)

// Event is one immutable row in the append-only event log. Events are
// never updated or deleted; a withdrawal's history is the ordered set of
// events sharing its TargetID.
type Event struct {
	ID         int64      `json:"id"`
	ActorID    *int64     `json:"actor_id,omitempty"`
	ActorEmail string     `json:"actor_email,omitempty"`
	ActorRole  string     `json:"actor_role,omitempty"`
	Action     string     `json:"action"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Details    []byte     `json:"details"` // serialized payload, WithdrawalSnapshot for withdrawal events
	CreatedAt  time.Time  `json:"created_at"`
}

// Event actions recorded against the withdrawal stream.
const (
	ActionWithdrawalRequested  = "WITHDRAWAL_REQUESTED"
	ActionWithdrawalTransition = "WITHDRAWAL_STATUS_CHANGED"
)
