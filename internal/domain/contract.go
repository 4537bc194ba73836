package domain

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusTerminated ContractStatus = "TERMINATED"
	ContractStatusExpired    ContractStatus = "EXPIRED"
)

// Contract is the slice of the platform's rental contract the ledger core
// needs: active-state check, rent amount to match against, and the owner to
// notify on settlement.
type Contract struct {
	ID         int64          `json:"id"`
	PropertyID int64          `json:"property_id"`
	TenantID   int64          `json:"tenant_id"`
	OwnerID    int64          `json:"owner_id"`
	RentAmount float64        `json:"rent_amount"`
	Status     ContractStatus `json:"status"`
}
