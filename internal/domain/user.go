package domain

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleTenant  Role = "TENANT"
)

// Actor is the already-authenticated caller handed to the ledger core by
// the identity resolver. The core trusts it fully and performs no
// authentication itself.
type Actor struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Elevated reports whether the actor may review withdrawals.
func (a Actor) Elevated() bool {
	return a.Role == RoleAdmin
}

// CanWithdraw reports whether the actor may request withdrawals at all.
func (a Actor) CanWithdraw() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// RequestMeta carries per-request client metadata recorded into withdrawal
// snapshots for audit purposes.
type RequestMeta struct {
	IP        string
	UserAgent string
}
