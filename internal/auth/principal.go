package auth

import "github.com/google/uuid"

// Role is one of the fixed set of roles known to the system.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleCashier    Role = "cashier"
	RoleOperations Role = "operations"
)

// Roles lists every valid role, used for validation at user creation time.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RolePharmacist, RoleCashier, RoleOperations}

// ValidRole reports whether the given string names a known role.
func ValidRole(s string) bool {
	for _, r := range Roles {
		if string(r) == s {
			return true
		}
	}
	return false
}

// IsGlobal reports whether the role manages all branches of its tenant.
// SuperAdmin additionally crosses tenants, subject to tenant resolution.
func (r Role) IsGlobal() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Principal is the authenticated identity for a single request. It is
// reconstructed from verified token claims on every request and never
// mutated afterwards.
type Principal struct {
	SubjectID    uuid.UUID
	TokenID      string // jti of the access token, used for revocation lookups
	Role         Role
	TenantID     *uuid.UUID // nil only for SuperAdmin before tenant resolution
	BranchID     *uuid.UUID // home branch, nil for tenant-wide accounts
	BranchAccess []uuid.UUID
	Permissions  []string
}

// HasBranchGrant reports whether id is in the principal's explicit
// branch-access list. The home branch is not part of the list.
func (p *Principal) HasBranchGrant(id uuid.UUID) bool {
	for _, b := range p.BranchAccess {
		if b == id {
			return true
		}
	}
	return false
}
