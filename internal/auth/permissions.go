package auth

import "strings"

// Permission patterns are "resource:action" strings. "resource:*" grants
// every action on a resource and "system:*" grants everything. "*:action" is
// deliberately unsupported to avoid ambiguous broad grants.
const (
	PermSystemAll   = "system:*"
	PermCrossBranch = "branches:cross_access"
)

// PermissionMatrix maps each role to its permission patterns. It is built
// once at startup and never mutated, so concurrent reads need no locking.
// It performs no I/O.
type PermissionMatrix struct {
	grants map[Role][]string
}

// NewPermissionMatrix returns the matrix with the built-in grants for the
// five roles. Exact grants are configuration; the evaluation rules are the
// invariant.
func NewPermissionMatrix() *PermissionMatrix {
	return &PermissionMatrix{grants: map[Role][]string{
		RoleSuperAdmin: {PermSystemAll},
		RoleAdmin: {
			"users:*", "branches:*", "patients:*", "medicines:*",
			"prescriptions:*", "sales:*", "reports:*", "audit:*",
			"tenants:read", "tenants:update",
		},
		RolePharmacist: {
			"patients:read", "patients:create", "patients:update",
			"medicines:read", "medicines:update",
			"prescriptions:*",
			"sales:read", "reports:read",
		},
		RoleCashier: {
			"patients:read", "medicines:read",
			"prescriptions:read",
			"sales:create", "sales:read",
		},
		RoleOperations: {
			"medicines:*", "branches:read", PermCrossBranch,
			"sales:read", "reports:read",
		},
	}}
}

// RoleSatisfies reports whether the role's grants cover the required
// "resource:action" permission. Pure lookup over static data.
func (m *PermissionMatrix) RoleSatisfies(role Role, required string) bool {
	return MatchPatterns(m.grants[role], required)
}

// MatchPatterns reports whether any pattern in the set covers the required
// "resource:action" permission. Also used against the permission snapshot
// carried in token claims.
func MatchPatterns(patterns []string, required string) bool {
	resource, _, ok := strings.Cut(required, ":")
	if !ok || resource == "" {
		return false
	}
	for _, pattern := range patterns {
		if pattern == PermSystemAll {
			return true
		}
		if pattern == required {
			return true
		}
		if res, action, ok := strings.Cut(pattern, ":"); ok && action == "*" && res == resource {
			return true
		}
	}
	return false
}

// GrantsFor returns a copy of the role's patterns, used when issuing tokens.
func (m *PermissionMatrix) GrantsFor(role Role) []string {
	src := m.grants[role]
	out := make([]string, len(src))
	copy(out, src)
	return out
}
