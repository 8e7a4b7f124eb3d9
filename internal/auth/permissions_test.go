package auth

import "testing"

func TestRoleSatisfiesExactMatch(t *testing.T) {
	m := NewPermissionMatrix()
	if !m.RoleSatisfies(RoleCashier, "sales:create") {
		t.Fatal("cashier should create sales")
	}
	if m.RoleSatisfies(RoleCashier, "sales:delete") {
		t.Fatal("cashier must not delete sales")
	}
}

func TestRoleSatisfiesResourceWildcard(t *testing.T) {
	m := NewPermissionMatrix()
	for _, action := range []string{"read", "create", "update", "delete", "dispense"} {
		if !m.RoleSatisfies(RolePharmacist, "prescriptions:"+action) {
			t.Fatalf("pharmacist should satisfy prescriptions:%s", action)
		}
	}
	if m.RoleSatisfies(RolePharmacist, "users:read") {
		t.Fatal("pharmacist must not read users")
	}
}

func TestSystemWildcardMatchesEverything(t *testing.T) {
	m := NewPermissionMatrix()
	for _, perm := range []string{"users:delete", "tenants:create", "anything:at_all"} {
		if !m.RoleSatisfies(RoleSuperAdmin, perm) {
			t.Fatalf("super admin should satisfy %s", perm)
		}
	}
	if m.RoleSatisfies(RoleAdmin, "tenants:create") {
		t.Fatal("admin must not hold system-level grants")
	}
}

func TestNoPartialResourceWildcard(t *testing.T) {
	m := &PermissionMatrix{grants: map[Role][]string{
		RoleCashier: {"*:read"},
	}}
	if m.RoleSatisfies(RoleCashier, "patients:read") {
		t.Fatal("*:action patterns must not match")
	}
}

func TestRoleSatisfiesMalformedPermission(t *testing.T) {
	m := NewPermissionMatrix()
	for _, bad := range []string{"", "read", ":read"} {
		if m.RoleSatisfies(RoleAdmin, bad) {
			t.Fatalf("malformed permission %q must not be satisfied", bad)
		}
	}
}

func TestRoleSatisfiesIsDeterministic(t *testing.T) {
	m := NewPermissionMatrix()
	first := m.RoleSatisfies(RoleOperations, "medicines:update")
	for i := 0; i < 100; i++ {
		if m.RoleSatisfies(RoleOperations, "medicines:update") != first {
			t.Fatal("RoleSatisfies is not deterministic")
		}
	}
	if !first {
		t.Fatal("operations should update medicines")
	}
}
