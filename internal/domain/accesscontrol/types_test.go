package accesscontrol

import "testing"

func TestResolvePicksHighestPriority(t *testing.T) {
	tests := []struct {
		name  string
		roles []RoleName
		want  RoleName
	}{
		{"no roles defaults to customer", nil, RoleCustomer},
		{"single customer", []RoleName{RoleCustomer}, RoleCustomer},
		{"staff beats customer", []RoleName{RoleStaff, RoleCustomer}, RoleStaff},
		{"admin beats staff", []RoleName{RoleCustomer, RoleAdmin, RoleStaff}, RoleAdmin},
		{"superadmin beats admin", []RoleName{RoleAdmin, RoleSuperAdmin}, RoleSuperAdmin},
		{"unknown role cannot win", []RoleName{"owner", RoleStaff}, RoleStaff},
		{"only unknown roles fall back to customer", []RoleName{"owner"}, RoleCustomer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.roles); got != tt.want {
				t.Errorf("Resolve(%v) = %q, want %q", tt.roles, got, tt.want)
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	if !RoleSuperAdmin.AtLeast(RoleAdmin) {
		t.Error("superadmin should satisfy admin gate")
	}
	if !RoleAdmin.AtLeast(RoleStaff) {
		t.Error("admin should satisfy staff gate")
	}
	if RoleStaff.AtLeast(RoleAdmin) {
		t.Error("staff must not satisfy admin gate")
	}
	if RoleName("owner").AtLeast(RoleCustomer) {
		t.Error("unknown role must not satisfy any gate")
	}
}

func TestValid(t *testing.T) {
	for _, n := range []RoleName{RoleCustomer, RoleStaff, RoleAdmin, RoleSuperAdmin} {
		if !n.Valid() {
			t.Errorf("%q should be valid", n)
		}
	}
	if RoleName("merchant").Valid() {
		t.Error("merchant is not a known role")
	}
}
