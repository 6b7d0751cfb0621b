package privops

import "testing"

func TestEffectivePermissionsUnion(t *testing.T) {
	op := &Operator{Role: RoleReadOnly, ExtraPermissions: []string{PermAuditExport}}
	perms := op.EffectivePermissions()

	for _, want := range []string{PermTenantsRead, PermAuditRead, PermRecordsRead, PermAuditExport} {
		if _, ok := perms[want]; !ok {
			t.Errorf("expected %s in effective permissions", want)
		}
	}
	if _, ok := perms[PermTenantsWrite]; ok {
		t.Error("read_only must not gain tenants:write")
	}
}

func TestPermittedCombinators(t *testing.T) {
	effective := map[string]struct{}{
		PermAuditRead:   {},
		PermRecordsRead: {},
	}

	cases := []struct {
		name     string
		required []string
		comb     Combinator
		want     bool
	}{
		{"empty is always permitted", nil, RequireAll, true},
		{"all held", []string{PermAuditRead, PermRecordsRead}, RequireAll, true},
		{"all with one missing", []string{PermAuditRead, PermTenantsWrite}, RequireAll, false},
		{"any with one held", []string{PermTenantsWrite, PermAuditRead}, RequireAny, true},
		{"any with none held", []string{PermTenantsWrite, PermImpersonate}, RequireAny, false},
	}
	for _, tc := range cases {
		if got := permitted(effective, tc.required, tc.comb); got != tc.want {
			t.Errorf("%s: permitted = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleSuperadmin, RoleTenantAdmin, RoleReadOnly} {
		if !r.Valid() {
			t.Errorf("expected %s valid", r)
		}
	}
	if Role("owner").Valid() {
		t.Error("unknown role must be invalid")
	}
}
