package privops

/* ========================================================================
 * Roles and permission bundles
 * ========================================================================
 * A role grants a fixed permission bundle; explicitly assigned extra
 * permissions are unioned on top. The role set is closed.
 * ======================================================================== */

// Role is one of the closed set of operator roles.
type Role string

const (
	// RoleSuperadmin holds every permission.
	RoleSuperadmin Role = "superadmin"
	// RoleTenantAdmin administers a single tenant's data.
	RoleTenantAdmin Role = "tenant_admin"
	// RoleReadOnly can only inspect.
	RoleReadOnly Role = "read_only"
)

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleTenantAdmin, RoleReadOnly:
		return true
	}
	return false
}

// Permission names.
const (
	PermTenantsRead       = "tenants:read"
	PermTenantsWrite      = "tenants:write"
	PermOperatorsRead     = "operators:read"
	PermOperatorsWrite    = "operators:write"
	PermSessionsRead      = "sessions:read"
	PermSessionsTerminate = "sessions:terminate"
	PermAuditRead         = "audit:read"
	PermAuditExport       = "audit:export"
	PermImpersonate       = "impersonate"
	PermRecordsRead       = "records:read"
	PermRecordsWrite      = "records:write"
)

var rolePermissions = map[Role][]string{
	RoleSuperadmin: {
		PermTenantsRead, PermTenantsWrite,
		PermOperatorsRead, PermOperatorsWrite,
		PermSessionsRead, PermSessionsTerminate,
		PermAuditRead, PermAuditExport,
		PermImpersonate,
		PermRecordsRead, PermRecordsWrite,
	},
	RoleTenantAdmin: {
		PermTenantsRead,
		PermSessionsRead,
		PermAuditRead,
		PermRecordsRead, PermRecordsWrite,
	},
	RoleReadOnly: {
		PermTenantsRead,
		PermAuditRead,
		PermRecordsRead,
	},
}

// EffectivePermissions returns the role bundle unioned with the
// operator's explicit extras.
func (o *Operator) EffectivePermissions() map[string]struct{} {
	perms := make(map[string]struct{})
	for _, p := range rolePermissions[o.Role] {
		perms[p] = struct{}{}
	}
	for _, p := range o.ExtraPermissions {
		perms[p] = struct{}{}
	}
	return perms
}

// Combinator selects how a required permission set is evaluated.
type Combinator int

const (
	// RequireAll demands every listed permission.
	RequireAll Combinator = iota
	// RequireAny demands at least one.
	RequireAny
)

// permitted evaluates required against effective under comb.
func permitted(effective map[string]struct{}, required []string, comb Combinator) bool {
	if len(required) == 0 {
		return true
	}

	switch comb {
	case RequireAny:
		for _, p := range required {
			if _, ok := effective[p]; ok {
				return true
			}
		}
		return false
	default:
		for _, p := range required {
			if _, ok := effective[p]; !ok {
				return false
			}
		}
		return true
	}
}
