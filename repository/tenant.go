package repository

import (
	"context"
)

/* ========================================================================
 * Request Tenant Context
 * ========================================================================
 * One TenantContext per inbound request, threaded explicitly through
 * context.Context. Never cached or shared across requests: a leaked
 * context is a cross-tenant leak.
 * ======================================================================== */

// TenantContext carries the resolved tenant identity for one request.
type TenantContext struct {
	// TenantID is the effective tenant for all data access. During
	// impersonation this is the impersonated tenant, never the
	// operator's own.
	TenantID int64

	// OperatorID is set when a privileged operator is acting.
	OperatorID int64

	// Impersonated marks TenantID as coming from an impersonation grant.
	Impersonated bool
}

// Resolved reports whether an active tenant was resolved.
func (tc TenantContext) Resolved() bool {
	return tc.TenantID != 0
}

type tenantCtxKey struct{}

// WithTenantContext injects a TenantContext into ctx.
func WithTenantContext(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tc)
}

// TenantFromContext reads the TenantContext from ctx.
func TenantFromContext(ctx context.Context) (TenantContext, bool) {
	v := ctx.Value(tenantCtxKey{})
	if v == nil {
		return TenantContext{}, false
	}
	tc, ok := v.(TenantContext)
	return tc, ok
}

/* ========================================================================
 * Global data-access mode
 * ========================================================================
 * The single sanctioned bypass of tenant filtering. Only privileged flows
 * (impersonation management, audit reporting) construct it; every use is
 * logged by the gateway. Ordinary request handling never sees it.
 * ======================================================================== */

// GlobalAccess describes an explicit, attributable bypass of tenant scoping.
type GlobalAccess struct {
	// Reason is recorded with every scoped query executed under the grant.
	Reason string
	// OperatorID attributes the grant to a privileged operator.
	OperatorID int64
}

type globalAccessKey struct{}

// WithGlobalAccess returns a context whose repository calls skip tenant
// filtering. Callers own the obligation to restrict results themselves.
func WithGlobalAccess(ctx context.Context, ga GlobalAccess) context.Context {
	return context.WithValue(ctx, globalAccessKey{}, ga)
}

// GlobalAccessFromContext reads a global-access grant from ctx.
func GlobalAccessFromContext(ctx context.Context) (GlobalAccess, bool) {
	v := ctx.Value(globalAccessKey{})
	if v == nil {
		return GlobalAccess{}, false
	}
	ga, ok := v.(GlobalAccess)
	return ga, ok
}
