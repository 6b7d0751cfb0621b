package api

import (
	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/response"
	"github.com/zooarc/menagerie/tenant"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Route registration
 * ========================================================================
 * /api/v1/auth       login, logout, impersonation
 * /api/v1/admin      operator console, guarded per-route by permissions
 * /api/v1/specimens  tenant data surface; an operator bearer token (for
 *                    impersonation) takes precedence over tenant
 *                    resolution from request signals
 * ======================================================================== */

// RegisterRoutes mounts the HTTP surface on app.
func RegisterRoutes(app fiber.Router, h *Handlers, resolver *tenant.Resolver) {
	v1 := app.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.Post("/login", h.Login, middleware.RateLimitMiddleware())
	auth.Post("/logout", h.Logout)
	auth.Post("/impersonation", h.StartImpersonation)
	auth.Delete("/impersonation", h.EndImpersonation)

	admin := v1.Group("/admin")

	tenants := admin.Group("/tenants")
	tenants.Get("/", h.ListTenants, requirePerm(h.mgr, privops.PermTenantsRead))
	tenants.Get("/:id", h.GetTenant, requirePerm(h.mgr, privops.PermTenantsRead))
	tenants.Post("/", h.CreateTenant, requirePerm(h.mgr, privops.PermTenantsWrite))
	tenants.Patch("/:id", h.UpdateTenant, requirePerm(h.mgr, privops.PermTenantsWrite))
	tenants.Post("/:id/suspend", h.SuspendTenant, requirePerm(h.mgr, privops.PermTenantsWrite))
	tenants.Post("/:id/restore", h.RestoreTenant, requirePerm(h.mgr, privops.PermTenantsWrite))

	operators := admin.Group("/operators")
	operators.Get("/", h.ListOperators, requirePerm(h.mgr, privops.PermOperatorsRead))
	operators.Get("/:id", h.GetOperator, requirePerm(h.mgr, privops.PermOperatorsRead))
	operators.Post("/", h.CreateOperator, requirePerm(h.mgr, privops.PermOperatorsWrite))
	operators.Patch("/:id/active", h.SetOperatorActive, requirePerm(h.mgr, privops.PermOperatorsWrite))
	operators.Get("/:id/sessions", h.ListSessions, requirePerm(h.mgr, privops.PermSessionsRead))
	operators.Delete("/:id/sessions", h.TerminateAllSessions, requirePerm(h.mgr, privops.PermSessionsTerminate))

	auditGroup := admin.Group("/audit")
	auditGroup.Get("/", h.ListAuditEntries, requirePerm(h.mgr, privops.PermAuditRead))
	auditGroup.Get("/export", h.ExportAuditEntries, requirePerm(h.mgr, privops.PermAuditExport))
	auditGroup.Get("/statistics", h.AuditStatistics, requirePerm(h.mgr, privops.PermAuditRead))
	auditGroup.Get("/:id/integrity", h.VerifyAuditEntry, requirePerm(h.mgr, privops.PermAuditRead))

	specimens := v1.Group("/specimens", tenantAccess(h.mgr, resolver, h))
	specimens.Get("/", h.ListSpecimens)
	specimens.Get("/:id", h.GetSpecimen)
	specimens.Post("/", h.CreateSpecimen, operatorWriteGuard())
	specimens.Patch("/:id", h.UpdateSpecimen, operatorWriteGuard())
	specimens.Delete("/:id", h.DeleteSpecimen, operatorWriteGuard())
}

func requirePerm(mgr *privops.Manager, perms ...string) fiber.Handler {
	return middleware.RequireSession(mgr, perms, privops.RequireAll)
}

// tenantAccess scopes specimen routes. A bearer token means an
// operator (possibly impersonating) and goes through session
// authorization; otherwise the tenant resolves from request signals.
func tenantAccess(mgr *privops.Manager, resolver *tenant.Resolver, h *Handlers) fiber.Handler {
	session := middleware.RequireSession(mgr, []string{privops.PermRecordsRead, privops.PermRecordsWrite}, privops.RequireAny)
	resolve := middleware.TenantResolution(resolver, h.log)

	return func(c fiber.Ctx) error {
		if middleware.BearerToken(c) != "" {
			return session(c)
		}
		return resolve(c)
	}
}

// operatorWriteGuard blocks mutations from read-only operator
// sessions. Tenant app requests carry no operator and pass through.
func operatorWriteGuard() fiber.Handler {
	return func(c fiber.Ctx) error {
		if op, ok := middleware.OperatorFromCtx(c); ok {
			if _, allowed := op.EffectivePermissions()[privops.PermRecordsWrite]; !allowed {
				return response.Error(c, errors.ErrPermissionDenied)
			}
		}
		return c.Next()
	}
}
