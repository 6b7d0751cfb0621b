package middleware

import (
	"strconv"
	"strings"

	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/metrics"
	"github.com/zooarc/menagerie/repository"
	"github.com/zooarc/menagerie/response"
	"github.com/zooarc/menagerie/tenant"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

/* ========================================================================
 * Tenant resolution middleware
 * ========================================================================
 * Resolves the request tenant from the gateway-injected identity
 * headers and the Host header, then injects the tenant context every
 * repository call scopes by. Requests with no resolvable active tenant
 * are rejected; there is no default tenant to fall through to.
 * ======================================================================== */

const (
	// HeaderTenantClaim carries the principal's tenant claim, set by the
	// authenticating gateway.
	HeaderTenantClaim = "X-Tenant-ID"
	// HeaderUserEmail carries the authenticated principal's email.
	HeaderUserEmail = "X-User-Email"

	tenantLocalKey = "menagerie_tenant"
)

// TenantResolution resolves the tenant for every non-infrastructure
// request and stores it in both fiber locals and the request context.
func TenantResolution(resolver *tenant.Resolver, log *logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.NewNop()
	}

	return func(c fiber.Ctx) error {
		if tenant.SkipsResolution(c.Path()) {
			metrics.TenantResolutionTotal.WithLabelValues("skipped").Inc()
			return c.Next()
		}

		sig := tenant.Signals{Host: c.Hostname()}
		if principal, ok := PrincipalFromCtx(c); ok {
			// verified gateway claims are the strongest signals
			sig.TenantClaim = principal.TenantID
			sig.Email = principal.Email
		} else {
			sig.Email = strings.TrimSpace(c.Get(HeaderUserEmail))
			if raw := strings.TrimSpace(c.Get(HeaderTenantClaim)); raw != "" {
				if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
					sig.TenantClaim = id
				}
			}
		}

		tn, err := resolver.Resolve(c.Context(), sig)
		if err != nil {
			metrics.TenantResolutionTotal.WithLabelValues("failed").Inc()
			log.Warn("tenant resolution failed",
				zap.String("path", c.Path()),
				zap.String("host", sig.Host),
				zap.Error(err),
			)
			return response.Error(c, err)
		}

		metrics.TenantResolutionTotal.WithLabelValues("resolved").Inc()
		c.Locals(tenantLocalKey, tn)
		c.SetContext(repository.WithTenantContext(c.Context(), repository.TenantContext{
			TenantID: tn.ID,
		}))
		return c.Next()
	}
}

// TenantFromCtx returns the tenant resolved for this request.
func TenantFromCtx(c fiber.Ctx) (*tenant.Tenant, bool) {
	tn, ok := c.Locals(tenantLocalKey).(*tenant.Tenant)
	return tn, ok
}
