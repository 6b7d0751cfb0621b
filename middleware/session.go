package middleware

import (
	"strings"

	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/repository"
	"github.com/zooarc/menagerie/response"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Privileged session middleware
 * ========================================================================
 * Validates the bearer token on operator routes and exposes the
 * authorized operator and session to handlers. During impersonation the
 * injected tenant context is the impersonated tenant, replacing
 * whatever the resolution middleware derived.
 * ======================================================================== */

const (
	operatorLocalKey = "menagerie_operator"
	sessionLocalKey  = "menagerie_session"
)

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(c fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequireSession authorizes the request's session token against a
// permission set and stores the operator, session, and tenant context
// for the handler.
func RequireSession(mgr *privops.Manager, required []string, comb privops.Combinator) fiber.Handler {
	return func(c fiber.Ctx) error {
		op, sess, err := mgr.Authorize(c.Context(), BearerToken(c), required, comb)
		if err != nil {
			return response.Error(c, err)
		}

		c.Locals(operatorLocalKey, op)
		c.Locals(sessionLocalKey, sess)
		c.SetContext(repository.WithTenantContext(c.Context(), privops.TenantContextFor(op, sess)))
		return c.Next()
	}
}

// OperatorFromCtx returns the operator authorized for this request.
func OperatorFromCtx(c fiber.Ctx) (*privops.Operator, bool) {
	op, ok := c.Locals(operatorLocalKey).(*privops.Operator)
	return op, ok
}

// SessionFromCtx returns the session authorized for this request.
func SessionFromCtx(c fiber.Ctx) (*privops.Session, bool) {
	sess, ok := c.Locals(sessionLocalKey).(*privops.Session)
	return sess, ok
}

// ClientInfoFromCtx derives audit attribution from the request.
func ClientInfoFromCtx(c fiber.Ctx) privops.ClientInfo {
	return privops.ClientInfo{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}
