package tenant

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/logger"

	"go.uber.org/zap"
)

/* ========================================================================
 * Tenant Resolver
 * ========================================================================
 * Per-request resolution of the active tenant from untrusted signals, in
 * fixed order: explicit tenant claim, then the email domain, then the
 * host subdomain. Each candidate is validated against the directory for
 * existence and active status. There is no default tenant: when nothing
 * resolves the request fails with tenant_required before any data access.
 * ======================================================================== */

// Signals are the inbound hints the resolver consumes. All of them come
// from outside the trust boundary and are validated before use.
type Signals struct {
	// TenantClaim is the principal's explicit tenant claim, 0 when absent.
	TenantClaim int64
	// Email is the principal's email claim.
	Email string
	// Host is the request Host header, possibly with a port.
	Host string
}

// infraPaths bypass tenant resolution entirely.
var infraPaths = map[string]bool{
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
	"/metrics": true,
}

// SkipsResolution reports whether path is an infrastructure endpoint that
// never needs a tenant.
func SkipsResolution(path string) bool {
	if infraPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/.well-known/")
}

// Resolver resolves request signals to an active tenant.
type Resolver struct {
	dir *Directory
	log *logger.Logger
}

// NewResolver creates a Resolver backed by the directory.
func NewResolver(dir *Directory, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{dir: dir, log: log}
}

// Resolve returns the active tenant for the given signals.
//
// A signal that matches a suspended tenant does not resolve; if no other
// signal matches an active tenant, the failure is reported as
// tenant_suspended rather than tenant_required so callers can tell a
// deactivated organization apart from a missing one.
func (r *Resolver) Resolve(ctx context.Context, sig Signals) (*Tenant, error) {
	sawSuspended := false

	// 1. explicit tenant claim
	if sig.TenantClaim != 0 {
		t, err := r.dir.GetByID(ctx, sig.TenantClaim)
		switch {
		case err == nil && t.Active:
			return t, nil
		case err == nil:
			sawSuspended = true
		case !errors.IsNotFound(err):
			return nil, err
		}
	}

	// 2. email domain
	if domain := emailDomain(sig.Email); domain != "" {
		t, err := r.dir.GetByDomain(ctx, domain)
		if err == nil {
			return t, nil
		}
		if !errors.IsNotFound(err) {
			return nil, err
		}
	}

	// 3. host subdomain
	if sub := hostSubdomain(sig.Host); sub != "" {
		t, err := r.lookupSubdomain(ctx, sub)
		switch {
		case err == nil && t.Active:
			return t, nil
		case err == nil:
			sawSuspended = true
		case !errors.IsNotFound(err):
			return nil, err
		}
	}

	r.log.Warn("tenant resolution failed",
		zap.Int64("tenant_claim", sig.TenantClaim),
		zap.String("email_domain", emailDomain(sig.Email)),
		zap.String("host", sig.Host),
		zap.Bool("suspended_candidate", sawSuspended),
	)

	if sawSuspended {
		return nil, errors.ErrTenantSuspended
	}
	return nil, errors.ErrTenantRequired
}

// lookupSubdomain matches a subdomain against a tenant name, or a tenant
// id when the label is numeric.
func (r *Resolver) lookupSubdomain(ctx context.Context, sub string) (*Tenant, error) {
	if id, err := strconv.ParseInt(sub, 10, 64); err == nil && id > 0 {
		return r.dir.GetByID(ctx, id)
	}
	return r.dir.GetByName(ctx, sub)
}

// emailDomain extracts the lowercase domain of an email address.
func emailDomain(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// hostSubdomain extracts the first label of a multi-label host.
// "okapi.zoo.example" yields "okapi"; bare or two-label hosts and IP
// addresses yield nothing.
func hostSubdomain(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if net.ParseIP(host) != nil {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}
	sub := labels[0]
	if sub == "www" {
		return ""
	}
	return sub
}
