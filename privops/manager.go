package privops

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/metrics"
	"github.com/zooarc/menagerie/repository"
	"github.com/zooarc/menagerie/tenant"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

/* ========================================================================
 * Privileged Session Manager
 * ========================================================================
 * Authentication with lockout, permission checks, session lifetime, and
 * time-boxed cross-tenant impersonation. Per operator:
 *
 *   Active -> [5 failed auths] -> Locked(until) -> [elapses] -> Active
 *
 * Every operation emits an audit entry through the never-fail recorder
 * before the response is returned; an audit failure is an incident but
 * never blocks the operation itself.
 * ======================================================================== */

// Config tunes the manager. Zero values take the documented defaults.
type Config struct {
	// SessionTTL is the lifetime of a login session. Default 30m.
	SessionTTL time.Duration `yaml:"session_ttl"`
	// MaxFailedLogins triggers a lockout when reached. Default 5.
	MaxFailedLogins int `yaml:"max_failed_logins"`
	// LockoutDuration is how long a lockout lasts. Default 15m.
	LockoutDuration time.Duration `yaml:"lockout_duration"`
	// ImpersonationMin/Max clamp requested impersonation durations.
	// Defaults 5m and 8h.
	ImpersonationMin time.Duration `yaml:"impersonation_min"`
	ImpersonationMax time.Duration `yaml:"impersonation_max"`
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.MaxFailedLogins <= 0 {
		c.MaxFailedLogins = 5
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 15 * time.Minute
	}
	if c.ImpersonationMin <= 0 {
		c.ImpersonationMin = 5 * time.Minute
	}
	if c.ImpersonationMax <= 0 {
		c.ImpersonationMax = 8 * time.Hour
	}
	return c
}

// ClientInfo carries request attribution for audit entries.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Manager implements the privileged session operations.
type Manager struct {
	db        *gorm.DB
	operators repository.Repository[Operator]
	sessions  repository.Repository[Session]
	dir       *tenant.Directory
	recorder  *audit.Recorder
	cfg       Config
	log       *logger.Logger

	// now is a seam for deterministic tests.
	now func() time.Time
}

// NewManager creates a Manager.
func NewManager(db *gorm.DB, dir *tenant.Directory, recorder *audit.Recorder, cfg Config, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		db:        db,
		operators: repository.NewRepository[Operator](db, log),
		sessions:  repository.NewRepository[Session](db, log),
		dir:       dir,
		recorder:  recorder,
		cfg:       cfg.withDefaults(),
		log:       log,
		now:       time.Now,
	}
}

/* ========================================================================
 * Authenticate
 * ======================================================================== */

// Authenticate verifies an operator's credentials and opens a session.
// Failures increment the operator's counter atomically; the fifth
// consecutive failure locks the account for the lockout duration.
func (m *Manager) Authenticate(ctx context.Context, email, password string, client ClientInfo) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	op, err := m.operators.FindOne(ctx, "email = ?", email)
	if err != nil {
		if errors.IsNotFound(err) {
			metrics.AuthFailureTotal.WithLabelValues("unknown_operator").Inc()
			m.audit(ctx, &audit.Entry{
				Operation:  audit.OpOperatorLoginFailed,
				EntityType: "operator",
				Severity:   audit.SeverityWarning,
				After:      audit.Snapshot(map[string]string{"email": email, "reason": "unknown operator"}),
			}, client)
			return nil, errors.ErrUnauthenticated
		}
		return nil, err
	}

	now := m.now()

	if !op.Active {
		metrics.AuthFailureTotal.WithLabelValues("inactive").Inc()
		m.auditOperator(ctx, op, audit.OpOperatorLoginFailed, audit.SeverityWarning, client,
			map[string]string{"reason": "operator inactive"})
		return nil, errors.ErrUnauthenticated
	}

	if op.LockedAt(now) {
		metrics.AuthFailureTotal.WithLabelValues("locked").Inc()
		m.auditOperator(ctx, op, audit.OpOperatorLoginFailed, audit.SeverityWarning, client,
			map[string]string{"reason": "locked"})
		return nil, errors.ErrOperatorLocked
	}

	if !VerifyPassword(op.PasswordHash, password) {
		return nil, m.recordAuthFailure(ctx, op, now, client)
	}

	// Success: reset the counter and record login metadata.
	if err := m.operators.UpdateByID(ctx, op.ID, map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   client.IP,
	}, "failed_attempts", "locked_until", "last_login_at", "last_login_ip"); err != nil {
		return nil, err
	}

	sess, err := m.openSession(ctx, op, m.cfg.SessionTTL, 0, 0, client)
	if err != nil {
		return nil, err
	}

	m.auditOperator(ctx, op, audit.OpOperatorLogin, audit.SeverityInfo, client, nil)
	return sess, nil
}

// recordAuthFailure bumps the failure counter with a single SQL
// expression and applies the lockout exactly once when the threshold is
// crossed, even under concurrent attempts.
func (m *Manager) recordAuthFailure(ctx context.Context, op *Operator, now time.Time, client ClientInfo) error {
	metrics.AuthFailureTotal.WithLabelValues("bad_password").Inc()

	if err := m.db.WithContext(ctx).Model(&Operator{}).
		Where("id = ?", op.ID).
		Update("failed_attempts", gorm.Expr("failed_attempts + 1")).Error; err != nil {
		return err
	}

	lockUntil := now.Add(m.cfg.LockoutDuration)
	res := m.db.WithContext(ctx).Model(&Operator{}).
		Where("id = ? AND failed_attempts >= ? AND (locked_until IS NULL OR locked_until <= ?)",
			op.ID, m.cfg.MaxFailedLogins, now).
		Update("locked_until", lockUntil)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 1 {
		// This attempt crossed the threshold.
		metrics.LockoutTotal.Inc()
		m.log.Warn("operator locked out",
			zap.Int64("operator_id", op.ID),
			zap.String("email", op.Email),
			zap.Time("locked_until", lockUntil),
		)
		m.auditOperator(ctx, op, audit.OpOperatorLockout, audit.SeverityCritical, client,
			map[string]string{"locked_until": lockUntil.UTC().Format(time.RFC3339)})
		return errors.ErrOperatorLocked
	}

	m.auditOperator(ctx, op, audit.OpOperatorLoginFailed, audit.SeverityWarning, client,
		map[string]string{"reason": "bad password"})
	return errors.ErrUnauthenticated
}

/* ========================================================================
 * Authorize
 * ======================================================================== */

// Authorize validates a session token against a required permission set.
// Expiry is checked lazily here, at point of use; termination only
// affects authorizations after the terminating request.
func (m *Manager) Authorize(ctx context.Context, token string, required []string, comb Combinator) (*Operator, *Session, error) {
	if token == "" {
		return nil, nil, errors.ErrUnauthenticated
	}

	sess, err := m.sessions.FindOne(ctx, "token = ?", token)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, errors.ErrUnauthenticated
		}
		return nil, nil, err
	}

	switch sess.Status {
	case SessionTerminated:
		return nil, nil, errors.ErrSessionTerminated
	case SessionExpired:
		return nil, nil, errors.ErrSessionExpired
	}

	if sess.ExpiredAt(m.now()) {
		m.expireSession(ctx, sess)
		return nil, nil, errors.ErrSessionExpired
	}

	op, err := m.operators.FindByID(ctx, sess.OperatorID)
	if err != nil {
		return nil, nil, errors.ErrUnauthenticated
	}
	if !op.Active {
		return nil, nil, errors.ErrUnauthenticated
	}

	if !permitted(op.EffectivePermissions(), required, comb) {
		return nil, nil, errors.ErrPermissionDenied
	}

	return op, sess, nil
}

// TenantContextFor derives the gateway tenant context from a session.
// Impersonation substitutes the impersonated tenant; the operator's own
// tenant is never conflated with it.
func TenantContextFor(op *Operator, sess *Session) repository.TenantContext {
	if sess.Impersonating() {
		return repository.TenantContext{
			TenantID:     sess.ImpersonatedTenantID,
			OperatorID:   op.ID,
			Impersonated: true,
		}
	}
	return repository.TenantContext{
		TenantID:   op.TenantID,
		OperatorID: op.ID,
	}
}

/* ========================================================================
 * Impersonation
 * ======================================================================== */

// StartImpersonation opens a new session scoped to a target tenant. The
// requested duration is clamped to the configured window.
func (m *Manager) StartImpersonation(ctx context.Context, token string, targetTenantID, targetUserID int64, duration time.Duration, client ClientInfo) (*Session, error) {
	op, _, err := m.Authorize(ctx, token, []string{PermImpersonate}, RequireAll)
	if err != nil {
		return nil, err
	}

	target, err := m.dir.GetByID(ctx, targetTenantID)
	if err != nil {
		return nil, err
	}
	if !target.Active {
		return nil, errors.ErrTenantSuspended
	}

	if duration < m.cfg.ImpersonationMin {
		duration = m.cfg.ImpersonationMin
	}
	if duration > m.cfg.ImpersonationMax {
		duration = m.cfg.ImpersonationMax
	}

	sess, err := m.openSession(ctx, op, duration, targetTenantID, targetUserID, client)
	if err != nil {
		return nil, err
	}

	metrics.ActiveImpersonations.Inc()
	m.audit(ctx, &audit.Entry{
		Operation:            audit.OpImpersonationStart,
		EntityType:           "tenant",
		EntityID:             strconv.FormatInt(targetTenantID, 10),
		OperatorID:           op.ID,
		OperatorEmail:        op.Email,
		TenantID:             op.TenantID,
		ImpersonatedTenantID: targetTenantID,
		Severity:             audit.SeverityCritical,
		After: audit.Snapshot(map[string]any{
			"impersonated_tenant_id": targetTenantID,
			"impersonated_user_id":   targetUserID,
			"expires_at":             sess.ExpiresAt.UTC().Format(time.RFC3339),
		}),
	}, client)

	return sess, nil
}

// EndImpersonation terminates an impersonation session. Idempotent: a
// second call on the same token is a no-op.
func (m *Manager) EndImpersonation(ctx context.Context, token string, client ClientInfo) error {
	return m.terminateByToken(ctx, token, audit.OpImpersonationEnd, "logout", client)
}

// Logout terminates a session. Idempotent.
func (m *Manager) Logout(ctx context.Context, token string, client ClientInfo) error {
	return m.terminateByToken(ctx, token, audit.OpOperatorLogout, "logout", client)
}

/* ========================================================================
 * Termination
 * ======================================================================== */

// TerminateAllSessions force-expires every active session of an
// operator, each termination individually audited. actor is the
// operator performing the revocation.
func (m *Manager) TerminateAllSessions(ctx context.Context, actor *Operator, operatorID int64, client ClientInfo) (int, error) {
	sessions, err := m.sessions.FindByQuery(ctx, "operator_id = ? AND status = ?", operatorID, SessionActive)
	if err != nil {
		return 0, err
	}

	terminated := 0
	for _, sess := range sessions {
		if err := m.markTerminated(ctx, sess); err != nil {
			return terminated, err
		}
		terminated++
		metrics.SessionTerminatedTotal.WithLabelValues("admin").Inc()

		m.audit(ctx, &audit.Entry{
			Operation:     audit.OpSessionTerminate,
			EntityType:    "session",
			EntityID:      strconv.FormatInt(sess.ID, 10),
			OperatorID:    actor.ID,
			OperatorEmail: actor.Email,
			Severity:      audit.SeverityWarning,
			After: audit.Snapshot(map[string]any{
				"target_operator_id": operatorID,
			}),
		}, client)
	}

	return terminated, nil
}

// ListSessions returns one page of an operator's sessions, newest first.
func (m *Manager) ListSessions(ctx context.Context, operatorID int64, page, pageSize int) (*repository.PageResult[Session], error) {
	opts := []repository.Option{repository.WithOrderBy("id DESC")}
	return m.sessions.FindPageWithOpts(ctx, page, pageSize, "operator_id = ?", opts, operatorID)
}

func (m *Manager) terminateByToken(ctx context.Context, token string, auditOp, reason string, client ClientInfo) error {
	if token == "" {
		return errors.ErrUnauthenticated
	}

	sess, err := m.sessions.FindOne(ctx, "token = ?", token)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.ErrUnauthenticated
		}
		return err
	}

	if sess.Status != SessionActive {
		return nil
	}

	if err := m.markTerminated(ctx, sess); err != nil {
		return err
	}
	metrics.SessionTerminatedTotal.WithLabelValues(reason).Inc()

	op, opErr := m.operators.FindByID(ctx, sess.OperatorID)
	entry := &audit.Entry{
		Operation:            auditOp,
		EntityType:           "session",
		EntityID:             strconv.FormatInt(sess.ID, 10),
		OperatorID:           sess.OperatorID,
		ImpersonatedTenantID: sess.ImpersonatedTenantID,
		Severity:             audit.SeverityInfo,
	}
	if opErr == nil {
		entry.OperatorEmail = op.Email
		entry.TenantID = op.TenantID
	}
	if sess.Impersonating() {
		entry.Severity = audit.SeverityWarning
	}
	m.audit(ctx, entry, client)

	return nil
}

// markTerminated flips a session to terminated and keeps the
// impersonation gauge honest.
func (m *Manager) markTerminated(ctx context.Context, sess *Session) error {
	now := m.now()
	if err := m.sessions.UpdateByID(ctx, sess.ID, map[string]any{
		"status":        SessionTerminated,
		"terminated_at": now,
	}, "status", "terminated_at"); err != nil {
		return err
	}

	if sess.Impersonating() && !sess.ExpiredAt(now) {
		metrics.ActiveImpersonations.Dec()
	}
	sess.Status = SessionTerminated
	sess.TerminatedAt = &now
	return nil
}

// expireSession records a lazy expiry observed during authorization.
func (m *Manager) expireSession(ctx context.Context, sess *Session) {
	if err := m.sessions.UpdateByID(ctx, sess.ID, map[string]any{
		"status": SessionExpired,
	}, "status"); err != nil {
		m.log.Error("failed to mark session expired",
			zap.Int64("session_id", sess.ID),
			zap.Error(err),
		)
		return
	}
	metrics.SessionTerminatedTotal.WithLabelValues("expired").Inc()
	if sess.Impersonating() {
		metrics.ActiveImpersonations.Dec()
	}
}

func (m *Manager) openSession(ctx context.Context, op *Operator, ttl time.Duration, impTenantID, impUserID int64, client ClientInfo) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Token:                token,
		OperatorID:           op.ID,
		ExpiresAt:            m.now().Add(ttl),
		ClientIP:             client.IP,
		UserAgent:            client.UserAgent,
		ImpersonatedTenantID: impTenantID,
		ImpersonatedUserID:   impUserID,
		Status:               SessionActive,
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

/* ========================================================================
 * Audit helpers
 * ======================================================================== */

func (m *Manager) audit(ctx context.Context, e *audit.Entry, client ClientInfo) {
	if m.recorder == nil {
		return
	}
	e.ClientIP = client.IP
	e.UserAgent = client.UserAgent
	m.recorder.Record(ctx, e)
}

func (m *Manager) auditOperator(ctx context.Context, op *Operator, operation string, sev audit.Severity, client ClientInfo, detail map[string]string) {
	e := &audit.Entry{
		Operation:     operation,
		EntityType:    "operator",
		EntityID:      strconv.FormatInt(op.ID, 10),
		OperatorID:    op.ID,
		OperatorEmail: op.Email,
		TenantID:      op.TenantID,
		Severity:      sev,
	}
	if detail != nil {
		e.After = audit.Snapshot(detail)
	}
	m.audit(ctx, e, client)
}
