package privops

import (
	"time"

	"github.com/zooarc/menagerie/database"
	"github.com/zooarc/menagerie/repository"
)

/* ========================================================================
 * Operator and Session models
 * ========================================================================
 * Both are directory-level records: they describe who may cross tenant
 * boundaries and are therefore not themselves tenant-owned. Operators
 * are admin-managed only, never self-service.
 * ======================================================================== */

// Operator is a privileged user of the administration surface.
type Operator struct {
	repository.SharedModel

	Email        string `json:"email" gorm:"column:email;size:255;not null;uniqueIndex"`
	DisplayName  string `json:"display_name" gorm:"column:display_name;size:128"`
	PasswordHash string `json:"-" gorm:"column:password_hash;size:128;not null"`

	Role Role `json:"role" gorm:"column:role;size:32;not null"`

	// TenantID optionally scopes a tenant_admin to one tenant; 0 means
	// unscoped.
	TenantID int64 `json:"tenant_id,string" gorm:"column:tenant_id;index"`

	// ExtraPermissions extend the role bundle for this operator.
	ExtraPermissions database.StringList `json:"extra_permissions" gorm:"column:extra_permissions;type:json"`

	Active bool `json:"active" gorm:"column:active;not null;default:true"`

	FailedAttempts int        `json:"-" gorm:"column:failed_attempts;not null;default:0"`
	LockedUntil    *time.Time `json:"-" gorm:"column:locked_until"`

	LastLoginAt *time.Time `json:"last_login_at" gorm:"column:last_login_at"`
	LastLoginIP string     `json:"last_login_ip" gorm:"column:last_login_ip;size:45"`
}

// TableName sets the table name.
func (Operator) TableName() string {
	return "operators"
}

// LockedAt reports whether the operator is locked out at now.
func (o *Operator) LockedAt(now time.Time) bool {
	return o.LockedUntil != nil && now.Before(*o.LockedUntil)
}

// SessionStatus is the lifecycle state of a privileged session.
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionExpired    SessionStatus = "expired"
	SessionTerminated SessionStatus = "terminated"
)

// Session is one privileged login or impersonation grant. Tokens are
// opaque and never reused after termination.
type Session struct {
	repository.SharedModel

	Token string `json:"-" gorm:"column:token;size:64;not null;uniqueIndex"`

	OperatorID int64 `json:"operator_id,string" gorm:"column:operator_id;not null;index"`

	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at;not null"`

	ClientIP  string `json:"client_ip" gorm:"column:client_ip;size:45"`
	UserAgent string `json:"user_agent" gorm:"column:user_agent;size:512"`

	// ImpersonatedTenantID is set only on impersonation sessions; the
	// gateway then treats that tenant as the request tenant.
	ImpersonatedTenantID int64 `json:"impersonated_tenant_id,string" gorm:"column:impersonated_tenant_id;index"`
	ImpersonatedUserID   int64 `json:"impersonated_user_id,string" gorm:"column:impersonated_user_id"`

	Status SessionStatus `json:"status" gorm:"column:status;size:16;not null;index"`

	TerminatedAt *time.Time `json:"terminated_at" gorm:"column:terminated_at"`
}

// TableName sets the table name.
func (Session) TableName() string {
	return "operator_sessions"
}

// Impersonating reports whether this session carries an impersonation
// grant.
func (s *Session) Impersonating() bool {
	return s.ImpersonatedTenantID != 0
}

// ExpiredAt reports whether the session is past its expiry at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
