package audit

import (
	"encoding/json"
	"time"

	"github.com/zooarc/menagerie/repository"
)

/* ========================================================================
 * Audit Entry model
 * ========================================================================
 * Append-only. Entries are keyed by a monotonically increasing snowflake
 * id; no update or delete surface exists anywhere in this package. The
 * integrity hash binds the payload fields to a server-held secret.
 * ======================================================================== */

// Severity grades an audit entry.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Operation names recorded by the privileged surface.
const (
	OpOperatorLogin       = "operator.login"
	OpOperatorLoginFailed = "operator.login_failed"
	OpOperatorLockout     = "operator.lockout"
	OpOperatorLogout      = "operator.logout"
	OpImpersonationStart  = "impersonation.start"
	OpImpersonationEnd    = "impersonation.end"
	OpSessionTerminate    = "session.terminate"
	OpOperatorCreate      = "operator.create"
	OpOperatorUpdate      = "operator.update"
	OpTenantCreate        = "tenant.create"
	OpTenantUpdate        = "tenant.update"
	OpTenantSuspend       = "tenant.suspend"
	OpTenantRestore       = "tenant.restore"
	OpRecordCreate        = "record.create"
	OpRecordUpdate        = "record.update"
	OpRecordDelete        = "record.delete"
)

// Entry is one immutable audit record.
type Entry struct {
	repository.SharedModel

	Operation  string `json:"operation" gorm:"column:operation;size:64;not null;index"`
	EntityType string `json:"entity_type" gorm:"column:entity_type;size:64;index"`
	EntityID   string `json:"entity_id" gorm:"column:entity_id;size:64;index"`

	OperatorID    int64  `json:"operator_id,string" gorm:"column:operator_id;index"`
	OperatorEmail string `json:"operator_email" gorm:"column:operator_email;size:255"`

	// CorrelationID ties together all entries of one logical request.
	CorrelationID string `json:"correlation_id" gorm:"column:correlation_id;size:36;index"`

	// OccurredAt is the event time used in the integrity hash; it is set
	// once at append and never recomputed.
	OccurredAt time.Time `json:"occurred_at" gorm:"column:occurred_at;index"`

	TenantID             int64 `json:"tenant_id,string" gorm:"column:tenant_id;index"`
	ImpersonatedTenantID int64 `json:"impersonated_tenant_id,string" gorm:"column:impersonated_tenant_id"`

	ClientIP  string `json:"client_ip" gorm:"column:client_ip;size:45"`
	UserAgent string `json:"user_agent" gorm:"column:user_agent;size:512"`

	// Before/After are opaque serialized snapshots of the entity.
	Before string `json:"before,omitempty" gorm:"column:before_snapshot;type:text"`
	After  string `json:"after,omitempty" gorm:"column:after_snapshot;type:text"`

	Severity Severity `json:"severity" gorm:"column:severity;size:16;not null;index"`

	// IntegrityHash is the hex HMAC-SHA256 over the payload fields.
	IntegrityHash string `json:"integrity_hash" gorm:"column:integrity_hash;size:64;not null"`
}

// TableName sets the table name.
func (Entry) TableName() string {
	return "audit_entries"
}

// Snapshot serializes v for a before/after field; "" on nil.
func Snapshot(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
