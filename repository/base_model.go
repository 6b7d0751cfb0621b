package repository

import (
	"time"

	"github.com/zooarc/menagerie/utils/id-generator/snowflake"

	"gorm.io/gorm"
	"gorm.io/plugin/soft_delete"
)

/* ========================================================================
 * Base Models
 * ========================================================================
 * Common fields for all persisted models. Tenant-owned business records
 * embed TenantModel; shared directory records (tenants, operators,
 * sessions, audit entries) embed BaseModel and opt out of tenant
 * enforcement via TenantIgnored.
 * ======================================================================== */

// BaseModel carries the primary key, timestamps and soft-delete flag.
type BaseModel struct {
	ID         int64                 `json:"id,string" gorm:"primaryKey"`
	CreateTime time.Time             `json:"create_time" gorm:"column:create_time;autoCreateTime"`
	UpdateTime time.Time             `json:"update_time" gorm:"column:update_time;autoUpdateTime"`
	Deleted    soft_delete.DeletedAt `json:"-" gorm:"column:deleted;default:0;softDelete:flag"`
}

// BeforeCreate assigns a snowflake id when none is set.
// Multi-instance deployments must set SNOWFLAKE_NODE_ID per instance.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == 0 {
		m.ID = snowflake.Generate()
	}
	return nil
}

// TenantModel is embedded by every tenant-owned record. The tenant id is
// stamped exactly once at creation and never mutated afterwards.
type TenantModel struct {
	BaseModel
	TenantID int64 `json:"tenant_id,string" gorm:"column:tenant_id;index;not null"`
}

// GetTenantID returns the owning tenant id.
func (m *TenantModel) GetTenantID() int64 {
	return m.TenantID
}

// setTenantID is only reachable through the gateway's create path.
func (m *TenantModel) setTenantID(id int64) {
	m.TenantID = id
}

// TenantOwned is implemented by models embedding TenantModel. The gateway
// uses it to stamp creates and to detect cross-tenant writes structurally,
// without relying on per-entity filter registration.
type TenantOwned interface {
	GetTenantID() int64
	setTenantID(id int64)
}

// TenantIgnorable marks models that are shared across tenants and bypass
// tenant enforcement (the tenant directory itself, operators, sessions,
// audit entries).
type TenantIgnorable interface {
	TenantIgnored() bool
}

// SharedModel is embedded by directory-level models that are not owned by
// any tenant.
type SharedModel struct {
	BaseModel
}

// TenantIgnored implements TenantIgnorable.
func (SharedModel) TenantIgnored() bool { return true }
