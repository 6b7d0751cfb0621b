package tenant

import (
	"github.com/zooarc/menagerie/database"
	"github.com/zooarc/menagerie/repository"
)

/* ========================================================================
 * Tenant model
 * ========================================================================
 * The tenant directory itself is not tenant-owned: it embeds SharedModel
 * and bypasses tenant scoping. Tenants are never hard-deleted; Suspend
 * flips the active flag so audit references stay resolvable.
 * ======================================================================== */

// Tenant is one organization in the directory.
type Tenant struct {
	repository.SharedModel

	// Name is the short machine name, also matched against host subdomains.
	Name string `json:"name" gorm:"column:name;size:64;not null;index"`

	// DisplayName is shown in UIs.
	DisplayName string `json:"display_name" gorm:"column:display_name;size:128"`

	// Domain is the registered email domain, empty when none.
	Domain string `json:"domain" gorm:"column:domain;size:255;index"`

	// Active is cleared by Suspend and restored by Restore.
	Active bool `json:"active" gorm:"column:active;not null;default:true"`

	// Settings holds locale, feature toggles and quotas.
	Settings database.JSONB `json:"settings" gorm:"column:settings;type:json"`

	// Theme selects the UI theme.
	Theme string `json:"theme" gorm:"column:theme;size:32"`
}

// TableName sets the table name.
func (Tenant) TableName() string {
	return "tenants"
}

// SettingString reads a string-valued setting, "" when absent.
func (t *Tenant) SettingString(key string) string {
	if t.Settings == nil {
		return ""
	}
	if v, ok := t.Settings[key].(string); ok {
		return v
	}
	return ""
}

// FeatureEnabled reads a boolean feature toggle, false when absent.
func (t *Tenant) FeatureEnabled(name string) bool {
	if t.Settings == nil {
		return false
	}
	v, ok := t.Settings[name].(bool)
	return ok && v
}
