package records

import (
	"time"

	"github.com/zooarc/menagerie/repository"
)

/* ========================================================================
 * Specimen
 * ========================================================================
 * The animal record. Tenant-owned: every row belongs to exactly one
 * zoo and is only reachable through the scoped gateway.
 * ======================================================================== */

// Specimen is one animal in a zoo's collection.
type Specimen struct {
	repository.TenantModel
	Name       string     `json:"name" gorm:"size:128;index"`
	Species    string     `json:"species" gorm:"size:128;index"`
	Enclosure  string     `json:"enclosure" gorm:"size:64"`
	Sex        string     `json:"sex" gorm:"size:16"`
	BornAt     *time.Time `json:"born_at"`
	AcquiredAt *time.Time `json:"acquired_at"`
	Notes      string     `json:"notes" gorm:"type:text"`
}

// TableName sets the table name.
func (Specimen) TableName() string {
	return "specimens"
}
