package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

/* ========================================================================
 * Tenant Directory
 * ========================================================================
 * Admin-facing registry of tenants. Name and domain are unique among
 * active tenants; suspended tenants keep their rows so audit entries and
 * owned records stay attributable. Only Suspend exists, never delete.
 * ======================================================================== */

// ListFilter narrows directory listings.
type ListFilter struct {
	// Search matches name, display name or domain, case-insensitive.
	Search string
	// Active filters by the active flag when set.
	Active *bool
	// CreatedFrom/CreatedTo bound the creation time.
	CreatedFrom time.Time
	CreatedTo   time.Time

	Page     int
	PageSize int
}

// Directory manages the tenant registry.
type Directory struct {
	repo repository.Repository[Tenant]
	log  *logger.Logger
}

// NewDirectory creates a Directory.
func NewDirectory(db *gorm.DB, log *logger.Logger) *Directory {
	if log == nil {
		log = logger.NewNop()
	}
	return &Directory{
		repo: repository.NewRepository[Tenant](db, log),
		log:  log,
	}
}

// GetByID returns a tenant by id, including suspended ones.
func (d *Directory) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	return d.repo.FindByID(ctx, id)
}

// GetByDomain returns the active tenant registered for an email domain.
func (d *Directory) GetByDomain(ctx context.Context, domain string) (*Tenant, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, errors.ErrNotFound
	}
	return d.repo.FindOne(ctx, "domain = ? AND active = ?", domain, true)
}

// GetByName returns the tenant with the given machine name, any state.
func (d *Directory) GetByName(ctx context.Context, name string) (*Tenant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, errors.ErrNotFound
	}
	return d.repo.FindOne(ctx, "name = ?", name)
}

// List returns one page of tenants matching filter.
func (d *Directory) List(ctx context.Context, filter ListFilter) (*repository.PageResult[Tenant], error) {
	var (
		conds []string
		args  []any
	)

	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(display_name) LIKE ? OR LOWER(domain) LIKE ?)")
		args = append(args, like, like, like)
	}
	if filter.Active != nil {
		conds = append(conds, "active = ?")
		args = append(args, *filter.Active)
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "create_time >= ?")
		args = append(args, filter.CreatedFrom)
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "create_time <= ?")
		args = append(args, filter.CreatedTo)
	}

	query := strings.Join(conds, " AND ")
	opts := []repository.Option{repository.WithOrderBy("create_time DESC")}

	return d.repo.FindPageWithOpts(ctx, filter.Page, filter.PageSize, query, opts, args...)
}

// Create registers a new tenant. Name and domain must be unique among
// active tenants.
func (d *Directory) Create(ctx context.Context, t *Tenant) error {
	if t == nil {
		return errors.ErrInvalidArgument
	}

	t.Name = strings.ToLower(strings.TrimSpace(t.Name))
	t.Domain = normalizeDomain(t.Domain)
	if t.Name == "" {
		return errors.New(errors.ErrCodeInvalidArgument, "tenant name is required")
	}

	if err := d.checkUnique(ctx, 0, t.Name, t.Domain); err != nil {
		return err
	}

	t.Active = true
	if err := d.repo.Create(ctx, t); err != nil {
		return err
	}

	d.log.Info("tenant created",
		zap.Int64("tenant_id", t.ID),
		zap.String("name", t.Name),
		zap.String("domain", t.Domain),
	)
	return nil
}

// Update changes mutable tenant fields. The active flag is only changed
// through Suspend/Restore.
func (d *Directory) Update(ctx context.Context, id int64, updates map[string]any) error {
	existing, err := d.GetByID(ctx, id)
	if err != nil {
		return err
	}

	name := existing.Name
	if v, ok := updates["name"].(string); ok {
		name = strings.ToLower(strings.TrimSpace(v))
		updates["name"] = name
	}
	domain := existing.Domain
	if v, ok := updates["domain"].(string); ok {
		domain = normalizeDomain(v)
		updates["domain"] = domain
	}

	if err := d.checkUnique(ctx, id, name, domain); err != nil {
		return err
	}

	return d.repo.UpdateByID(ctx, id, updates,
		"name", "display_name", "domain", "settings", "theme")
}

// Suspend deactivates a tenant. Resolution and data access for the tenant
// stop; the row and all owned records remain.
func (d *Directory) Suspend(ctx context.Context, id int64) error {
	if err := d.repo.UpdateByID(ctx, id, map[string]any{"active": false}, "active"); err != nil {
		return err
	}
	d.log.Warn("tenant suspended", zap.Int64("tenant_id", id))
	return nil
}

// Restore reactivates a suspended tenant, re-checking uniqueness against
// tenants activated since the suspension.
func (d *Directory) Restore(ctx context.Context, id int64) error {
	t, err := d.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.Active {
		return nil
	}

	if err := d.checkUnique(ctx, id, t.Name, t.Domain); err != nil {
		return err
	}

	if err := d.repo.UpdateByID(ctx, id, map[string]any{"active": true}, "active"); err != nil {
		return err
	}
	d.log.Info("tenant restored", zap.Int64("tenant_id", id))
	return nil
}

// checkUnique enforces name/domain uniqueness among active tenants,
// excluding the tenant being updated.
func (d *Directory) checkUnique(ctx context.Context, excludeID int64, name, domain string) error {
	if name != "" {
		exists, err := d.repo.Exists(ctx, "name = ? AND active = ? AND id <> ?", name, true, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return errors.New(errors.ErrCodeAlreadyExists, "tenant name already in use")
		}
	}

	if domain != "" {
		exists, err := d.repo.Exists(ctx, "domain = ? AND active = ? AND id <> ?", domain, true, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return errors.New(errors.ErrCodeAlreadyExists, "tenant domain already in use")
		}
	}

	return nil
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
