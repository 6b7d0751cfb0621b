package records

import (
	"context"
	"strconv"
	"strings"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/repository"

	"gorm.io/gorm"
)

/* ========================================================================
 * Specimen service
 * ========================================================================
 * All data access goes through the tenant-scoped gateway: the tenant
 * in the request context decides what exists. Every mutation is audited
 * before the response is returned.
 * ======================================================================== */

// updatableColumns is the whitelist for partial updates.
var updatableColumns = []string{
	"name", "species", "enclosure", "sex", "born_at", "acquired_at", "notes",
}

// ListFilter narrows a specimen listing.
type ListFilter struct {
	Search    string
	Species   string
	Enclosure string
	Page      int
	PageSize  int
}

// Service implements specimen operations.
type Service struct {
	repo     repository.Repository[Specimen]
	recorder *audit.Recorder
	log      *logger.Logger
}

// NewService creates a Service.
func NewService(db *gorm.DB, recorder *audit.Recorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:     repository.NewRepository[Specimen](db, log),
		recorder: recorder,
		log:      log,
	}
}

// Create registers a specimen for the request's tenant.
func (s *Service) Create(ctx context.Context, sp *Specimen) error {
	if strings.TrimSpace(sp.Name) == "" {
		return errors.New(errors.ErrCodeInvalidArgument, "specimen name is required")
	}
	if strings.TrimSpace(sp.Species) == "" {
		return errors.New(errors.ErrCodeInvalidArgument, "specimen species is required")
	}

	if err := s.repo.Create(ctx, sp); err != nil {
		return err
	}

	s.audit(ctx, audit.OpRecordCreate, sp.ID, "", audit.Snapshot(sp))
	return nil
}

// Get returns one specimen of the request's tenant.
func (s *Service) Get(ctx context.Context, id int64) (*Specimen, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns one page of the tenant's specimens, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) (*repository.PageResult[Specimen], error) {
	var (
		conds []string
		args  []any
	)
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(species) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if f.Species != "" {
		conds = append(conds, "species = ?")
		args = append(args, f.Species)
	}
	if f.Enclosure != "" {
		conds = append(conds, "enclosure = ?")
		args = append(args, f.Enclosure)
	}

	opts := []repository.Option{repository.WithOrderBy("id DESC")}
	return s.repo.FindPageWithOpts(ctx, f.Page, f.PageSize, strings.Join(conds, " AND "), opts, args...)
}

// Update applies a partial update to one specimen. Only whitelisted
// columns change; identity and ownership never do.
func (s *Service) Update(ctx context.Context, id int64, updates map[string]any) (*Specimen, error) {
	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateByID(ctx, id, updates, updatableColumns...); err != nil {
		return nil, err
	}

	after, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.OpRecordUpdate, id, audit.Snapshot(before), audit.Snapshot(after))
	return after, nil
}

// Delete soft-deletes one specimen of the request's tenant.
func (s *Service) Delete(ctx context.Context, id int64) error {
	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit(ctx, audit.OpRecordDelete, id, audit.Snapshot(before), "")
	return nil
}

func (s *Service) audit(ctx context.Context, operation string, id int64, before, after string) {
	if s.recorder == nil {
		return
	}

	e := &audit.Entry{
		Operation:  operation,
		EntityType: "specimen",
		EntityID:   strconv.FormatInt(id, 10),
		Before:     before,
		After:      after,
		Severity:   audit.SeverityInfo,
	}
	if tc, ok := repository.TenantFromContext(ctx); ok {
		e.TenantID = tc.TenantID
		e.OperatorID = tc.OperatorID
		if tc.Impersonated {
			e.ImpersonatedTenantID = tc.TenantID
		}
	}
	s.recorder.Record(ctx, e)
}
