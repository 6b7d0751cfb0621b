package api

import (
	"time"

	"github.com/zooarc/menagerie/records"
	"github.com/zooarc/menagerie/response"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Specimen endpoints
 * ========================================================================
 * The service reads the tenant context injected by the session (or
 * tenant resolution) middleware; every query is scoped there, so the
 * handlers never touch tenant ids.
 * ======================================================================== */

type specimenRequest struct {
	Name       string     `json:"name" validate:"required,max=128" error_msg:"required:name is required|max:name too long"`
	Species    string     `json:"species" validate:"required,max=128" error_msg:"required:species is required|max:species too long"`
	Enclosure  string     `json:"enclosure" validate:"max=64" error_msg:"max:enclosure too long"`
	Sex        string     `json:"sex" validate:"omitempty,oneof=male female unknown" error_msg:"oneof:sex must be male, female or unknown"`
	BornAt     *time.Time `json:"born_at"`
	AcquiredAt *time.Time `json:"acquired_at"`
	Notes      string     `json:"notes"`
}

// CreateSpecimen adds an animal record to the request tenant.
func (h *Handlers) CreateSpecimen(c fiber.Ctx) error {
	var req specimenRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}

	sp := &records.Specimen{
		Name:       req.Name,
		Species:    req.Species,
		Enclosure:  req.Enclosure,
		Sex:        req.Sex,
		BornAt:     req.BornAt,
		AcquiredAt: req.AcquiredAt,
		Notes:      req.Notes,
	}
	if err := h.records.Create(c.Context(), sp); err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, sp)
}

// GetSpecimen fetches one record within the request tenant.
func (h *Handlers) GetSpecimen(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	sp, err := h.records.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, sp)
}

// ListSpecimens pages through the request tenant's records.
func (h *Handlers) ListSpecimens(c fiber.Ctx) error {
	page, pageSize := pagination(c)
	res, err := h.records.List(c.Context(), records.ListFilter{
		Search:    c.Query("search"),
		Species:   c.Query("species"),
		Enclosure: c.Query("enclosure"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return fail(c, err)
	}
	return response.PageData(c, res.List, res.Total, res.Page, res.PageSize)
}

type updateSpecimenRequest struct {
	Name       *string    `json:"name" validate:"omitempty,max=128" error_msg:"max:name too long"`
	Species    *string    `json:"species" validate:"omitempty,max=128" error_msg:"max:species too long"`
	Enclosure  *string    `json:"enclosure" validate:"omitempty,max=64" error_msg:"max:enclosure too long"`
	Sex        *string    `json:"sex" validate:"omitempty,oneof=male female unknown" error_msg:"oneof:sex must be male, female or unknown"`
	BornAt     *time.Time `json:"born_at"`
	AcquiredAt *time.Time `json:"acquired_at"`
	Notes      *string    `json:"notes"`
}

// UpdateSpecimen applies a partial update within the request tenant.
func (h *Handlers) UpdateSpecimen(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req updateSpecimenRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Species != nil {
		updates["species"] = *req.Species
	}
	if req.Enclosure != nil {
		updates["enclosure"] = *req.Enclosure
	}
	if req.Sex != nil {
		updates["sex"] = *req.Sex
	}
	if req.BornAt != nil {
		updates["born_at"] = *req.BornAt
	}
	if req.AcquiredAt != nil {
		updates["acquired_at"] = *req.AcquiredAt
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	sp, err := h.records.Update(c.Context(), id, updates)
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, sp)
}

// DeleteSpecimen removes one record within the request tenant.
func (h *Handlers) DeleteSpecimen(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.records.Delete(c.Context(), id); err != nil {
		return fail(c, err)
	}
	return response.Ok(c)
}
