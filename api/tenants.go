package api

import (
	"strconv"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/response"
	"github.com/zooarc/menagerie/tenant"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Tenant directory endpoints
 * ========================================================================
 * Directory mutations are privileged and audited here, with the
 * operator taken from the session middleware. The entry is recorded
 * before the response is written.
 * ======================================================================== */

// auditTenant records a directory mutation against the acting operator.
func (h *Handlers) auditTenant(c fiber.Ctx, operation string, sev audit.Severity, tenantID int64, before, after string) {
	e := &audit.Entry{
		Operation:  operation,
		EntityType: "tenant",
		EntityID:   strconv.FormatInt(tenantID, 10),
		TenantID:   tenantID,
		Severity:   sev,
		Before:     before,
		After:      after,
	}
	if op, ok := middleware.OperatorFromCtx(c); ok {
		e.OperatorID = op.ID
		e.OperatorEmail = op.Email
	}
	client := middleware.ClientInfoFromCtx(c)
	e.ClientIP = client.IP
	e.UserAgent = client.UserAgent
	h.recorder.Record(c.Context(), e)
}

type createTenantRequest struct {
	Name        string `json:"name" validate:"required,max=64" error_msg:"required:name is required|max:name too long"`
	DisplayName string `json:"display_name" validate:"max=128" error_msg:"max:display_name too long"`
	Domain      string `json:"domain" validate:"max=255" error_msg:"max:domain too long"`
	Theme       string `json:"theme" validate:"max=32" error_msg:"max:theme too long"`
}

// CreateTenant registers a new tenant.
func (h *Handlers) CreateTenant(c fiber.Ctx) error {
	var req createTenantRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}

	t := &tenant.Tenant{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Domain:      req.Domain,
		Theme:       req.Theme,
		Active:      true,
	}
	if err := h.dir.Create(c.Context(), t); err != nil {
		return fail(c, err)
	}
	h.auditTenant(c, audit.OpTenantCreate, audit.SeverityInfo, t.ID, "", audit.Snapshot(t))
	return response.OkWithData(c, t)
}

// GetTenant fetches one tenant by id.
func (h *Handlers) GetTenant(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	t, err := h.dir.GetByID(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, t)
}

// ListTenants pages through the directory.
func (h *Handlers) ListTenants(c fiber.Ctx) error {
	page, pageSize := pagination(c)
	f := tenant.ListFilter{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}
	switch c.Query("active") {
	case "true":
		active := true
		f.Active = &active
	case "false":
		active := false
		f.Active = &active
	}

	res, err := h.dir.List(c.Context(), f)
	if err != nil {
		return fail(c, err)
	}
	return response.PageData(c, res.List, res.Total, res.Page, res.PageSize)
}

type updateTenantRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=128" error_msg:"max:display_name too long"`
	Domain      *string `json:"domain" validate:"omitempty,max=255" error_msg:"max:domain too long"`
	Theme       *string `json:"theme" validate:"omitempty,max=32" error_msg:"max:theme too long"`
}

// UpdateTenant applies a partial update. Name is immutable; activation
// changes go through Suspend/Restore so the distinct operations show
// up in the audit trail.
func (h *Handlers) UpdateTenant(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req updateTenantRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}

	before, err := h.dir.GetByID(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}

	updates := map[string]any{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Domain != nil {
		updates["domain"] = *req.Domain
	}
	if req.Theme != nil {
		updates["theme"] = *req.Theme
	}

	if err := h.dir.Update(c.Context(), id, updates); err != nil {
		return fail(c, err)
	}
	after, err := h.dir.GetByID(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	h.auditTenant(c, audit.OpTenantUpdate, audit.SeverityInfo, id, audit.Snapshot(before), audit.Snapshot(after))
	return response.OkWithData(c, after)
}

// SuspendTenant deactivates a tenant; its users stop resolving.
func (h *Handlers) SuspendTenant(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.dir.Suspend(c.Context(), id); err != nil {
		return fail(c, err)
	}
	h.auditTenant(c, audit.OpTenantSuspend, audit.SeverityWarning, id, "", "")
	return response.Ok(c)
}

// RestoreTenant reactivates a suspended tenant.
func (h *Handlers) RestoreTenant(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.dir.Restore(c.Context(), id); err != nil {
		return fail(c, err)
	}
	h.auditTenant(c, audit.OpTenantRestore, audit.SeverityInfo, id, "", "")
	return response.Ok(c)
}
