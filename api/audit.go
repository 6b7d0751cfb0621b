package api

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/response"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Audit ledger endpoints
 * ========================================================================
 * Read-only: the ledger has no mutation surface. Export buffers the
 * filtered entries and ships them as a download.
 * ======================================================================== */

func auditFilter(c fiber.Ctx) (audit.Filter, error) {
	page, pageSize := pagination(c)
	f := audit.Filter{
		Operation:  c.Query("operation"),
		EntityType: c.Query("entity_type"),
		Severity:   audit.Severity(c.Query("severity")),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := c.Query("operator_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, errors.New(errors.ErrCodeInvalidArgument, "invalid operator_id")
		}
		f.OperatorID = id
	}
	if raw := c.Query("tenant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, errors.New(errors.ErrCodeInvalidArgument, "invalid tenant_id")
		}
		f.TenantID = id
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errors.New(errors.ErrCodeInvalidArgument, "invalid from time, want RFC3339")
		}
		f.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errors.New(errors.ErrCodeInvalidArgument, "invalid to time, want RFC3339")
		}
		f.To = t
	}
	return f, nil
}

// ListAuditEntries pages through the ledger.
func (h *Handlers) ListAuditEntries(c fiber.Ctx) error {
	f, err := auditFilter(c)
	if err != nil {
		return fail(c, err)
	}
	res, err := h.ledger.Query(c.Context(), f)
	if err != nil {
		return fail(c, err)
	}
	return response.PageData(c, res.List, res.Total, res.Page, res.PageSize)
}

// ExportAuditEntries streams the filtered ledger as json or csv.
func (h *Handlers) ExportAuditEntries(c fiber.Ctx) error {
	f, err := auditFilter(c)
	if err != nil {
		return fail(c, err)
	}
	format := c.Query("format", audit.FormatJSON)

	var buf bytes.Buffer
	if err := h.ledger.Export(c.Context(), f, format, &buf); err != nil {
		return fail(c, err)
	}

	contentType := fiber.MIMEApplicationJSONCharsetUTF8
	if format == audit.FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="audit-%s.%s"`, time.Now().UTC().Format("20060102T150405Z"), format))
	return c.Send(buf.Bytes())
}

// AuditStatistics aggregates the ledger over a time window.
func (h *Handlers) AuditStatistics(c fiber.Ctx) error {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fail(c, errors.New(errors.ErrCodeInvalidArgument, "invalid from time, want RFC3339"))
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fail(c, errors.New(errors.ErrCodeInvalidArgument, "invalid to time, want RFC3339"))
		}
		to = t
	}
	var tenantID int64
	if raw := c.Query("tenant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fail(c, errors.New(errors.ErrCodeInvalidArgument, "invalid tenant_id"))
		}
		tenantID = id
	}

	stats, err := h.ledger.Statistics(c.Context(), from, to, tenantID)
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, stats)
}

type integrityResponse struct {
	ID    int64  `json:"id,string"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// VerifyAuditEntry recomputes one entry's integrity hash.
func (h *Handlers) VerifyAuditEntry(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.ledger.ValidateIntegrity(c.Context(), id); err != nil {
		if errors.Is(err, errors.ErrIntegrityMismatch) {
			return response.OkWithData(c, integrityResponse{ID: id, Valid: false, Error: err.Error()})
		}
		return fail(c, err)
	}
	return response.OkWithData(c, integrityResponse{ID: id, Valid: true})
}
