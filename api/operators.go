package api

import (
	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/response"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Operator administration endpoints
 * ========================================================================
 * These delegate to the manager, which audits every mutation itself.
 * ======================================================================== */

// actor returns the authorized operator, or an error when the session
// middleware did not run.
func actor(c fiber.Ctx) (*privops.Operator, error) {
	op, ok := middleware.OperatorFromCtx(c)
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	return op, nil
}

type createOperatorRequest struct {
	Email            string   `json:"email" validate:"required,email" error_msg:"required:email is required|email:email is invalid"`
	DisplayName      string   `json:"display_name" validate:"max=128" error_msg:"max:display_name too long"`
	Password         string   `json:"password" validate:"required" error_msg:"required:password is required"`
	Role             string   `json:"role" validate:"required" error_msg:"required:role is required"`
	TenantID         int64    `json:"tenant_id,string"`
	ExtraPermissions []string `json:"extra_permissions"`
}

// CreateOperator registers a new operator account.
func (h *Handlers) CreateOperator(c fiber.Ctx) error {
	var req createOperatorRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}
	act, err := actor(c)
	if err != nil {
		return fail(c, err)
	}

	op, err := h.mgr.CreateOperator(c.Context(), act, privops.CreateOperatorParams{
		Email:            req.Email,
		DisplayName:      req.DisplayName,
		Password:         req.Password,
		Role:             privops.Role(req.Role),
		TenantID:         req.TenantID,
		ExtraPermissions: req.ExtraPermissions,
	}, middleware.ClientInfoFromCtx(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, op)
}

// GetOperator fetches one operator.
func (h *Handlers) GetOperator(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	op, err := h.mgr.GetOperator(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, op)
}

// ListOperators pages through operator accounts.
func (h *Handlers) ListOperators(c fiber.Ctx) error {
	page, pageSize := pagination(c)
	res, err := h.mgr.ListOperators(c.Context(), page, pageSize)
	if err != nil {
		return fail(c, err)
	}
	return response.PageData(c, res.List, res.Total, res.Page, res.PageSize)
}

type setOperatorActiveRequest struct {
	Active *bool `json:"active" validate:"required" error_msg:"required:active is required"`
}

// SetOperatorActive enables or disables an operator account.
func (h *Handlers) SetOperatorActive(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req setOperatorActiveRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}
	act, err := actor(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.mgr.SetOperatorActive(c.Context(), act, id, *req.Active, middleware.ClientInfoFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return response.Ok(c)
}
