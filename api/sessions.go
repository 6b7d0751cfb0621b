package api

import (
	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/response"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Session administration endpoints
 * ======================================================================== */

// ListSessions pages through the sessions of one operator.
func (h *Handlers) ListSessions(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	page, pageSize := pagination(c)
	res, err := h.mgr.ListSessions(c.Context(), id, page, pageSize)
	if err != nil {
		return fail(c, err)
	}
	return response.PageData(c, res.List, res.Total, res.Page, res.PageSize)
}

type terminateAllResponse struct {
	Terminated int `json:"terminated"`
}

// TerminateAllSessions revokes every active session of the target
// operator. Each termination is audited individually.
func (h *Handlers) TerminateAllSessions(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	act, err := actor(c)
	if err != nil {
		return fail(c, err)
	}

	n, err := h.mgr.TerminateAllSessions(c.Context(), act, id, middleware.ClientInfoFromCtx(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, terminateAllResponse{Terminated: n})
}
