package api

import (
	"time"

	"github.com/zooarc/menagerie/middleware"
	"github.com/zooarc/menagerie/response"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Auth endpoints
 * ========================================================================
 * Login, logout and impersonation live outside the session middleware
 * (login has no token yet; logout and end-impersonation stay
 * idempotent even for dead tokens, so they only need the raw bearer).
 * ======================================================================== */

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" error_msg:"required:email is required|email:email is invalid"`
	Password string `json:"password" validate:"required" error_msg:"required:password is required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates an operator and opens a session.
func (h *Handlers) Login(c fiber.Ctx) error {
	var req loginRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}

	sess, err := h.mgr.Authenticate(c.Context(), req.Email, req.Password, middleware.ClientInfoFromCtx(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

// Logout ends the bearer session. Idempotent: a dead or unknown token
// still yields success.
func (h *Handlers) Logout(c fiber.Ctx) error {
	if err := h.mgr.Logout(c.Context(), middleware.BearerToken(c), middleware.ClientInfoFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return response.Ok(c)
}

type impersonateRequest struct {
	TenantID int64 `json:"tenant_id,string" validate:"required" error_msg:"required:tenant_id is required"`
	UserID   int64 `json:"user_id,string"`
	// DurationMinutes is clamped server-side to the allowed window.
	DurationMinutes int `json:"duration_minutes"`
}

type impersonateResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	TenantID  int64     `json:"tenant_id,string"`
}

// StartImpersonation opens a time-boxed impersonation session for the
// bearer's operator.
func (h *Handlers) StartImpersonation(c fiber.Ctx) error {
	var req impersonateRequest
	if err := h.bind(c, &req); err != nil {
		return fail(c, err)
	}

	dur := time.Duration(req.DurationMinutes) * time.Minute
	sess, err := h.mgr.StartImpersonation(c.Context(), middleware.BearerToken(c), req.TenantID, req.UserID, dur, middleware.ClientInfoFromCtx(c))
	if err != nil {
		return fail(c, err)
	}
	return response.OkWithData(c, impersonateResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		TenantID:  sess.ImpersonatedTenantID,
	})
}

// EndImpersonation terminates the bearer impersonation session.
// Idempotent like Logout.
func (h *Handlers) EndImpersonation(c fiber.Ctx) error {
	if err := h.mgr.EndImpersonation(c.Context(), middleware.BearerToken(c), middleware.ClientInfoFromCtx(c)); err != nil {
		return fail(c, err)
	}
	return response.Ok(c)
}
