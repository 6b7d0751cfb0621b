package response

import (
	"net/http"

	"github.com/zooarc/menagerie/errors"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * Unified HTTP responses
 * ========================================================================
 * Standard JSON envelope for every handler. Business errors carry their
 * own HTTP status through the errors package mapping.
 * ======================================================================== */

func newResp(code int, msg string, data interface{}) *Result {
	resp := &Result{
		Code: code,
		Msg:  msg,
	}

	// data must never serialize to null
	if data == nil {
		resp.Data = &struct{}{}
	} else {
		resp.Data = data
	}

	return resp
}

func respJSONWithStatusCode(c fiber.Ctx, code int, msg string, data ...interface{}) error {
	var firstData interface{}
	if len(data) > 0 {
		firstData = data[0]
	}

	if code > http.StatusNetworkAuthenticationRequired || code < http.StatusContinue {
		code = http.StatusInternalServerError
	}

	resp := newResp(code, msg, firstData)
	return c.Status(code).JSON(resp)
}

/* ========================================================================
 * Success
 * ======================================================================== */

// Ok returns 200 with the default message.
func Ok(c fiber.Ctx) error {
	return respJSONWithStatusCode(c, http.StatusOK, "ok")
}

// OkWithData returns 200 with a payload.
func OkWithData(c fiber.Ctx, data interface{}) error {
	return respJSONWithStatusCode(c, http.StatusOK, "ok", data)
}

// OkWithMsg returns 200 with a custom message.
func OkWithMsg(c fiber.Ctx, msg string, data ...interface{}) error {
	return respJSONWithStatusCode(c, http.StatusOK, msg, data...)
}

/* ========================================================================
 * Errors
 * ======================================================================== */

// Error writes an error response. Business errors map to their HTTP
// status and keep their code and message; anything else is a 500.
func Error(c fiber.Ctx, err error) error {
	if err == nil {
		return Ok(c)
	}

	if bizErr, ok := errors.AsBizError(err); ok {
		statusCode, resp := errors.ToHTTPResponse(bizErr)
		return c.Status(statusCode).JSON(Result{
			Code: resp["code"].(int),
			Msg:  resp["msg"].(string),
			Data: &struct{}{},
		})
	}

	return respJSONWithStatusCode(c, http.StatusInternalServerError, err.Error())
}

// ErrorWithCode writes an error response with an explicit HTTP status.
func ErrorWithCode(c fiber.Ctx, code int, err error) error {
	if err == nil {
		return c.Status(code).JSON(Result{
			Code: code,
			Msg:  "ok",
			Data: &struct{}{},
		})
	}

	if bizErr, ok := errors.AsBizError(err); ok {
		statusCode, _ := errors.ToHTTPResponse(bizErr)
		if code != http.StatusInternalServerError {
			statusCode = code
		}
		return c.Status(statusCode).JSON(Result{
			Code: int(bizErr.Code),
			Msg:  bizErr.Message,
			Data: &struct{}{},
		})
	}

	return respJSONWithStatusCode(c, code, err.Error())
}

/* ========================================================================
 * Paging
 * ======================================================================== */

// PageData writes a paged listing.
func PageData(c fiber.Ctx, list interface{}, total int64, page, pageSize int) error {
	pageResult := &PageResult{
		List:     list,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	return OkWithData(c, pageResult)
}

/* ========================================================================
 * Shortcuts
 * ======================================================================== */

func BadRequest(c fiber.Ctx, msg string) error {
	return respJSONWithStatusCode(c, http.StatusBadRequest, msg)
}

func Unauthorized(c fiber.Ctx, msg string) error {
	return respJSONWithStatusCode(c, http.StatusUnauthorized, msg)
}

func Forbidden(c fiber.Ctx, msg string) error {
	return respJSONWithStatusCode(c, http.StatusForbidden, msg)
}

func NotFound(c fiber.Ctx, msg string) error {
	return respJSONWithStatusCode(c, http.StatusNotFound, msg)
}

func InternalError(c fiber.Ctx, msg string) error {
	return respJSONWithStatusCode(c, http.StatusInternalServerError, msg)
}

func ServiceUnavailable(c fiber.Ctx, msg string) error {
	return respJSONWithStatusCode(c, http.StatusServiceUnavailable, msg)
}
