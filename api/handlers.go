package api

import (
	"strconv"

	"github.com/zooarc/menagerie/audit"
	"github.com/zooarc/menagerie/errors"
	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/privops"
	"github.com/zooarc/menagerie/records"
	"github.com/zooarc/menagerie/response"
	"github.com/zooarc/menagerie/tenant"
	"github.com/zooarc/menagerie/validator"

	"github.com/gofiber/fiber/v3"
)

/* ========================================================================
 * HTTP Handlers
 * ========================================================================
 * Thin fiber v3 handlers over the domain managers. All authorization
 * happens in the session middleware; handlers only bind, validate,
 * delegate and shape the response envelope.
 * ======================================================================== */

// Handlers bundles the dependencies of the HTTP surface.
type Handlers struct {
	mgr      *privops.Manager
	dir      *tenant.Directory
	ledger   *audit.Ledger
	recorder *audit.Recorder
	records  *records.Service
	validate *validator.Validator
	log      *logger.Logger
}

// NewHandlers wires the HTTP surface.
func NewHandlers(mgr *privops.Manager, dir *tenant.Directory, ledger *audit.Ledger, recorder *audit.Recorder, rec *records.Service, log *logger.Logger) *Handlers {
	return &Handlers{
		mgr:      mgr,
		dir:      dir,
		ledger:   ledger,
		recorder: recorder,
		records:  rec,
		validate: validator.New(),
		log:      log,
	}
}

// bind parses the JSON body into dst and runs struct validation.
func (h *Handlers) bind(c fiber.Ctx, dst any) error {
	if err := c.Bind().Body(dst); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArgument, "malformed request body", err)
	}
	if err := h.validate.Validate(dst); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArgument, err.Error(), err)
	}
	return nil
}

// pathID parses the :id route parameter.
func pathID(c fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidArgument, "invalid id")
	}
	return id, nil
}

// queryInt parses an integer query parameter, falling back to def.
func queryInt(c fiber.Ctx, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func pagination(c fiber.Ctx) (page, pageSize int) {
	return queryInt(c, "page", 1), queryInt(c, "page_size", 20)
}

// fail converts a handler error into the response envelope.
func fail(c fiber.Ctx, err error) error {
	return response.Error(c, err)
}
