package errors

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v3"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

/* ========================================================================
 * Menagerie Error Package - unified error handling
 * ========================================================================
 * Defines business error codes and wrapping/conversion helpers.
 * General codes follow the gRPC status code taxonomy; the 2xxx range
 * carries tenant-isolation and privileged-access outcomes that clients
 * must be able to distinguish mechanically.
 * ======================================================================== */

// ErrorCode is a machine-readable business error code.
type ErrorCode int

const (
	// General errors (1xxx)
	ErrCodeUnknown          ErrorCode = 1000
	ErrCodeInvalidArgument  ErrorCode = 1001
	ErrCodeNotFound         ErrorCode = 1002
	ErrCodeAlreadyExists    ErrorCode = 1003
	ErrCodePermissionDenied ErrorCode = 1004
	ErrCodeUnauthenticated  ErrorCode = 1005
	ErrCodeInternal         ErrorCode = 1006
	ErrCodeUnavailable      ErrorCode = 1007
	ErrCodeTimeout          ErrorCode = 1008
	ErrCodeCanceled         ErrorCode = 1009

	// Tenant isolation and privileged access (2xxx)
	ErrCodeTenantRequired    ErrorCode = 2001 // no active tenant resolved for the request
	ErrCodeCrossTenantWrite  ErrorCode = 2002 // persisted tenant id disagrees with the request tenant
	ErrCodeOperatorLocked    ErrorCode = 2003 // too many failed logins, locked until expiry
	ErrCodeSessionExpired    ErrorCode = 2004 // privileged session past its expiry
	ErrCodeSessionTerminated ErrorCode = 2005 // privileged session revoked or logged out
	ErrCodeIntegrityMismatch ErrorCode = 2006 // audit entry hash does not recompute; tampering suspected
	ErrCodeTenantSuspended   ErrorCode = 2007 // tenant exists but is deactivated
)

// ========================================================================
// Business error type
// ========================================================================

// BizError carries a code, a message and an optional cause.
type BizError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *BizError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Is matches BizErrors by code so sentinel values work with errors.Is.
func (e *BizError) Is(target error) bool {
	t, ok := target.(*BizError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Unwrap supports errors.Is and errors.As chains.
func (e *BizError) Unwrap() error {
	return e.Cause
}

// ========================================================================
// Constructors
// ========================================================================

// New creates a business error.
func New(code ErrorCode, message string) *BizError {
	return &BizError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps a cause with a code and message.
func Wrap(code ErrorCode, message string, cause error) *BizError {
	return &BizError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps a cause with a formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *BizError {
	return &BizError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// ========================================================================
// Predefined errors (sentinels for errors.Is)
// ========================================================================

var (
	ErrInvalidArgument  = New(ErrCodeInvalidArgument, "invalid argument")
	ErrNotFound         = New(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = New(ErrCodeAlreadyExists, "resource already exists")
	ErrPermissionDenied = New(ErrCodePermissionDenied, "permission denied")
	ErrUnauthenticated  = New(ErrCodeUnauthenticated, "unauthenticated")
	ErrInternal         = New(ErrCodeInternal, "internal error")
	ErrUnavailable      = New(ErrCodeUnavailable, "service unavailable")
	ErrTimeout          = New(ErrCodeTimeout, "timeout")
	ErrCanceled         = New(ErrCodeCanceled, "canceled")

	ErrTenantRequired    = New(ErrCodeTenantRequired, "tenant required")
	ErrCrossTenantWrite  = New(ErrCodeCrossTenantWrite, "cross-tenant write rejected")
	ErrOperatorLocked    = New(ErrCodeOperatorLocked, "operator locked")
	ErrSessionExpired    = New(ErrCodeSessionExpired, "session expired")
	ErrSessionTerminated = New(ErrCodeSessionTerminated, "session terminated")
	ErrIntegrityMismatch = New(ErrCodeIntegrityMismatch, "integrity mismatch")
	ErrTenantSuspended   = New(ErrCodeTenantSuspended, "tenant suspended")
)

// ========================================================================
// Inspection helpers
// ========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Code extracts the business code from an error chain.
func Code(err error) ErrorCode {
	var bizErr *BizError
	if errors.As(err, &bizErr) {
		return bizErr.Code
	}
	return ErrCodeUnknown
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return Code(err) == ErrCodeNotFound
}

// AsBizError converts err to a *BizError if one is in the chain.
func AsBizError(err error) (*BizError, bool) {
	if err == nil {
		return nil, false
	}
	var bizErr *BizError
	if errors.As(err, &bizErr) {
		return bizErr, true
	}
	return nil, false
}

// ========================================================================
// gRPC conversion
// ========================================================================

var errorCodeToGRPCCode = map[ErrorCode]codes.Code{
	ErrCodeUnknown:          codes.Unknown,
	ErrCodeInvalidArgument:  codes.InvalidArgument,
	ErrCodeNotFound:         codes.NotFound,
	ErrCodeAlreadyExists:    codes.AlreadyExists,
	ErrCodePermissionDenied: codes.PermissionDenied,
	ErrCodeUnauthenticated:  codes.Unauthenticated,
	ErrCodeInternal:         codes.Internal,
	ErrCodeUnavailable:      codes.Unavailable,
	ErrCodeTimeout:          codes.DeadlineExceeded,
	ErrCodeCanceled:         codes.Canceled,

	ErrCodeTenantRequired:    codes.Unauthenticated,
	ErrCodeCrossTenantWrite:  codes.PermissionDenied,
	ErrCodeOperatorLocked:    codes.PermissionDenied,
	ErrCodeSessionExpired:    codes.Unauthenticated,
	ErrCodeSessionTerminated: codes.Unauthenticated,
	ErrCodeIntegrityMismatch: codes.DataLoss,
	ErrCodeTenantSuspended:   codes.PermissionDenied,
}

// ToGRPCError converts a business error into a gRPC status error.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	var bizErr *BizError
	if errors.As(err, &bizErr) {
		grpcCode, ok := errorCodeToGRPCCode[bizErr.Code]
		if !ok {
			grpcCode = codes.Unknown
		}
		return status.Error(grpcCode, bizErr.Message)
	}

	return status.Error(codes.Internal, err.Error())
}

// FromGRPCError converts a gRPC status error into a business error.
func FromGRPCError(err error) *BizError {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return Wrap(ErrCodeUnknown, "unknown error", err)
	}

	var code ErrorCode
	switch st.Code() {
	case codes.InvalidArgument:
		code = ErrCodeInvalidArgument
	case codes.NotFound:
		code = ErrCodeNotFound
	case codes.AlreadyExists:
		code = ErrCodeAlreadyExists
	case codes.PermissionDenied:
		code = ErrCodePermissionDenied
	case codes.Unauthenticated:
		code = ErrCodeUnauthenticated
	case codes.Unavailable:
		code = ErrCodeUnavailable
	case codes.DeadlineExceeded:
		code = ErrCodeTimeout
	case codes.Canceled:
		code = ErrCodeCanceled
	default:
		code = ErrCodeInternal
	}

	return New(code, st.Message())
}

// ========================================================================
// HTTP conversion
// ========================================================================

var httpStatusCode = map[ErrorCode]int{
	ErrCodeUnknown:          500,
	ErrCodeInvalidArgument:  400,
	ErrCodeNotFound:         404,
	ErrCodeAlreadyExists:    409,
	ErrCodePermissionDenied: 403,
	ErrCodeUnauthenticated:  401,
	ErrCodeInternal:         500,
	ErrCodeUnavailable:      503,
	ErrCodeTimeout:          504,
	ErrCodeCanceled:         499,

	ErrCodeTenantRequired:    401,
	ErrCodeCrossTenantWrite:  403,
	ErrCodeOperatorLocked:    423,
	ErrCodeSessionExpired:    401,
	ErrCodeSessionTerminated: 401,
	ErrCodeIntegrityMismatch: 500,
	ErrCodeTenantSuspended:   403,
}

var (
	httpStatusMu         sync.RWMutex
	httpStatusOverrides  = make(map[ErrorCode]int)
	httpStatusResolverFn func(ErrorCode) (int, bool)
)

// RegisterHTTPStatus overrides the HTTP status for a business code.
func RegisterHTTPStatus(code ErrorCode, status int) {
	httpStatusMu.Lock()
	defer httpStatusMu.Unlock()
	httpStatusOverrides[code] = status
}

// SetHTTPStatusResolver installs a custom status resolver.
// A (status, true) return wins; otherwise the default mapping applies.
func SetHTTPStatusResolver(resolver func(ErrorCode) (int, bool)) {
	httpStatusMu.Lock()
	defer httpStatusMu.Unlock()
	httpStatusResolverFn = resolver
}

func resolveHTTPStatus(code ErrorCode) (int, bool) {
	httpStatusMu.RLock()
	if status, ok := httpStatusOverrides[code]; ok {
		httpStatusMu.RUnlock()
		return status, true
	}
	resolver := httpStatusResolverFn
	httpStatusMu.RUnlock()

	if resolver != nil {
		if status, ok := resolver(code); ok {
			return status, true
		}
	}
	return 0, false
}

// ToHTTPResponse converts a business error into an HTTP status and body.
func ToHTTPResponse(err error) (int, fiber.Map) {
	if err == nil {
		return 200, fiber.Map{"code": 0, "msg": "success"}
	}

	var bizErr *BizError
	if errors.As(err, &bizErr) {
		statusCode, ok := resolveHTTPStatus(bizErr.Code)
		if !ok {
			statusCode, ok = httpStatusCode[bizErr.Code]
			if !ok {
				statusCode = 500
			}
		}
		return statusCode, fiber.Map{
			"code": int(bizErr.Code),
			"msg":  bizErr.Message,
		}
	}

	return 500, fiber.Map{
		"code": 500,
		"msg":  "internal server error",
	}
}
