package validator

import (
	"fmt"
	"strings"
)

/* ========================================================================
 * Validation error types
 * ======================================================================== */

const (
	// tagCustom is the struct tag carrying per-rule error messages.
	tagCustom = "error_msg"
	// ruleSeparator separates rule:message pairs inside the tag.
	ruleSeparator = "|"
	// keyValueSep separates a rule name from its message.
	keyValueSep = ":"
)

// ValidationError groups validation messages by field.
//
//	type LoginRequest struct {
//	    Email    string `validate:"required,email" error_msg:"required:email is required|email:email is invalid"`
//	    Password string `validate:"required,min=12" error_msg:"required:password is required|min:password too short"`
//	}
type ValidationError struct {
	Errors map[string][]string // field name -> messages
}

// Error implements the error interface.
func (v ValidationError) Error() string {
	var sb strings.Builder
	for field, msgs := range v.Errors {
		sb.WriteString(fmt.Sprintf("%s: %s; ", field, strings.Join(msgs, ", ")))
	}
	return sb.String()
}

// HasErrors reports whether any field failed.
func (v ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add appends a message for a field.
func (v *ValidationError) Add(field, message string) {
	if v.Errors == nil {
		v.Errors = make(map[string][]string)
	}
	v.Errors[field] = append(v.Errors[field], message)
}

// Get returns the messages recorded for a field.
func (v *ValidationError) Get(field string) []string {
	if v.Errors == nil {
		return nil
	}
	return v.Errors[field]
}
