package validator

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

/* ========================================================================
 * Struct validation with custom messages
 * ========================================================================
 * Wraps go-playground/validator. The error_msg tag maps each failed
 * rule to a human-readable message; nested structs validate
 * recursively, with field paths joined by dots.
 * ======================================================================== */

// Validator validates request structs.
type Validator struct {
	validator     *validator.Validate
	typeCache     *typeCache
	errorMsgCache map[string]map[string]string
	mu            sync.RWMutex
}

// New creates a Validator.
func New() *Validator {
	return &Validator{
		validator:     validator.New(),
		typeCache:     newTypeCache(),
		errorMsgCache: make(map[string]map[string]string),
	}
}

// Validate validates a struct and returns a *ValidationError with the
// messages grouped per field, or nil when everything passes.
func (v *Validator) Validate(s interface{}) error {
	if s == nil {
		return nil
	}

	validationErrors := &ValidationError{Errors: make(map[string][]string)}
	v.validateRecursive(s, "", validationErrors)

	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

func (v *Validator) validateRecursive(s interface{}, prefix string, validationErrors *ValidationError) {
	value := reflect.ValueOf(s)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	if value.Kind() != reflect.Struct {
		return
	}

	fields := v.typeCache.getFieldsInfo(value.Type())

	for _, fieldInfo := range fields {
		fieldValue := value.FieldByName(fieldInfo.name)
		fullFieldName := fieldInfo.name
		if prefix != "" {
			fullFieldName = fmt.Sprintf("%s.%s", prefix, fieldInfo.name)
		}

		if fieldInfo.isStruct {
			if fieldInfo.isPtr {
				if fieldValue.IsNil() {
					continue
				}
				fieldValue = fieldValue.Elem()
			}
			v.validateRecursive(fieldValue.Interface(), fullFieldName, validationErrors)
			continue
		}

		if fieldInfo.validateTag == "" {
			continue
		}

		err := v.validator.Var(fieldValue.Interface(), fieldInfo.validateTag)
		if err == nil {
			continue
		}

		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			validationErrors.Add(fullFieldName, err.Error())
			continue
		}

		for _, fieldErr := range validationErrs {
			errorTag := fieldErr.Tag()
			message := v.getCachedErrorMessage(fieldInfo.errorMsgTag, errorTag)
			if message == "" {
				message = fieldErr.Error()
			}
			validationErrors.Add(fullFieldName, message)
		}
	}
}

func (v *Validator) getCachedErrorMessage(errorMsgTag, rule string) string {
	if errorMsgTag == "" {
		return ""
	}

	v.mu.RLock()
	if ruleMap, exists := v.errorMsgCache[errorMsgTag]; exists {
		if msg, found := ruleMap[rule]; found {
			v.mu.RUnlock()
			return msg
		}
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if ruleMap, exists := v.errorMsgCache[errorMsgTag]; exists {
		if msg, found := ruleMap[rule]; found {
			return msg
		}
	}

	ruleMap := v.parseErrorMessageTag(errorMsgTag)
	v.errorMsgCache[errorMsgTag] = ruleMap
	return ruleMap[rule]
}

// parseErrorMessageTag parses "required:msg one|email:msg two".
func (v *Validator) parseErrorMessageTag(errorMsgTag string) map[string]string {
	ruleMap := make(map[string]string)
	ruleMessages := strings.Split(errorMsgTag, ruleSeparator)
	for _, ruleMessage := range ruleMessages {
		parts := strings.SplitN(ruleMessage, keyValueSep, 2)
		if len(parts) == 2 {
			ruleMap[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return ruleMap
}
