package validator

import (
	"reflect"
	"sync"
)

/* ========================================================================
 * Type cache
 * ========================================================================
 * Struct field metadata is parsed once per type and reused.
 * ======================================================================== */

type fieldInfo struct {
	name        string
	validateTag string
	errorMsgTag string
	isStruct    bool
	isPtr       bool
}

type typeCache struct {
	mu    sync.RWMutex
	cache map[reflect.Type][]fieldInfo
}

func newTypeCache() *typeCache {
	return &typeCache{
		cache: make(map[reflect.Type][]fieldInfo),
	}
}

func (tc *typeCache) get(t reflect.Type) ([]fieldInfo, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	info, exists := tc.cache[t]
	return info, exists
}

// getFieldsInfo returns the parsed field metadata for t, parsing and
// caching on first use.
func (tc *typeCache) getFieldsInfo(t reflect.Type) []fieldInfo {
	if info, exists := tc.get(t); exists {
		return info
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	// double-checked: another goroutine may have parsed meanwhile
	if info, exists := tc.cache[t]; exists {
		return info
	}

	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			// unexported fields panic on Interface()
			continue
		}
		fieldType := field.Type
		isPtr := fieldType.Kind() == reflect.Ptr
		if isPtr {
			fieldType = fieldType.Elem()
		}

		info := fieldInfo{
			name:        field.Name,
			validateTag: field.Tag.Get("validate"),
			errorMsgTag: field.Tag.Get(tagCustom),
			isStruct:    fieldType.Kind() == reflect.Struct,
			isPtr:       isPtr,
		}
		fields = append(fields, info)
	}

	tc.cache[t] = fields
	return fields
}
