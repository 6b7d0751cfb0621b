package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

/* ========================================================================
 * Shared database types
 * ========================================================================
 * JSON column mappings used by models across the service: tenant settings
 * blobs, operator permission overrides, audit snapshots. Stored as JSONB
 * on PostgreSQL and JSON text elsewhere.
 * ======================================================================== */

// JSONB maps a JSON object column onto a Go map.
type JSONB map[string]interface{}

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONB)
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSONB scan")
	}
	return json.Unmarshal(data, j)
}

// ToStringMap flattens a JSONB value into string keys and values.
func (j JSONB) ToStringMap() map[string]string {
	result := make(map[string]string)
	for k, v := range j {
		switch val := v.(type) {
		case string:
			result[k] = val
		case float64:
			result[k] = fmt.Sprintf("%v", val)
		case bool:
			if val {
				result[k] = "true"
			} else {
				result[k] = "false"
			}
		default:
			if bytes, err := json.Marshal(v); err == nil {
				result[k] = string(bytes)
			}
		}
	}
	return result
}

// StringList maps a JSON array column onto a string slice. Used for
// per-operator permission overrides.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for StringList scan")
	}
	return json.Unmarshal(data, l)
}

// Contains reports whether the list holds s.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
