package repository

import (
	"fmt"
	"regexp"
	"strings"
)

/* ========================================================================
 * SQL identifier validation
 * ========================================================================
 * Guards OrderBy/Select/Joins strings against injection: identifier
 * whitelist pattern plus a keyword blacklist with word-boundary
 * matching so legal columns like updated_at pass.
 * ======================================================================== */

var (
	// column, table.column, or either form followed by AS alias
	columnPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?(\s+AS\s+[a-zA-Z_][a-zA-Z0-9_]*)?$`)

	orderDirections = map[string]bool{
		"ASC":  true,
		"DESC": true,
		"asc":  true,
		"desc": true,
	}

	dangerousKeywords = []string{
		"DROP", "DELETE", "UPDATE", "INSERT", "TRUNCATE", "ALTER", "CREATE",
		"GRANT", "REVOKE", "EXEC", "EXECUTE", "UNION", "INTO", "OUTFILE",
		"LOAD_FILE", "DUMPFILE", "--", "/*", "*/", ";", "SLEEP", "BENCHMARK",
	}
)

// SQLValidationError reports a rejected identifier string.
type SQLValidationError struct {
	Field   string // OrderBy/Select/Joins
	Value   string
	Reason  string
	Message string
}

func (e *SQLValidationError) Error() string {
	return fmt.Sprintf("SQL validation failed for %s: %s (value: %s, reason: %s)",
		e.Field, e.Message, e.Value, e.Reason)
}

// ValidateOrderBy validates an ORDER BY string.
//
// Accepted forms:
//   - "column ASC" / "column DESC"
//   - "table.column DESC"
//   - "col1 ASC, col2 DESC"
func ValidateOrderBy(orderBy string) error {
	if strings.TrimSpace(orderBy) == "" {
		return nil
	}

	if err := checkDangerousKeywords(orderBy, "OrderBy"); err != nil {
		return err
	}

	for _, part := range strings.Split(orderBy, ",") {
		if err := validateSingleOrderBy(strings.TrimSpace(part)); err != nil {
			return err
		}
	}

	return nil
}

func validateSingleOrderBy(orderBy string) error {
	if orderBy == "" {
		return nil
	}

	fields := strings.Fields(orderBy)
	if len(fields) == 0 || len(fields) > 2 {
		return &SQLValidationError{
			Field:   "OrderBy",
			Value:   orderBy,
			Reason:  "invalid_format",
			Message: "must be 'column' or 'column ASC/DESC'",
		}
	}

	if err := validateColumnName(fields[0]); err != nil {
		return &SQLValidationError{
			Field:   "OrderBy",
			Value:   orderBy,
			Reason:  "invalid_column",
			Message: err.Error(),
		}
	}

	if len(fields) == 2 && !orderDirections[fields[1]] {
		return &SQLValidationError{
			Field:   "OrderBy",
			Value:   orderBy,
			Reason:  "invalid_direction",
			Message: fmt.Sprintf("direction must be ASC or DESC, got: %s", fields[1]),
		}
	}

	return nil
}

// ValidateSelect validates selected column expressions. Aggregate
// function calls such as COUNT(*) AS total are allowed.
func ValidateSelect(selects []string) error {
	for _, sel := range selects {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}

		if err := checkDangerousKeywords(sel, "Select"); err != nil {
			return err
		}

		if isAggregateFunction(sel) {
			continue
		}

		if err := validateColumnName(sel); err != nil {
			return &SQLValidationError{
				Field:   "Select",
				Value:   sel,
				Reason:  "invalid_column",
				Message: err.Error(),
			}
		}
	}
	return nil
}

// ValidateJoin validates a single join clause.
//
// Accepted form: "LEFT JOIN keepers ON keepers.id = specimens.keeper_id"
func ValidateJoin(join string) error {
	join = strings.TrimSpace(join)
	if join == "" {
		return nil
	}

	if err := checkDangerousKeywords(join, "Joins"); err != nil {
		return err
	}

	upper := strings.ToUpper(join)
	if !strings.Contains(upper, "JOIN") {
		return &SQLValidationError{
			Field:   "Joins",
			Value:   join,
			Reason:  "missing_join_keyword",
			Message: "must contain JOIN keyword",
		}
	}
	if !strings.Contains(upper, " ON ") {
		return &SQLValidationError{
			Field:   "Joins",
			Value:   join,
			Reason:  "missing_on_clause",
			Message: "must contain ON clause",
		}
	}

	return nil
}

func validateColumnName(column string) error {
	col := strings.TrimSpace(column)
	if col == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if !columnPattern.MatchString(col) {
		return fmt.Errorf("column name contains invalid characters: %s", col)
	}
	return nil
}

// checkDangerousKeywords matches keywords at word boundaries only, so
// created_at and updated_at are not false positives.
func checkDangerousKeywords(value, field string) error {
	upperValue := strings.ToUpper(value)

	for _, keyword := range dangerousKeywords {
		if isKeywordMatch(upperValue, keyword) {
			return &SQLValidationError{
				Field:   field,
				Value:   value,
				Reason:  "dangerous_keyword",
				Message: fmt.Sprintf("contains dangerous keyword: %s", keyword),
			}
		}
	}

	return nil
}

func isKeywordMatch(text, keyword string) bool {
	if keyword == "--" || keyword == "/*" || keyword == "*/" || keyword == ";" {
		return strings.Contains(text, keyword)
	}

	idx := strings.Index(text, keyword)
	if idx == -1 {
		return false
	}

	if idx > 0 && isWordChar(text[idx-1]) {
		return false
	}
	endIdx := idx + len(keyword)
	if endIdx < len(text) && isWordChar(text[endIdx]) {
		return false
	}

	return true
}

func isWordChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') || c == '_'
}

func isAggregateFunction(sel string) bool {
	upperSel := strings.ToUpper(strings.TrimSpace(sel))
	for _, fn := range []string{"COUNT(", "SUM(", "AVG(", "MAX(", "MIN(", "GROUP_CONCAT("} {
		if strings.HasPrefix(upperSel, fn) {
			return true
		}
	}
	return false
}
