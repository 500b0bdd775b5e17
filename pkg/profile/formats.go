// pkg/profile/formats.go
package profile

import (
	"fmt"
	"strings"
	"time"
)

// Sentinel markers upstream exports write in place of a true null.
// Counted as missing; remediation nulls the date ones when no layout
// parses them.
var sentinelMarkers = []string{"invalid_date"}

// isSentinel reports whether a string value is a null stand-in
func isSentinel(value string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	for _, marker := range sentinelMarkers {
		if strings.Contains(cleaned, marker) {
			return true
		}
	}
	return false
}

// formatVariant labels the format of a string value. Date values are
// labeled by the layout that parses them (YYYY-MM-DD, MM/DD/YYYY,
// textual); digit-with-separator values like phone numbers are labeled
// by their digit shape (XXX-XXX-XXXX). Values with no recognizable
// format report no variant.
func formatVariant(value string, dateFormats []string) (string, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return "", false
	}

	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, cleaned); err == nil {
			return layoutLabel(layout), true
		}
	}

	if shape, ok := digitShape(cleaned); ok {
		return shape, true
	}

	return "", false
}

// layoutLabel converts a Go time layout to a report-friendly label
func layoutLabel(layout string) string {
	if strings.Contains(layout, "Jan") {
		return "textual"
	}
	r := strings.NewReplacer("2006", "YYYY", "01", "MM", "02", "DD")
	return r.Replace(layout)
}

// digitShape masks digits with X for values made only of digits and
// common phone separators, keeping separator positions
func digitShape(value string) (string, bool) {
	digits := 0
	var shape strings.Builder
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits++
			shape.WriteByte('X')
		case r == '-' || r == '.' || r == ' ' || r == '(' || r == ')' || r == '+':
			shape.WriteRune(r)
		default:
			return "", false
		}
	}
	if digits < 7 {
		return "", false
	}
	return shape.String(), true
}

// typeName buckets a non-null cell value for distinct-type counting
func typeName(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case float32, float64:
		return "float"
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return "int"
	case bool:
		return "bool"
	case []byte:
		return "bytes"
	case time.Time:
		return "time"
	default:
		return fmt.Sprintf("%T", v)
	}
}
