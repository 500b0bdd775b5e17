// pkg/source/infer.go
package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Cell values treated as missing when they arrive as raw CSV text
var nullLiterals = map[string]bool{
	"":     true,
	"null": true,
	"NULL": true,
	"nil":  true,
	"NIL":  true,
}

// parseCell converts one raw CSV cell to its cell value. Null
// literals become nil; everything else stays a string until column
// inference runs over the whole table.
func parseCell(cell string) interface{} {
	if nullLiterals[strings.TrimSpace(cell)] {
		return nil
	}
	return cell
}

// inferColumns promotes columns whose every non-null cell parses as a
// number. A column where every value parses as an integer becomes
// int64, a numeric column with fractional values becomes float64, and
// mixed columns keep their strings so identifier-like fields such as
// phone numbers survive untouched.
func inferColumns(t *model.Table) {
	for _, field := range t.Fields {
		isInt := true
		isFloat := true
		seen := false

		for _, rec := range t.Records {
			v := rec[field]
			if v == nil {
				continue
			}
			cell, ok := v.(string)
			if !ok {
				isFloat = false
				break
			}
			seen = true

			trimmed := strings.TrimSpace(cell)
			if _, err := strconv.ParseInt(trimmed, 10, 64); err != nil {
				isInt = false
			}
			if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
				isFloat = false
				break
			}
		}

		if !seen || !isFloat {
			continue
		}

		for _, rec := range t.Records {
			v := rec[field]
			if v == nil {
				continue
			}
			trimmed := strings.TrimSpace(v.(string))
			if isInt {
				parsed, _ := strconv.ParseInt(trimmed, 10, 64)
				rec[field] = parsed
			} else {
				parsed, _ := strconv.ParseFloat(trimmed, 64)
				rec[field] = parsed
			}
		}
	}
}

// normalizeDriverValue maps driver-level values onto the cell forms
// the pipeline works with. Byte slices become strings, empty strings
// become nulls, and timestamps are rendered in the layouts the
// remediation engine recognizes.
func normalizeDriverValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		if len(val) == 0 {
			return nil
		}
		return string(val)
	case string:
		if val == "" {
			return nil
		}
		return val
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return val
	}
}
