// pkg/remediate/normalize.go
package remediate

import (
	"strings"
	"unicode"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

const isoDateLayout = "2006-01-02"

// normalizeDate reformats a date cell to YYYY-MM-DD. Values that fail
// every known layout come back nil so the imputation phase picks them
// up in the same pass.
func normalizeDate(value interface{}, field string, index int, layouts []string) (interface{}, *model.RemediationAction) {
	if model.IsNull(value) {
		return nil, nil
	}

	strValue := strings.TrimSpace(model.ToString(value))
	parsed, ok := model.ParseDate(strValue, layouts)
	if !ok {
		return nil, &model.RemediationAction{
			Field:         field,
			RecordIndex:   index,
			OriginalValue: value,
			NewValue:      nil,
			Strategy:      model.StrategyNormalize,
			Reason:        "unparseable_date",
		}
	}

	iso := parsed.Format(isoDateLayout)
	if iso == strValue {
		return value, nil
	}

	return iso, &model.RemediationAction{
		Field:         field,
		RecordIndex:   index,
		OriginalValue: value,
		NewValue:      iso,
		Strategy:      model.StrategyNormalize,
		Reason:        "reformatted_to_iso",
	}
}

// normalizePhone strips separators and reformats to XXX-XXX-XXXX.
// Numbers with the wrong digit count come back nil for imputation.
func normalizePhone(value interface{}, field string, index int, digitLength int) (interface{}, *model.RemediationAction) {
	if model.IsNull(value) {
		return nil, nil
	}

	strValue := model.ToString(value)
	digits := keepDigits(strValue)
	if len(digits) != digitLength {
		return nil, &model.RemediationAction{
			Field:         field,
			RecordIndex:   index,
			OriginalValue: value,
			NewValue:      nil,
			Strategy:      model.StrategyNormalize,
			Reason:        "invalid_digit_count",
		}
	}

	formatted := formatPhone(digits)
	if formatted == strValue {
		return value, nil
	}

	return formatted, &model.RemediationAction{
		Field:         field,
		RecordIndex:   index,
		OriginalValue: value,
		NewValue:      formatted,
		Strategy:      model.StrategyNormalize,
		Reason:        "reformatted_phone",
	}
}

// normalizeName trims and title-cases a name cell
func normalizeName(value interface{}, field string, index int) (interface{}, *model.RemediationAction) {
	if model.IsNull(value) {
		return nil, nil
	}

	strValue := model.ToString(value)
	titled := titleCaseName(strings.TrimSpace(strValue))
	if titled == strValue {
		return value, nil
	}

	return titled, &model.RemediationAction{
		Field:         field,
		RecordIndex:   index,
		OriginalValue: value,
		NewValue:      titled,
		Strategy:      model.StrategyNormalize,
		Reason:        "title_cased",
	}
}

// normalizeEmail lowercases an email cell
func normalizeEmail(value interface{}, field string, index int) (interface{}, *model.RemediationAction) {
	if model.IsNull(value) {
		return nil, nil
	}

	strValue := model.ToString(value)
	lowered := strings.ToLower(strings.TrimSpace(strValue))
	if lowered == strValue {
		return value, nil
	}

	return lowered, &model.RemediationAction{
		Field:         field,
		RecordIndex:   index,
		OriginalValue: value,
		NewValue:      lowered,
		Strategy:      model.StrategyNormalize,
		Reason:        "lowercased",
	}
}

// keepDigits drops every non-digit rune
func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// formatPhone lays out a digit string as XXX-XXX-XXXX. Digit strings
// of other lengths pass through bare.
func formatPhone(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	return digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
}

// titleCaseName canonicalizes name casing token-wise. Capitalization
// restarts after spaces, hyphens and apostrophes, and the Mc particle
// keeps its inner capital, so "o'brien" becomes "O'Brien" and
// "MCDONALD" becomes "McDonald".
func titleCaseName(s string) string {
	lower := strings.ToLower(s)
	runes := []rune(lower)

	capitalizeNext := true
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !unicode.IsLetter(r) {
			if r == ' ' || r == '-' || r == '\'' {
				capitalizeNext = true
			}
			continue
		}
		if capitalizeNext {
			runes[i] = unicode.ToUpper(r)
			capitalizeNext = false

			// Mc particle: "mc" + letter keeps the third letter capital
			if runes[i] == 'M' && i+2 < len(runes) && runes[i+1] == 'c' && unicode.IsLetter(runes[i+2]) {
				runes[i+2] = unicode.ToUpper(runes[i+2])
				i += 2
			}
		}
	}

	return string(runes)
}
