// pkg/classify/patterns.go
package classify

import (
	"regexp"
	"strings"
	"time"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Patterns are matched against column DATA, never column names, so a
// field named "contact" full of emails still classifies as EMAIL.
var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	// Optional country code, optional area code grouping, then a
	// 3-4 or 3-3-4 digit body with ., -, or space separators
	phonePattern = regexp.MustCompile(`^(\+?\d{1,3}[-.\s]?)?(\(?\d{3}\)?[-.\s]?)?\d{3}[-.\s]?\d{4}$`)

	streetPattern = regexp.MustCompile(`(?i)^\d+\s+.*\b(st|street|ave|avenue|rd|road|blvd|boulevard|ln|lane|dr|drive|ct|court|way|pl|place|ter|terrace)\b`)

	nameTokenPattern = regexp.MustCompile(`^[A-Za-z]+(['-][A-Za-z]+)?$`)
)

// nonNameWords are dictionary values that look like title-cased tokens
// but never identify a person. Keeps enum-ish columns out of NAME.
var nonNameWords = map[string]struct{}{
	"active":    {},
	"inactive":  {},
	"suspended": {},
	"pending":   {},
	"closed":    {},
	"unknown":   {},
	"none":      {},
	"null":      {},
	"true":      {},
	"false":     {},
	"yes":       {},
	"no":        {},
	"n/a":       {},
	"male":      {},
	"female":    {},
	"other":     {},
}

func matchEmail(value string) bool {
	return emailPattern.MatchString(strings.TrimSpace(value))
}

func matchPhone(value string) bool {
	cleaned := strings.TrimSpace(value)
	digits := countDigits(cleaned)
	if digits < 7 || digits > 15 {
		return false
	}
	return phonePattern.MatchString(cleaned)
}

// matchDateOfBirth accepts values parseable under the recognized
// layouts whose year falls in a plausible lifetime range
func matchDateOfBirth(value string, layouts []string) bool {
	t, ok := model.ParseDate(value, layouts)
	if !ok {
		return false
	}
	year := t.Year()
	return year >= 1900 && year <= time.Now().Year()
}

// matchAddress requires a leading street number followed by a street
// type token somewhere in the value
func matchAddress(value string) bool {
	return streetPattern.MatchString(strings.TrimSpace(value))
}

// matchName accepts 1-4 alphabetic tokens, title-cased or all-caps,
// excluding known non-name dictionary words
func matchName(value string) bool {
	tokens := strings.Fields(strings.TrimSpace(value))
	if len(tokens) < 1 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		if !nameTokenPattern.MatchString(tok) {
			return false
		}
		if !isTitleCased(tok) && !isAllCaps(tok) {
			return false
		}
		if _, banned := nonNameWords[strings.ToLower(tok)]; banned {
			return false
		}
	}
	return true
}

func isTitleCased(tok string) bool {
	if tok == "" {
		return false
	}
	first := tok[0]
	return first >= 'A' && first <= 'Z'
}

func isAllCaps(tok string) bool {
	return tok == strings.ToUpper(tok)
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
