// pkg/model/classification.go
package model

import "sort"

// PIICategory identifies the kind of personal data a field holds
type PIICategory int

const (
	PIINone PIICategory = iota
	PIIName
	PIIEmail
	PIIPhone
	PIIAddress
	PIIDateOfBirth
)

// String returns the category name used in reports and audit rows
func (c PIICategory) String() string {
	switch c {
	case PIIName:
		return "NAME"
	case PIIEmail:
		return "EMAIL"
	case PIIPhone:
		return "PHONE"
	case PIIAddress:
		return "ADDRESS"
	case PIIDateOfBirth:
		return "DATE_OF_BIRTH"
	default:
		return "NONE"
	}
}

// CategoryPriority is the fixed tie-break order when a field matches
// more than one category. Checked first to last; the first category
// at or above threshold wins.
var CategoryPriority = []PIICategory{
	PIIEmail,
	PIIPhone,
	PIIDateOfBirth,
	PIIAddress,
	PIIName,
}

// FieldClassification is the classifier's verdict for one field
type FieldClassification struct {
	Field      string
	Category   PIICategory
	MatchRatio float64 // Ratio of sampled values matching the winning category
	SampleSize int     // Non-null values examined
}

// Classification maps field name to its classification.
// Produced once per table and immutable afterwards.
type Classification map[string]FieldClassification

// Category returns the assigned category for a field,
// PIINone when the field was never classified
func (c Classification) Category(field string) PIICategory {
	if fc, ok := c[field]; ok {
		return fc.Category
	}
	return PIINone
}

// PIIFields returns the names of all fields classified into a real
// category, sorted for deterministic iteration
func (c Classification) PIIFields() []string {
	fields := make([]string, 0, len(c))
	for name, fc := range c {
		if fc.Category != PIINone {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}
