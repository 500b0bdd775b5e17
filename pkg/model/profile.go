// pkg/model/profile.go
package model

// FieldProfile holds per-column quality statistics
type FieldProfile struct {
	Field             string
	NullCount         int
	SentinelCount     int // String markers like "invalid_date" standing in for a null
	NullRatio         float64
	DistinctTypeCount int      // Distinct Go value types observed among non-null cells
	FormatVariants    []string // Detected format patterns, sorted (dates, phones)
}

// Missing is the combined count of true nulls and sentinel markers
func (fp FieldProfile) Missing() int {
	return fp.NullCount + fp.SentinelCount
}

// QualityReport is the profiler's output for one table.
// Purely descriptive; remediation reads it to pick strategies.
type QualityReport struct {
	Table    string
	RowCount int
	Fields   map[string]FieldProfile
}

// Profile returns the profile for a field, with ok=false when the
// field was not profiled
func (q *QualityReport) Profile(field string) (FieldProfile, bool) {
	p, ok := q.Fields[field]
	return p, ok
}

// HasNulls reports whether the field had any missing values
func (q *QualityReport) HasNulls(field string) bool {
	p, ok := q.Fields[field]
	return ok && p.NullCount > 0
}

// NeedsNormalization reports whether a field mixes format variants
func (q *QualityReport) NeedsNormalization(field string) bool {
	p, ok := q.Fields[field]
	return ok && len(p.FormatVariants) > 1
}
