// pkg/model/validation.go
package model

import (
	"fmt"
	"strings"
)

// Severity classifies a rule violation
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityCritical
)

// String returns the severity name used in contracts and reports
func (s Severity) String() string {
	if s == SeverityCritical {
		return "CRITICAL"
	}
	return "WARNING"
}

// ParseSeverity parses a contract severity string (case-insensitive)
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical, nil
	case "WARNING":
		return SeverityWarning, nil
	default:
		return SeverityWarning, fmt.Errorf("unknown severity %q", s)
	}
}

// ValidationResult is the outcome of evaluating one contract rule
type ValidationResult struct {
	RuleID      string
	Field       string
	Description string
	Severity    Severity
	Passed      bool
	Violations  []int // Violating record indices, ascending
}

// ViolationCount returns the number of violating records
func (r ValidationResult) ViolationCount() int {
	return len(r.Violations)
}

// ValidationReport is the ordered outcome of a full contract run.
// Result order always mirrors contract definition order.
type ValidationReport struct {
	Table    string
	RowCount int
	Results  []ValidationResult

	// Halt is set when a CRITICAL rule violated more than the
	// configured fraction of records. The engine only reports the
	// signal; acting on it is the orchestrator's decision.
	Halt      bool
	HaltRules []string // Rule IDs that tripped the halt signal
}

// Failed returns the results whose rule did not pass, in contract order
func (v *ValidationReport) Failed() []ValidationResult {
	failed := make([]ValidationResult, 0)
	for _, r := range v.Results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// CountBySeverity returns the number of failed rules at a severity
func (v *ValidationReport) CountBySeverity(s Severity) int {
	n := 0
	for _, r := range v.Results {
		if !r.Passed && r.Severity == s {
			n++
		}
	}
	return n
}
