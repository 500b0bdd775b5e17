// pkg/model/remediation.go
package model

// Strategy tags how a remediation changed a cell
type Strategy int

const (
	StrategyNormalize Strategy = iota
	StrategyImpute
	StrategyDrop
)

// String returns the strategy tag used in audit rows and reports
func (s Strategy) String() string {
	switch s {
	case StrategyImpute:
		return "IMPUTE"
	case StrategyDrop:
		return "DROP"
	default:
		return "NORMALIZE"
	}
}

// RemediationAction records a single cell mutation. The ordered action
// log is the complete audit trail: original value, new value, strategy
// and location are enough to reconstruct the remediation.
type RemediationAction struct {
	Field         string
	RecordIndex   int         // -1 for field-level actions that touch the whole table
	OriginalValue interface{} // Value before the fix (may be nil)
	NewValue      interface{} // Value after the fix (nil when normalization failed)
	Strategy      Strategy
	Reason        string // Why the cell changed (e.g., "unparseable_date")
}
