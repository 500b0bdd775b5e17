// pkg/pipeline/verify.go
package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/mask"
	"github.com/fintech-data/pii-sentry/pkg/model"
)

// CellDiscrepancy represents a problem found in a single output cell
type CellDiscrepancy struct {
	RecordIndex int
	Field       string
	Value       string
	Problem     string
}

// VerificationReport contains the results of an output verification
type VerificationReport struct {
	Dataset              string
	VerificationTime     time.Time
	RowCountMatches      bool
	InputRows            int
	OutputRows           int
	ColumnsMatch         bool
	ColumnDiscrepancies  []string
	NullFree             bool
	ResidualNulls        []CellDiscrepancy
	MaskingVerified      bool
	SampleSize           int
	MaskingDiscrepancies []CellDiscrepancy
	Duration             time.Duration
}

// Passed reports whether every verification check succeeded
func (r *VerificationReport) Passed() bool {
	return r.RowCountMatches && r.ColumnsMatch && r.NullFree && r.MaskingVerified
}

// isoDate matches the normalized date form remediation writes. A masked
// date no longer matches because its month and day are starred out.
var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Verifier checks masked output tables against the tables that produced
// them: no rows lost, no columns lost, no nulls left behind, and every
// sampled PII cell actually transformed.
type Verifier struct {
	placeholder string
	logger      *zap.Logger
}

// NewVerifier creates a new output verifier
func NewVerifier(placeholder string, logger *zap.Logger) (*Verifier, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if placeholder == "" {
		return nil, errors.New("string placeholder cannot be empty")
	}

	return &Verifier{
		placeholder: placeholder,
		logger:      logger.Named("verifier"),
	}, nil
}

// VerifyRowPreservation verifies no rows were dropped between ingestion
// and masked output
func (v *Verifier) VerifyRowPreservation(in, out *model.Table) (bool, int, int) {
	inputRows := in.RowCount()
	outputRows := out.RowCount()

	matches := inputRows == outputRows
	if matches {
		v.logger.Info("Row preservation verified",
			zap.String("dataset", out.Name),
			zap.Int("rows", outputRows))
	} else {
		v.logger.Warn("Row count mismatch",
			zap.String("dataset", out.Name),
			zap.Int("inputRows", inputRows),
			zap.Int("outputRows", outputRows),
			zap.Int("difference", inputRows-outputRows))
	}

	return matches, inputRows, outputRows
}

// VerifyColumnPreservation verifies the output carries exactly the
// columns of the remediated table. Dropped fields are removed during
// remediation, so the comparison baseline is the cleaned table, not
// the raw input.
func (v *Verifier) VerifyColumnPreservation(cleaned, out *model.Table) (bool, []string) {
	discrepancies := make([]string, 0)

	expected := make(map[string]bool, len(cleaned.Fields))
	for _, field := range cleaned.Fields {
		expected[field] = true
	}

	actual := make(map[string]bool, len(out.Fields))
	for _, field := range out.Fields {
		actual[field] = true
	}

	for _, field := range cleaned.Fields {
		if !actual[field] {
			discrepancies = append(discrepancies,
				fmt.Sprintf("column %s missing from masked output", field))
		}
	}

	for _, field := range out.Fields {
		if !expected[field] {
			discrepancies = append(discrepancies,
				fmt.Sprintf("unexpected column %s in masked output", field))
		}
	}

	// Order only matters once both sides carry the same column set
	if len(discrepancies) == 0 && len(cleaned.Fields) == len(out.Fields) {
		for i, field := range cleaned.Fields {
			if out.Fields[i] != field {
				discrepancies = append(discrepancies,
					fmt.Sprintf("column order differs at position %d: expected %s, got %s",
						i, field, out.Fields[i]))
			}
		}
	}

	matches := len(discrepancies) == 0
	if matches {
		v.logger.Info("Column preservation verified",
			zap.String("dataset", out.Name),
			zap.Int("columns", len(out.Fields)))
	} else {
		v.logger.Warn("Column discrepancies found",
			zap.String("dataset", out.Name),
			zap.Int("discrepancies", len(discrepancies)))
	}

	return matches, discrepancies
}

// VerifyNoResidualNulls verifies remediation left no missing values in
// the output
func (v *Verifier) VerifyNoResidualNulls(out *model.Table) (bool, []CellDiscrepancy) {
	discrepancies := make([]CellDiscrepancy, 0)

	for i, rec := range out.Records {
		for _, field := range out.Fields {
			if model.IsNull(rec[field]) {
				discrepancies = append(discrepancies, CellDiscrepancy{
					RecordIndex: i,
					Field:       field,
					Problem:     "null value after remediation",
				})
			}
		}
	}

	clean := len(discrepancies) == 0
	if clean {
		v.logger.Info("Null check verified",
			zap.String("dataset", out.Name),
			zap.Int("rows", out.RowCount()))
	} else {
		v.logger.Warn("Residual null values found",
			zap.String("dataset", out.Name),
			zap.Int("nullCells", len(discrepancies)))
	}

	return clean, discrepancies
}

// VerifyMaskingSample checks a deterministic sample of rows for PII
// values that escaped masking
func (v *Verifier) VerifyMaskingSample(
	out *model.Table,
	classification model.Classification,
	sampleSize int,
) (bool, []CellDiscrepancy) {
	piiFields := classification.PIIFields()
	discrepancies := make([]CellDiscrepancy, 0)

	if len(piiFields) == 0 || sampleSize <= 0 {
		v.logger.Info("Masking sample skipped",
			zap.String("dataset", out.Name),
			zap.Int("piiFields", len(piiFields)))
		return true, discrepancies
	}

	rows := out.RowCount()
	step := rows / sampleSize
	if step < 1 {
		step = 1
	}

	checked := 0
	for i := 0; i < rows && checked < sampleSize; i += step {
		rec := out.Records[i]
		for _, field := range piiFields {
			value := rec[field]
			if model.IsNull(value) {
				continue
			}

			strValue := model.ToString(value)
			category := classification.Category(field)
			if !v.cellMasked(category, strValue) {
				discrepancies = append(discrepancies, CellDiscrepancy{
					RecordIndex: i,
					Field:       field,
					Value:       strValue,
					Problem:     fmt.Sprintf("unmasked %s value", category.String()),
				})
			}
		}
		checked++
	}

	verified := len(discrepancies) == 0
	if verified {
		v.logger.Info("Masking sample verified",
			zap.String("dataset", out.Name),
			zap.Int("sampleSize", checked),
			zap.Int("piiFields", len(piiFields)))
	} else {
		v.logger.Warn("Unmasked PII values found",
			zap.String("dataset", out.Name),
			zap.Int("sampleSize", checked),
			zap.Int("discrepancies", len(discrepancies)))
	}

	return verified, discrepancies
}

// cellMasked reports whether a non-null output cell is acceptable for
// its category. Each predicate mirrors the matching transform,
// including the values the transform passes through untouched.
func (v *Verifier) cellMasked(category model.PIICategory, value string) bool {
	if value == v.placeholder || value == mask.MaskedAddress {
		return true
	}

	switch category {
	case model.PIIEmail:
		// Values without an @ were never maskable as emails
		if !strings.Contains(value, "@") {
			return true
		}
		return strings.Contains(value, "*")
	case model.PIIPhone:
		if countDigits(value) == 0 {
			return true
		}
		return strings.Contains(value, "*")
	case model.PIIDateOfBirth:
		return !isoDate.MatchString(value)
	case model.PIIName:
		// Single-character tokens survive masking unchanged
		for _, token := range strings.Fields(value) {
			if len(token) >= 2 && !strings.Contains(token, "*") {
				return false
			}
		}
		return true
	case model.PIIAddress:
		return strings.Contains(value, "*")
	default:
		return true
	}
}

// Verify runs all verification checks and assembles a report
func (v *Verifier) Verify(
	in, cleaned, masked *model.Table,
	classification model.Classification,
) *VerificationReport {
	v.logger.Info("Verifying masked output",
		zap.String("dataset", masked.Name))

	startTime := time.Now()
	report := &VerificationReport{
		Dataset:          masked.Name,
		VerificationTime: startTime,
	}

	rowMatch, inputRows, outputRows := v.VerifyRowPreservation(in, masked)
	report.RowCountMatches = rowMatch
	report.InputRows = inputRows
	report.OutputRows = outputRows

	columnMatch, columnDiscrepancies := v.VerifyColumnPreservation(cleaned, masked)
	report.ColumnsMatch = columnMatch
	report.ColumnDiscrepancies = columnDiscrepancies

	nullFree, residualNulls := v.VerifyNoResidualNulls(masked)
	report.NullFree = nullFree
	report.ResidualNulls = residualNulls

	sampleSize := verificationSampleSize(masked.RowCount())
	maskingVerified, maskingDiscrepancies := v.VerifyMaskingSample(masked, classification, sampleSize)
	report.MaskingVerified = maskingVerified
	report.SampleSize = sampleSize
	report.MaskingDiscrepancies = maskingDiscrepancies

	report.Duration = time.Since(startTime)

	v.logger.Info("Verification completed",
		zap.String("dataset", masked.Name),
		zap.Duration("duration", report.Duration),
		zap.Bool("rowCountMatch", report.RowCountMatches),
		zap.Bool("columnsMatch", report.ColumnsMatch),
		zap.Bool("nullFree", report.NullFree),
		zap.Bool("maskingVerified", report.MaskingVerified))

	return report
}

// verificationSampleSize determines appropriate sample size based on
// table size
func verificationSampleSize(rowCount int) int {
	switch {
	case rowCount <= 0:
		return 0
	case rowCount < 100:
		return rowCount // Sample all rows for small tables
	case rowCount < 1000:
		return 100
	case rowCount < 10000:
		return 500
	case rowCount < 100000:
		return 1000
	default:
		return 2000 // Cap at 2000 rows for huge tables
	}
}

// countDigits counts decimal digit characters in a string
func countDigits(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

// countMaskedCells counts cells in classified fields whose value
// changed between the cleaned table and the masked table
func countMaskedCells(before, after *model.Table, classification model.Classification) int {
	count := 0
	rows := after.RowCount()
	if before.RowCount() < rows {
		rows = before.RowCount()
	}

	for _, field := range classification.PIIFields() {
		for i := 0; i < rows; i++ {
			beforeValue := model.ToString(before.Records[i][field])
			afterValue := model.ToString(after.Records[i][field])
			if beforeValue != afterValue {
				count++
			}
		}
	}

	return count
}
