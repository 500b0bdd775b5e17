// pkg/report/report_test.go
package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

func sampleTable() *model.Table {
	table := model.NewTable("customers", []string{"customer_id", "first_name", "email", "income"})
	table.Append(model.Record{"customer_id": int64(1001), "first_name": "John", "email": "john@example.com", "income": float64(75000)})
	table.Append(model.Record{"customer_id": int64(1002), "first_name": "jane", "email": "JANE@EXAMPLE.COM", "income": nil})
	table.Append(model.Record{"customer_id": int64(1003), "first_name": nil, "email": "bob@example.com", "income": float64(15000000)})
	return table
}

func TestRenderQualityProfile(t *testing.T) {
	table := sampleTable()
	schema := model.InferSchema(table)
	quality := &model.QualityReport{
		Table:    "customers",
		RowCount: 3,
		Fields: map[string]model.FieldProfile{
			"customer_id": {Field: "customer_id"},
			"first_name":  {Field: "first_name", NullCount: 1, NullRatio: 1.0 / 3},
			"email":       {Field: "email", SentinelCount: 1},
			"income":      {Field: "income", NullCount: 1, NullRatio: 1.0 / 3, DistinctTypeCount: 1},
			"phone": {
				Field:          "phone",
				FormatVariants: []string{"XXX-XXX-XXXX", "XXX.XXX.XXXX"},
			},
		},
	}

	out := RenderQualityProfile(quality, schema)

	assert.Contains(t, out, "DATA QUALITY PROFILE REPORT")
	assert.Contains(t, out, "Table: customers (3 rows)")
	assert.Contains(t, out, "COMPLETENESS:")
	assert.Contains(t, out, "- first_name: 67% (1 missing/invalid)")
	assert.Contains(t, out, "- email: 67% (1 missing/invalid)")
	assert.Contains(t, out, "- customer_id: 100%")
	assert.Contains(t, out, "DATA TYPES:")
	assert.Contains(t, out, "- customer_id: NUMBER")
	assert.Contains(t, out, "- first_name: STRING")
	assert.Contains(t, out, "SEVERITY:")
	assert.Contains(t, out, "- Fields with missing values: 3")
}

func TestRenderPIIDetection(t *testing.T) {
	classification := model.Classification{
		"email":      {Field: "email", Category: model.PIIEmail, MatchRatio: 1.0, SampleSize: 3},
		"first_name": {Field: "first_name", Category: model.PIIName, MatchRatio: 0.9, SampleSize: 2},
		"income":     {Field: "income", Category: model.PIINone},
	}

	out := RenderPIIDetection(classification, 3)

	assert.Contains(t, out, "PII DETECTION REPORT")
	assert.Contains(t, out, "Records scanned: 3")
	assert.Contains(t, out, "- HIGH: email, first_name")
	assert.Contains(t, out, "- email: EMAIL (100% of 3 sampled values)")
	assert.Contains(t, out, "- first_name: NAME (90% of 2 sampled values)")
	assert.NotContains(t, out, "income:")
	assert.Contains(t, out, "MITIGATION: Mask all PII before sharing with analytics teams")
}

func TestRenderPIIDetectionWithoutPII(t *testing.T) {
	out := RenderPIIDetection(model.Classification{}, 5)
	assert.Contains(t, out, "- No PII detected")
}

func TestRenderValidation(t *testing.T) {
	table := sampleTable()
	report := &model.ValidationReport{
		Table:    "customers",
		RowCount: 3,
		Results: []model.ValidationResult{
			{RuleID: "customer_id_not_null", Field: "customer_id", Severity: model.SeverityCritical, Passed: true},
			{RuleID: "first_name_not_null", Field: "first_name", Severity: model.SeverityWarning, Passed: false, Violations: []int{2}},
			{RuleID: "income_range", Field: "income", Severity: model.SeverityCritical, Passed: false, Violations: []int{2}},
		},
	}

	out := RenderValidation(report, table)

	assert.Contains(t, out, "PASS: 1 rules passed")
	assert.Contains(t, out, "FAIL: 2 rules failed")
	assert.Contains(t, out, "SUCCESS RATE: 33.33%")
	assert.Contains(t, out, "first_name_not_null:")
	assert.Contains(t, out, "- Field: first_name (WARNING)")
	assert.Contains(t, out, "- Sample failures: [<null>]")
	assert.Contains(t, out, "- Sample failures: [15000000]")
	assert.NotContains(t, out, "HALT SIGNAL")
}

func TestRenderValidationHalt(t *testing.T) {
	report := &model.ValidationReport{
		Table:    "customers",
		RowCount: 4,
		Results: []model.ValidationResult{
			{RuleID: "income_range", Field: "income", Severity: model.SeverityCritical, Passed: false, Violations: []int{0, 1, 2}},
		},
		Halt:      true,
		HaltRules: []string{"income_range"},
	}

	out := RenderValidation(report, sampleTable())
	assert.Contains(t, out, "HALT SIGNAL: critical rules exceeded the violation threshold: income_range")
}

func TestRenderCleaningLog(t *testing.T) {
	actions := []model.RemediationAction{
		{Field: "phone", RecordIndex: 1, Strategy: model.StrategyNormalize, Reason: "reformatted_phone"},
		{Field: "phone", RecordIndex: 2, Strategy: model.StrategyNormalize, Reason: "invalid_digit_count"},
		{Field: "date_of_birth", RecordIndex: 2, Strategy: model.StrategyNormalize, Reason: "reformatted_to_iso"},
		{Field: "first_name", RecordIndex: 1, Strategy: model.StrategyNormalize, Reason: "title_cased"},
		{Field: "email", RecordIndex: 1, Strategy: model.StrategyNormalize, Reason: "lowercased"},
		{Field: "phone", RecordIndex: 2, Strategy: model.StrategyImpute, Reason: "missing_value"},
		{Field: "income", RecordIndex: 1, Strategy: model.StrategyImpute, Reason: "missing_value"},
	}

	out := RenderCleaningLog(actions, 5, 0, sampleTable())

	assert.Contains(t, out, "DATA CLEANING LOG")
	assert.Contains(t, out, "- Phone format: converted to XXX-XXX-XXXX (2 occurrences)")
	assert.Contains(t, out, "- Date format: converted to YYYY-MM-DD (1 occurrences)")
	assert.Contains(t, out, "- Name case: applied title case (1 occurrences)")
	assert.Contains(t, out, "- Email case: lowercased (1 occurrences)")
	assert.Contains(t, out, "- phone: 1 row(s) missing -> filled with placeholder")
	assert.Contains(t, out, "- income: 1 row(s) missing -> filled with placeholder")
	assert.Contains(t, out, "- Before: 5 failures")
	assert.Contains(t, out, "- After: 0 failures")
	assert.Contains(t, out, "- Status: PASS")
	assert.Contains(t, out, "Output: customers (3 rows, 4 columns)")
}

func TestRenderCleaningLogReviewRequired(t *testing.T) {
	out := RenderCleaningLog(nil, 5, 2, sampleTable())
	assert.Contains(t, out, "- Status: REVIEW REQUIRED")
	assert.Contains(t, out, "Missing Values:\n- None")
}

func TestRenderMaskedSample(t *testing.T) {
	original := sampleTable()
	masked := original.Clone()
	masked.Records[0]["first_name"] = "J***"
	masked.Records[0]["email"] = "j***@example.com"

	out := RenderMaskedSample(original, masked, 2)

	assert.Contains(t, out, "BEFORE MASKING (first 2 rows):")
	assert.Contains(t, out, "AFTER MASKING (first 2 rows):")
	assert.Contains(t, out, "customer_id,first_name,email,income")
	assert.Contains(t, out, "1001,John,john@example.com,75000")
	assert.Contains(t, out, "1001,J***,j***@example.com,75000")
	assert.Contains(t, out, "ANALYSIS:")
	assert.Contains(t, out, "- Data structure preserved (still 3 rows, 4 columns)")

	// Nulls render as empty cells
	assert.Contains(t, out, "1002,jane,JANE@EXAMPLE.COM,")
}

func TestReporterWritesDeliverables(t *testing.T) {
	dir := t.TempDir()
	reporter, err := NewReporter(dir, zap.NewNop())
	require.NoError(t, err)

	table := sampleTable()
	schema := model.InferSchema(table)
	quality := &model.QualityReport{Table: "customers", RowCount: 3, Fields: map[string]model.FieldProfile{}}
	validation := &model.ValidationReport{Table: "customers", RowCount: 3}

	require.NoError(t, reporter.WriteQualityProfile(quality, schema))
	require.NoError(t, reporter.WritePIIDetection(model.Classification{}, 3))
	require.NoError(t, reporter.WriteValidation(validation, table))
	require.NoError(t, reporter.WriteCleaningLog(nil, 0, 0, table))
	require.NoError(t, reporter.WriteMaskedSample(table, table, 2))
	require.NoError(t, reporter.WriteExecutionReport([]string{"PIPELINE EXECUTION REPORT", "Stage 1: done"}))

	for _, name := range []string{
		QualityProfileFile, PIIDetectionFile, ValidationFile,
		CleaningLogFile, MaskedSampleFile, ExecutionReportFile,
	} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, content, name)
		assert.True(t, strings.HasSuffix(string(content), "\n"), name)
	}
}

func TestNewReporterValidation(t *testing.T) {
	_, err := NewReporter("", zap.NewNop())
	assert.Error(t, err)

	_, err = NewReporter(t.TempDir(), nil)
	assert.Error(t, err)
}
