// pkg/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/config"
	"github.com/fintech-data/pii-sentry/pkg/model"
)

// stubSource feeds a prepared table into the pipeline without any I/O.
type stubSource struct {
	table    *model.Table
	fetchErr error
}

func (s *stubSource) Fetch(ctx context.Context) (*model.Table, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.table, nil
}

func (s *stubSource) Validate(ctx context.Context) error { return nil }

func (s *stubSource) Close() error { return nil }

func pipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Source:               config.SourceCSV,
		TableName:            "customers",
		PIIMatchThreshold:    0.8,
		SampleSize:           0,
		CriticalHaltFraction: 0.5,
		HaltOnCritical:       false,
		Revalidate:           true,
		DateFormats:          config.DefaultDateFormats,
		PhoneDigitLength:     10,
		StringPlaceholder:    "[UNKNOWN]",
		NumberPlaceholder:    0,
		ImputeOverrides:      map[string]string{"account_status": "unknown"},
		OutputDir:            t.TempDir(),
	}
}

var customerFields = []string{
	"customer_id", "first_name", "last_name", "email", "phone",
	"date_of_birth", "address", "income", "account_status", "created_date",
}

// customerTable builds a ten row dataset seeded with the defect mix the
// pipeline is expected to repair: casing drift, nulls, loose phone and
// date formats, and one unparseable date.
func customerTable() *model.Table {
	rows := [][]interface{}{
		{int64(1001), "John", "Doe", "john.doe@example.com", "555.123.4567", "1985-03-15", "123 Main St New York NY 10001", float64(75000), "active", "2020-01-15"},
		{int64(1002), "jane", "Miller", "jane.miller@example.com", "(555) 234-5678", "1990-07-22", "456 Oak Ave Los Angeles CA 90001", float64(95000), "active", "2019-06-30"},
		{int64(1003), nil, "Johnson", "bob.j@example.com", "5553456789", "1988-11-02", "789 Pine Rd Chicago IL 60601", nil, "inactive", "2021-03-10"},
		{int64(1004), "PATRICIA", "SMITH", "Fake@Email.com", "555-456-7890", "1975/05/10", nil, float64(120000), nil, "2018-11-05"},
		{int64(1005), "Emily", "O'Brien", "emily.ob@example.com", "555-567-8901", "1992-04-18", "321 Birch Blvd Houston TX 77001", float64(64000), "suspended", "2022-07-30"},
		{int64(1006), "Michael", "Chen", "mchen@example.com", "555-678-9012", "1980-09-25", "654 Cedar Ln Phoenix AZ 85001", float64(88000), "active", "2020-10-12"},
		{int64(1007), "Sarah", "Davis", "sdavis@example.com", "555-789-0123", "1995-01-30", "987 Elm Dr Dallas TX 75201", float64(52000), "inactive", "2021-08-22"},
		{int64(1008), "David", "Wilson", "dwilson@example.com", "555-890-1234", "1978-06-12", "147 Maple Ct Denver CO 80201", float64(110000), "active", "2019-02-14"},
		{int64(1009), "Lisa", "Garcia", "lgarcia@example.com", "555-901-2345", "1987-12-08", "258 Walnut Way Seattle WA 98101", float64(71000), "suspended", "2022-04-01"},
		{int64(1010), "Robert", "Taylor", "rtaylor@example.com", "555-012-3456", "13/45/2020", "369 Spruce Pl Miami FL 33101", float64(49000), "active", "2023-01-09"},
	}

	table := model.NewTable("customers", customerFields)
	for _, row := range rows {
		rec := model.Record{}
		for i, field := range customerFields {
			rec[field] = row[i]
		}
		table.Append(rec)
	}
	return table
}

func readMaskedCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestPipelineRunEndToEnd(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := NewPipeline(cfg, &stubSource{table: customerTable()}, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.False(t, result.HaltSignaled)
	assert.False(t, result.Halted)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, 10, result.RowsIn)
	assert.Equal(t, 10, result.RowsOut)

	// customer_id, income, and account_status stay clear; the other
	// seven columns, created_date included, carry recognizable PII.
	assert.Equal(t, 7, result.PIIFields)

	// Three recased names, one lowercased email, three reformatted
	// phones, one date rewritten to ISO, one nulled date, five imputes.
	assert.Equal(t, 14, result.Actions)

	// Seven PII columns over ten rows, minus the three placeholder
	// cells the masker passes through untouched.
	assert.Equal(t, 67, result.MaskedCells)

	assert.Equal(t, 4, result.FailuresBefore)
	assert.Equal(t, 3, result.FailuresAfter)

	require.NotNil(t, result.Verification)
	assert.True(t, result.Verification.Passed())
	assert.Equal(t, 10, result.Verification.SampleSize)

	assert.Equal(t, filepath.Join(cfg.OutputDir, "customers_masked.csv"), result.OutputPath)
}

func TestPipelineRunWritesDeliverables(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := NewPipeline(cfg, &stubSource{table: customerTable()}, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)

	for _, name := range []string{
		"data_quality_profile.txt",
		"pii_detection_report.txt",
		"validation_results.txt",
		"cleaning_log.txt",
		"masked_sample.txt",
		"pipeline_execution_report.txt",
		"customers_masked.csv",
	} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
		assert.NoError(t, err, "expected deliverable %s", name)
	}
}

func TestPipelineRunMaskedOutput(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := NewPipeline(cfg, &stubSource{table: customerTable()}, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	records := readMaskedCSV(t, result.OutputPath)
	require.Len(t, records, 11)
	assert.Equal(t, customerFields, records[0])

	rows := records[1:]
	assert.Equal(t, "P*******", rows[3][1])
	assert.Equal(t, "f***@email.com", rows[3][3])
	assert.Equal(t, "***-***-4567", rows[0][4])
	assert.Equal(t, "1985-**-**", rows[0][5])
	assert.Equal(t, "2020-**-**", rows[0][9])

	// Cells imputed to the placeholder stay as the placeholder.
	assert.Equal(t, "[UNKNOWN]", rows[2][1])
	assert.Equal(t, "[UNKNOWN]", rows[9][5])

	// No raw identity data survives into the export.
	content := strings.Join(records[0], ",")
	for _, rec := range rows {
		content += "\n" + strings.Join(rec, ",")
	}
	assert.NotContains(t, content, "Patricia")
	assert.NotContains(t, content, "john.doe@")
	assert.NotContains(t, content, "555.123.4567")
	assert.NotContains(t, content, "1985-03-15")
}

func TestPipelineRunHaltsOnCriticalViolations(t *testing.T) {
	table := customerTable()
	for _, idx := range []int{0, 1, 4, 5, 6, 7} {
		table.Records[idx]["income"] = float64(99000000)
	}

	cfg := pipelineConfig(t)
	cfg.HaltOnCritical = true
	p, err := NewPipeline(cfg, &stubSource{table: table}, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.HaltSignaled)
	assert.True(t, result.Halted)
	assert.False(t, result.Success)
	assert.Empty(t, result.Errors)

	assert.Equal(t, 5, result.FailuresBefore)
	assert.Equal(t, 4, result.FailuresAfter)

	// Masking never ran, so there is nothing to export.
	assert.Equal(t, 0, result.MaskedCells)
	assert.Equal(t, 0, result.RowsOut)
	assert.Empty(t, result.OutputPath)
	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "customers_masked.csv"))
	assert.True(t, os.IsNotExist(statErr))

	// The work done up to the halt is still reported.
	for _, name := range []string{"cleaning_log.txt", "pipeline_execution_report.txt"} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
		assert.NoError(t, err, "expected deliverable %s", name)
	}
}

func TestPipelineRunContinuesPastHaltSignal(t *testing.T) {
	table := customerTable()
	for _, idx := range []int{0, 1, 4, 5, 6, 7} {
		table.Records[idx]["income"] = float64(99000000)
	}

	cfg := pipelineConfig(t)
	cfg.HaltOnCritical = false
	p, err := NewPipeline(cfg, &stubSource{table: table}, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.HaltSignaled)
	assert.False(t, result.Halted)
	assert.True(t, result.Success)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "income_range")

	_, statErr := os.Stat(result.OutputPath)
	assert.NoError(t, statErr)
}

func TestPipelineRunWithoutRevalidation(t *testing.T) {
	cfg := pipelineConfig(t)
	cfg.Revalidate = false
	p, err := NewPipeline(cfg, &stubSource{table: customerTable()}, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 4, result.FailuresBefore)
	assert.Equal(t, 4, result.FailuresAfter)
}

func TestPipelineRunWithMaskPolicy(t *testing.T) {
	cfg := pipelineConfig(t)
	policyPath := filepath.Join(t.TempDir(), "masking.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte("categories:\n  - EMAIL\n  - PHONE\n"), 0o644))
	cfg.MaskPolicyPath = policyPath

	p, err := NewPipeline(cfg, &stubSource{table: customerTable()}, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)

	// Only the two covered columns are transformed, and verification
	// expects exactly that.
	assert.Equal(t, 20, result.MaskedCells)
	require.NotNil(t, result.Verification)
	assert.True(t, result.Verification.Passed())

	rows := readMaskedCSV(t, result.OutputPath)[1:]
	assert.Equal(t, "j*******@example.com", rows[0][3])
	assert.Equal(t, "***-***-4567", rows[0][4])
	assert.Equal(t, "John", rows[0][1])
	assert.Equal(t, "123 Main St New York NY 10001", rows[0][6])
}

func TestPipelineRunFetchFailure(t *testing.T) {
	cfg := pipelineConfig(t)
	src := &stubSource{fetchErr: errors.New("dial tcp 10.0.0.5:5432: connection refused")}
	p, err := NewPipeline(cfg, src, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest stage failed")

	require.NotNil(t, result)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ConnectionLevel, result.Errors[0].Category)
	assert.Equal(t, "ingest", result.Errors[0].Stage)
	assert.False(t, result.EndTime.IsZero())
}

func TestPipelineRunSchemaMismatch(t *testing.T) {
	table := model.NewTable("customers", []string{"customer_id", "email"})
	table.Append(model.Record{"customer_id": int64(1), "email": "a@b.com"})
	table.Append(model.Record{"customer_id": int64(2)})

	cfg := pipelineConfig(t)
	p, err := NewPipeline(cfg, &stubSource{table: table}, zap.NewNop())
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest stage failed")

	require.Len(t, result.Errors, 1)
	assert.Equal(t, SchemaMismatch, result.Errors[0].Category)
}

func TestNewPipelineValidation(t *testing.T) {
	cfg := pipelineConfig(t)
	src := &stubSource{table: customerTable()}

	_, err := NewPipeline(nil, src, zap.NewNop())
	assert.Error(t, err)

	_, err = NewPipeline(cfg, nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewPipeline(cfg, src, nil)
	assert.Error(t, err)

	bad := pipelineConfig(t)
	bad.ContractPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewPipeline(bad, src, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load contract")
}
