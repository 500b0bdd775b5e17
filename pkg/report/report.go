// pkg/report/report.go
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Deliverable file names under the output directory
const (
	QualityProfileFile  = "data_quality_profile.txt"
	PIIDetectionFile    = "pii_detection_report.txt"
	ValidationFile      = "validation_results.txt"
	CleaningLogFile     = "cleaning_log.txt"
	MaskedSampleFile    = "masked_sample.txt"
	ExecutionReportFile = "pipeline_execution_report.txt"
)

// Reporter writes the pipeline's textual deliverables to the output
// directory
type Reporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewReporter creates a reporter and ensures the output directory
// exists
func NewReporter(outputDir string, logger *zap.Logger) (*Reporter, error) {
	if outputDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Reporter{
		outputDir: outputDir,
		logger:    logger.Named("reporter"),
	}, nil
}

// WriteQualityProfile persists the quality profile deliverable
func (r *Reporter) WriteQualityProfile(q *model.QualityReport, schema model.Schema) error {
	return r.write(QualityProfileFile, RenderQualityProfile(q, schema))
}

// WritePIIDetection persists the PII detection deliverable
func (r *Reporter) WritePIIDetection(c model.Classification, rowCount int) error {
	return r.write(PIIDetectionFile, RenderPIIDetection(c, rowCount))
}

// WriteValidation persists the validation results deliverable
func (r *Reporter) WriteValidation(v *model.ValidationReport, t *model.Table) error {
	return r.write(ValidationFile, RenderValidation(v, t))
}

// WriteCleaningLog persists the cleaning log deliverable
func (r *Reporter) WriteCleaningLog(actions []model.RemediationAction, failuresBefore, failuresAfter int, out *model.Table) error {
	return r.write(CleaningLogFile, RenderCleaningLog(actions, failuresBefore, failuresAfter, out))
}

// WriteMaskedSample persists the before/after masking sample
func (r *Reporter) WriteMaskedSample(original, masked *model.Table, sampleRows int) error {
	return r.write(MaskedSampleFile, RenderMaskedSample(original, masked, sampleRows))
}

// WriteExecutionReport persists the captured stage log
func (r *Reporter) WriteExecutionReport(stageLines []string) error {
	return r.write(ExecutionReportFile, RenderExecutionReport(stageLines))
}

func (r *Reporter) write(name, content string) error {
	path := filepath.Join(r.outputDir, name)
	if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", name, err)
	}

	r.logger.Info("report saved", zap.String("path", path))
	return nil
}
