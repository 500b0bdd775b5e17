// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/audit"
	"github.com/fintech-data/pii-sentry/pkg/classify"
	"github.com/fintech-data/pii-sentry/pkg/config"
	"github.com/fintech-data/pii-sentry/pkg/mask"
	"github.com/fintech-data/pii-sentry/pkg/model"
	"github.com/fintech-data/pii-sentry/pkg/profile"
	"github.com/fintech-data/pii-sentry/pkg/remediate"
	"github.com/fintech-data/pii-sentry/pkg/report"
	"github.com/fintech-data/pii-sentry/pkg/source"
	"github.com/fintech-data/pii-sentry/pkg/validate"
)

// maskedSampleRows is how many rows the before/after masking sample
// deliverable shows
const maskedSampleRows = 5

// Pipeline executes the full detection and protection sequence for one
// dataset: ingest, profile, classify, validate, remediate, revalidate,
// mask, verify, export. Remediation happens strictly before masking;
// masked values are never fed back into remediation.
type Pipeline struct {
	cfg        *config.Config
	src        source.Source
	contract   *validate.Contract
	profiler   *profile.Profiler
	classifier *classify.Classifier
	validator  *validate.Engine
	masker     *mask.Masker
	maskPolicy *mask.Policy
	reporter   *report.Reporter
	verifier   *Verifier
	auditStore *audit.Store
	logger     *zap.Logger
	runID      string
	stageLines []string
	stageCount int
}

// NewPipeline creates a pipeline for the configured dataset
func NewPipeline(cfg *config.Config, src source.Source, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("configuration cannot be nil")
	}
	if src == nil {
		return nil, errors.New("source cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	contract, err := loadContract(cfg)
	if err != nil {
		return nil, err
	}

	profiler, err := profile.NewProfiler(cfg.DateFormats, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create profiler: %w", err)
	}

	classifier, err := classify.NewClassifier(classify.Options{
		MatchThreshold: cfg.PIIMatchThreshold,
		SampleSize:     cfg.SampleSize,
		DateFormats:    cfg.DateFormats,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	validator, err := validate.NewEngine(validate.Options{
		CriticalHaltFraction: cfg.CriticalHaltFraction,
		DateFormats:          cfg.DateFormats,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation engine: %w", err)
	}

	maskPolicy, err := loadMaskPolicy(cfg)
	if err != nil {
		return nil, err
	}

	masker, err := mask.NewMasker(mask.Options{
		StringPlaceholder: cfg.StringPlaceholder,
		Policy:            maskPolicy,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create masker: %w", err)
	}

	reporter, err := report.NewReporter(cfg.OutputDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reporter: %w", err)
	}

	verifier, err := NewVerifier(cfg.StringPlaceholder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create verifier: %w", err)
	}

	runID := uuid.New().String()

	return &Pipeline{
		cfg:        cfg,
		src:        src,
		contract:   contract,
		profiler:   profiler,
		classifier: classifier,
		validator:  validator,
		masker:     masker,
		maskPolicy: maskPolicy,
		reporter:   reporter,
		verifier:   verifier,
		logger:     logger.Named("pipeline").With(zap.String("runID", runID)),
		runID:      runID,
	}, nil
}

// WithAuditStore attaches an audit trail store. Audit failures degrade
// to warnings; they never fail a run.
func (p *Pipeline) WithAuditStore(store *audit.Store) *Pipeline {
	p.auditStore = store
	return p
}

// RunID returns the identifier audit rows are recorded under
func (p *Pipeline) RunID() string {
	return p.runID
}

// loadContract resolves the validation contract for a run
func loadContract(cfg *config.Config) (*validate.Contract, error) {
	if cfg.ContractPath == "" {
		return validate.DefaultContract(), nil
	}

	contract, err := validate.LoadContract(cfg.ContractPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	return contract, nil
}

// loadMaskPolicy resolves the masking policy for a run
func loadMaskPolicy(cfg *config.Config) (*mask.Policy, error) {
	if cfg.MaskPolicyPath == "" {
		return mask.DefaultPolicy(), nil
	}

	policy, err := mask.LoadPolicy(cfg.MaskPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load masking policy: %w", err)
	}
	return policy, nil
}

// Run executes every stage for the configured dataset. The returned
// result is populated even when the run fails partway; the error names
// the failing stage.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	result := NewRunResult(p.cfg.TableName)
	p.stageCount = 0
	p.stageLines = []string{
		"PIPELINE EXECUTION REPORT",
		"=========================",
		"",
		fmt.Sprintf("Dataset: %s", p.cfg.TableName),
		fmt.Sprintf("Run: %s", p.runID),
		fmt.Sprintf("Started: %s", result.StartTime.Format(time.RFC3339)),
		"",
		"STAGES:",
	}

	p.logger.Info("Starting pipeline run",
		zap.String("dataset", p.cfg.TableName),
		zap.String("source", p.cfg.Source))

	// Stage 1: ingest
	stageStart := time.Now()
	table, err := p.src.Fetch(ctx)
	if err != nil {
		return p.fail(result, "ingest", err)
	}
	if err := table.CheckSchema(); err != nil {
		return p.fail(result, "ingest", err)
	}
	result.RowsIn = table.RowCount()
	p.recordStage("ingest", stageStart,
		fmt.Sprintf("%d rows, %d fields", table.RowCount(), len(table.Fields)))

	// Stage 2: profile
	stageStart = time.Now()
	quality := p.profiler.Profile(table)
	schema := model.InferSchema(table)
	p.recordStage("profile", stageStart,
		fmt.Sprintf("%d fields profiled", len(quality.Fields)))

	if err := p.reporter.WriteQualityProfile(quality, schema); err != nil {
		result.AddWarning(fmt.Sprintf("quality profile not written: %v", err))
	}

	// Stage 3: classify
	stageStart = time.Now()
	classification := p.classifier.Classify(table)
	result.PIIFields = len(classification.PIIFields())
	p.recordStage("classify", stageStart,
		fmt.Sprintf("%d PII fields detected", result.PIIFields))

	if err := p.reporter.WritePIIDetection(classification, table.RowCount()); err != nil {
		result.AddWarning(fmt.Sprintf("PII detection report not written: %v", err))
	}

	// Stage 4: validate the raw data
	stageStart = time.Now()
	initial, err := p.validator.Validate(table, p.contract)
	if err != nil {
		return p.fail(result, "validate", err)
	}
	p.recordStage("validate", stageStart,
		fmt.Sprintf("%d of %d rules failed", len(initial.Failed()), len(initial.Results)))

	if err := p.reporter.WriteValidation(initial, table); err != nil {
		result.AddWarning(fmt.Sprintf("validation report not written: %v", err))
	}
	p.auditValidation(ctx, result, audit.PhaseInitial, initial)

	// Stage 5: remediate
	stageStart = time.Now()
	engine, err := remediate.NewEngine(remediate.Options{
		DateFormats:       p.cfg.DateFormats,
		PhoneDigitLength:  p.cfg.PhoneDigitLength,
		StringPlaceholder: p.cfg.StringPlaceholder,
		NumberPlaceholder: p.cfg.NumberPlaceholder,
		ImputeOverrides:   p.cfg.ImputeOverrides,
		DropFields:        p.cfg.DropFields,
	}, schema, classification, p.logger)
	if err != nil {
		return p.fail(result, "remediate", err)
	}

	cleaned, actions := engine.Remediate(table, quality, initial)
	result.Actions = len(actions)
	p.recordStage("remediate", stageStart,
		fmt.Sprintf("%d actions applied", len(actions)))

	if p.auditStore != nil {
		if err := p.auditStore.RecordRemediationActions(ctx, p.runID, cleaned.Name, actions); err != nil {
			p.logger.Warn("Failed to record remediation audit", zap.Error(err))
			result.AddWarning(fmt.Sprintf("remediation audit not recorded: %v", err))
		}
	}

	// Stage 6: revalidate the cleaned data
	final := initial
	failuresBefore := len(initial.Failed())
	failuresAfter := failuresBefore

	if p.cfg.Revalidate {
		stageStart = time.Now()
		final, err = p.validator.Validate(cleaned, p.contract)
		if err != nil {
			return p.fail(result, "revalidate", err)
		}
		failuresAfter = len(final.Failed())
		p.recordStage("revalidate", stageStart,
			fmt.Sprintf("%d of %d rules failed (was %d)", failuresAfter, len(final.Results), failuresBefore))

		p.auditValidation(ctx, result, audit.PhasePostRemediation, final)
	} else {
		p.recordStageNote("revalidate", "skipped, revalidation disabled")
	}

	result.FailuresBefore = failuresBefore
	result.FailuresAfter = failuresAfter

	// The halt signal is evaluated on the most recent validation pass.
	// Without HALT_ON_CRITICAL it is reported but the run continues.
	result.HaltSignaled = final.Halt
	if final.Halt {
		p.logger.Warn("Critical validation failures above halt threshold",
			zap.String("dataset", result.Dataset),
			zap.Strings("rules", final.HaltRules))

		if p.cfg.HaltOnCritical {
			return p.halt(result, final, actions, failuresBefore, failuresAfter, cleaned)
		}

		result.AddWarning(fmt.Sprintf("halt signal raised by rules: %s",
			strings.Join(final.HaltRules, ", ")))
	}

	if err := p.reporter.WriteCleaningLog(actions, failuresBefore, failuresAfter, cleaned); err != nil {
		result.AddWarning(fmt.Sprintf("cleaning log not written: %v", err))
	}

	// Stage 7: mask
	stageStart = time.Now()
	masked := p.masker.Mask(cleaned, classification)
	result.MaskedCells = countMaskedCells(cleaned, masked, classification)
	p.recordStage("mask", stageStart,
		fmt.Sprintf("%d cells masked across %d fields", result.MaskedCells, result.PIIFields))

	if err := p.reporter.WriteMaskedSample(cleaned, masked, maskedSampleRows); err != nil {
		result.AddWarning(fmt.Sprintf("masked sample not written: %v", err))
	}

	// Stage 8: verify
	// Fields the policy excludes from masking are not expected to be
	// masked in the output.
	stageStart = time.Now()
	verification := p.verifier.Verify(table, cleaned, masked, p.maskPolicy.Filter(classification))
	result.Verification = verification
	if verification.Passed() {
		p.recordStage("verify", stageStart, "all checks passed")
	} else {
		p.recordStage("verify", stageStart, "discrepancies found, see warnings")
		result.AddWarning(fmt.Sprintf(
			"output verification reported discrepancies: rowCount=%t columns=%t nullFree=%t masking=%t",
			verification.RowCountMatches, verification.ColumnsMatch,
			verification.NullFree, verification.MaskingVerified))
	}

	// Stage 9: export
	stageStart = time.Now()
	outputPath := filepath.Join(p.cfg.OutputDir, masked.Name+"_masked.csv")
	if err := source.ExportCSV(masked, outputPath); err != nil {
		return p.fail(result, "export", err)
	}
	result.RowsOut = masked.RowCount()
	result.OutputPath = outputPath
	p.recordStage("export", stageStart, outputPath)

	result.Complete(true)
	p.appendRunSummary(result, "COMPLETED")

	if err := p.reporter.WriteExecutionReport(p.stageLines); err != nil {
		result.AddWarning(fmt.Sprintf("execution report not written: %v", err))
	}

	p.logger.Info("Pipeline run completed",
		zap.String("dataset", result.Dataset),
		zap.Int("rowsIn", result.RowsIn),
		zap.Int("rowsOut", result.RowsOut),
		zap.Int("piiFields", result.PIIFields),
		zap.Int("actions", result.Actions),
		zap.Int("maskedCells", result.MaskedCells),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// halt stops the run before masking and export. Remediation results
// are still persisted so the failures can be reviewed, but no masked
// output leaves the pipeline. A halt is a policy outcome, not an
// error.
func (p *Pipeline) halt(
	result *RunResult,
	final *model.ValidationReport,
	actions []model.RemediationAction,
	failuresBefore, failuresAfter int,
	cleaned *model.Table,
) (*RunResult, error) {
	result.Halted = true

	p.recordStageNote("halt",
		fmt.Sprintf("stopped before masking, rules: %s", strings.Join(final.HaltRules, ", ")))

	if err := p.reporter.WriteCleaningLog(actions, failuresBefore, failuresAfter, cleaned); err != nil {
		result.AddWarning(fmt.Sprintf("cleaning log not written: %v", err))
	}

	result.Complete(false)
	p.appendRunSummary(result, "HALTED")

	if err := p.reporter.WriteExecutionReport(p.stageLines); err != nil {
		result.AddWarning(fmt.Sprintf("execution report not written: %v", err))
	}

	p.logger.Warn("Pipeline run halted",
		zap.String("dataset", result.Dataset),
		zap.Strings("rules", final.HaltRules),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// fail records the failing stage, finalizes the result, and surfaces
// the stage error to the caller
func (p *Pipeline) fail(result *RunResult, stage string, err error) (*RunResult, error) {
	record := NewErrorRecord(err, CategorizeError(err)).
		WithDataset(result.Dataset).
		WithStage(stage)
	result.AddError(record)

	p.stageCount++
	p.stageLines = append(p.stageLines,
		fmt.Sprintf("%d. %s: FAILED: %v", p.stageCount, stage, err))

	result.Complete(false)
	p.appendRunSummary(result, "FAILED")

	// Best effort: keep whatever the run produced reviewable
	if writeErr := p.reporter.WriteExecutionReport(p.stageLines); writeErr != nil {
		p.logger.Warn("Failed to write execution report", zap.Error(writeErr))
	}

	p.logger.Error("Pipeline stage failed",
		zap.String("dataset", result.Dataset),
		zap.String("stage", stage),
		zap.Error(err))

	return result, fmt.Errorf("%s stage failed: %w", stage, err)
}

// auditValidation records a validation report on the audit trail when
// a store is attached
func (p *Pipeline) auditValidation(ctx context.Context, result *RunResult, phase string, report *model.ValidationReport) {
	if p.auditStore == nil {
		return
	}

	if err := p.auditStore.RecordValidationReport(ctx, p.runID, phase, report); err != nil {
		p.logger.Warn("Failed to record validation audit",
			zap.String("phase", phase),
			zap.Error(err))
		result.AddWarning(fmt.Sprintf("validation audit not recorded for phase %s: %v", phase, err))
	}
}

// recordStage appends a completed stage to the execution log
func (p *Pipeline) recordStage(name string, start time.Time, detail string) {
	elapsed := time.Since(start)
	p.stageCount++
	p.stageLines = append(p.stageLines,
		fmt.Sprintf("%d. %s (%s): %s", p.stageCount, name, formatDuration(elapsed), detail))

	p.logger.Info("Stage completed",
		zap.String("stage", name),
		zap.String("detail", detail),
		zap.Duration("duration", elapsed))
}

// recordStageNote appends a stage entry that has no duration, such as
// a skip or a halt
func (p *Pipeline) recordStageNote(name, note string) {
	p.stageCount++
	p.stageLines = append(p.stageLines,
		fmt.Sprintf("%d. %s: %s", p.stageCount, name, note))

	p.logger.Info("Stage noted",
		zap.String("stage", name),
		zap.String("note", note))
}

// appendRunSummary closes the execution log with the run outcome
func (p *Pipeline) appendRunSummary(result *RunResult, status string) {
	p.stageLines = append(p.stageLines,
		"",
		"RESULT:",
		fmt.Sprintf("- Status: %s", status),
		fmt.Sprintf("- Rows: %d in, %d out", result.RowsIn, result.RowsOut),
		fmt.Sprintf("- PII fields: %d", result.PIIFields),
		fmt.Sprintf("- Remediation actions: %d", result.Actions),
		fmt.Sprintf("- Masked cells: %d", result.MaskedCells),
		fmt.Sprintf("- Warnings: %d", len(result.Warnings)),
		fmt.Sprintf("- Duration: %s", formatDuration(result.Duration)))
}
