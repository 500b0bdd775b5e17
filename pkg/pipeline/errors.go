// pkg/pipeline/errors.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Action defines the recommended action after an error
type Action int

const (
	// ActionContinue indicates processing should continue despite the error
	ActionContinue Action = iota
	// ActionRetry indicates the dataset job should be retried
	ActionRetry
	// ActionSkipDataset indicates the current dataset should be skipped
	ActionSkipDataset
	// ActionAbort indicates the entire batch should be aborted
	ActionAbort
)

// ErrorCategory defines categories of errors during a run
type ErrorCategory int

const (
	// Error categories with increasing severity
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryMalformedValue
	ErrorCategoryContractViolation
	ErrorCategoryDatasetLevel
	ErrorCategoryConnectionLevel
	ErrorCategorySchemaMismatch
	ErrorCategorySystemLevel
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryMalformedValue:
		return "MalformedValue"
	case ErrorCategoryContractViolation:
		return "ContractViolation"
	case ErrorCategoryDatasetLevel:
		return "DatasetLevel"
	case ErrorCategoryConnectionLevel:
		return "ConnectionLevel"
	case ErrorCategorySchemaMismatch:
		return "SchemaMismatch"
	case ErrorCategorySystemLevel:
		return "SystemLevel"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// ErrorRecord represents a single error during a pipeline run
type ErrorRecord struct {
	Category    ErrorCategory
	Dataset     string
	Stage       string
	Field       string
	Err         error
	Message     string // Derived from Err but stored for serialization
	Timestamp   time.Time
	RetryCount  int
	Recoverable bool
}

// NewErrorRecord creates a new error record with current timestamp.
// Recoverability follows the category ladder: everything below
// SchemaMismatch can in principle be retried or skipped past.
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	record := ErrorRecord{
		Category:    category,
		Err:         err,
		Timestamp:   time.Now(),
		Recoverable: category < ErrorCategorySchemaMismatch,
	}

	if err != nil {
		record.Message = err.Error()
	}

	return record
}

// WithDataset adds dataset information to the error record
func (r ErrorRecord) WithDataset(dataset string) ErrorRecord {
	r.Dataset = dataset
	return r
}

// WithStage adds the pipeline stage that produced the error
func (r ErrorRecord) WithStage(stage string) ErrorRecord {
	r.Stage = stage
	return r
}

// WithField adds column information to the error record
func (r ErrorRecord) WithField(field string) ErrorRecord {
	r.Field = field
	return r
}

// WithRetry sets retry information
func (r ErrorRecord) WithRetry(retryCount int) ErrorRecord {
	r.RetryCount = retryCount
	r.Recoverable = r.Category < ErrorCategorySchemaMismatch && retryCount < 3
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.Dataset != "" {
		sb.WriteString(fmt.Sprintf("Dataset: %s ", r.Dataset))
	}

	if r.Stage != "" {
		sb.WriteString(fmt.Sprintf("Stage: %s ", r.Stage))
	}

	if r.Field != "" {
		sb.WriteString(fmt.Sprintf("Field: %s ", r.Field))
	}

	if r.Err != nil {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Err.Error()))
	} else if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	if r.RetryCount > 0 {
		sb.WriteString(fmt.Sprintf(" (Retry: %d)", r.RetryCount))
	}

	return sb.String()
}

// CategorizeError maps an error to its category. Schema mismatches are
// recognized by sentinel, everything else by message shape, mirroring
// how the errors actually surface from the sources and engines.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	if errors.Is(err, model.ErrSchemaMismatch) {
		return ErrorCategorySchemaMismatch
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "ping") ||
		strings.Contains(msg, "EOF"):
		return ErrorCategoryConnectionLevel

	case strings.Contains(msg, "parse") ||
		strings.Contains(msg, "convert") ||
		strings.Contains(msg, "unmarshal"):
		return ErrorCategoryMalformedValue

	case strings.Contains(msg, "contract") ||
		strings.Contains(msg, "configuration") ||
		strings.Contains(msg, "cannot be nil") ||
		strings.Contains(msg, "cannot be empty"):
		return ErrorCategorySystemLevel

	case strings.Contains(msg, "permission") ||
		strings.Contains(msg, "disk") ||
		strings.Contains(msg, "memory"):
		return ErrorCategorySystemLevel

	default:
		return ErrorCategoryDatasetLevel
	}
}

// ErrorHandler manages error handling across a batch of dataset runs
type ErrorHandler struct {
	logger          *zap.Logger
	errorThresholds map[ErrorCategory]int
	errorCounts     map[ErrorCategory]int
	sampleErrors    map[ErrorCategory][]ErrorRecord
	datasetErrors   map[string]int
	mu              sync.Mutex
	maxSamples      int
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	// Default error thresholds by category
	defaultThresholds := map[ErrorCategory]int{
		ErrorCategoryMalformedValue:    1000, // Malformed cells are remediated, never aborted on
		ErrorCategoryContractViolation: 500,  // Violations are surfaced through reports
		ErrorCategoryDatasetLevel:      10,   // A few whole-dataset failures acceptable
		ErrorCategoryConnectionLevel:   3,    // Very few connection errors acceptable
		ErrorCategorySchemaMismatch:    5,    // Mismatched datasets skipped, not fought
		ErrorCategorySystemLevel:       1,    // Almost no system errors acceptable
	}

	thresholds := make(map[ErrorCategory]int)
	for category, threshold := range defaultThresholds {
		thresholds[category] = threshold
	}

	return &ErrorHandler{
		logger:          logger,
		errorThresholds: thresholds,
		errorCounts:     make(map[ErrorCategory]int),
		sampleErrors:    make(map[ErrorCategory][]ErrorRecord),
		datasetErrors:   make(map[string]int),
		maxSamples:      5, // Store up to 5 sample errors per category
	}
}

// Categorize determines the category of an error
func (eh *ErrorHandler) Categorize(err error) ErrorCategory {
	category := CategorizeError(err)

	if err != nil && eh.logger != nil {
		eh.logger.Debug("Categorized error",
			zap.String("error", err.Error()),
			zap.String("category", category.String()))
	}

	return category
}

// Handle processes an error and determines the follow-up action
func (eh *ErrorHandler) Handle(record ErrorRecord) Action {
	eh.Record(record)

	switch record.Category {
	case ErrorCategoryNone, ErrorCategoryMalformedValue, ErrorCategoryContractViolation:
		return ActionContinue

	case ErrorCategoryDatasetLevel:
		if record.Recoverable && record.RetryCount < 3 {
			return ActionRetry
		}
		return ActionSkipDataset

	case ErrorCategoryConnectionLevel:
		if record.RetryCount < 3 {
			if eh.logger != nil {
				eh.logger.Warn("Retrying after connection error",
					zap.String("dataset", record.Dataset),
					zap.Int("retry", record.RetryCount+1),
					zap.String("error", record.Message))
			}
			return ActionRetry
		}
		return ActionSkipDataset

	case ErrorCategorySchemaMismatch:
		// The only fatal precondition: fail the dataset fast, no retry
		return ActionSkipDataset

	case ErrorCategorySystemLevel:
		if eh.logger != nil {
			eh.logger.Error("System error during pipeline run",
				zap.String("category", record.Category.String()),
				zap.String("error", record.Message))
		}
		return ActionAbort

	default:
		return ActionContinue
	}
}

// ShouldRetry determines if a dataset job should be retried
func (eh *ErrorHandler) ShouldRetry(record ErrorRecord) bool {
	if record.RetryCount >= 3 {
		return false
	}

	switch record.Category {
	case ErrorCategoryConnectionLevel:
		// Always retry connection errors up to the limit
		return true

	case ErrorCategoryDatasetLevel:
		return record.Recoverable

	case ErrorCategorySchemaMismatch, ErrorCategorySystemLevel:
		// Never retry: the input or the host is wrong, not the attempt
		return false

	default:
		return false
	}
}

// Record saves an error occurrence
func (eh *ErrorHandler) Record(record ErrorRecord) {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	eh.errorCounts[record.Category]++

	samples := eh.sampleErrors[record.Category]
	if len(samples) < eh.maxSamples {
		eh.sampleErrors[record.Category] = append(samples, record)
	}

	if record.Dataset != "" {
		eh.datasetErrors[record.Dataset]++
	}

	if eh.logger != nil {
		logLevel := zap.InfoLevel

		switch record.Category {
		case ErrorCategoryConnectionLevel, ErrorCategorySchemaMismatch:
			logLevel = zap.WarnLevel
		case ErrorCategorySystemLevel:
			logLevel = zap.ErrorLevel
		default:
			logLevel = zap.InfoLevel
		}

		eh.logger.Log(logLevel, "Pipeline error",
			zap.String("category", record.Category.String()),
			zap.String("dataset", record.Dataset),
			zap.String("stage", record.Stage),
			zap.String("error", record.Message),
			zap.Bool("recoverable", record.Recoverable),
			zap.Int("retryCount", record.RetryCount))
	}
}

// Summary generates an error summary report
func (eh *ErrorHandler) Summary() map[ErrorCategory]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	summary := make(map[ErrorCategory]int)
	for category, count := range eh.errorCounts {
		summary[category] = count
	}

	return summary
}

// Samples returns sample errors for each category
func (eh *ErrorHandler) Samples() map[ErrorCategory][]ErrorRecord {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	samples := make(map[ErrorCategory][]ErrorRecord)
	for category, records := range eh.sampleErrors {
		categorySamples := make([]ErrorRecord, len(records))
		copy(categorySamples, records)
		samples[category] = categorySamples
	}

	return samples
}

// DatasetErrorCounts returns error counts by dataset
func (eh *ErrorHandler) DatasetErrorCounts() map[string]int {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	counts := make(map[string]int)
	for dataset, count := range eh.datasetErrors {
		counts[dataset] = count
	}

	return counts
}

// ThresholdExceeded checks if any error category has exceeded its threshold
func (eh *ErrorHandler) ThresholdExceeded() bool {
	eh.mu.Lock()
	defer eh.mu.Unlock()

	for category, count := range eh.errorCounts {
		threshold, exists := eh.errorThresholds[category]
		if exists && count > threshold {
			return true
		}
	}

	return false
}

// WrapError creates a new error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsRetryableError checks if an error should be retried based on its type/message
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errorMsg := strings.ToLower(err.Error())
	return strings.Contains(errorMsg, "connection reset") ||
		strings.Contains(errorMsg, "connection refused") ||
		strings.Contains(errorMsg, "timeout") ||
		strings.Contains(errorMsg, "temporary") ||
		strings.Contains(errorMsg, "deadline") ||
		strings.Contains(errorMsg, "try again") ||
		strings.Contains(errorMsg, "too many connections")
}
