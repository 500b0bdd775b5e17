// pkg/pipeline/job.go
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// DatasetJob represents one dataset queued for a full pipeline run
type DatasetJob struct {
	ID         string    // Unique job identifier
	Dataset    string    // Logical dataset name, also the source table name
	Priority   int       // Job priority (higher = more important)
	CreatedAt  time.Time // Job creation timestamp
	RetryCount int       // Number of retries attempted
	MaxRetries int       // Maximum allowed retries
}

// NewDatasetJob creates a new dataset job with defaults
func NewDatasetJob(dataset string) DatasetJob {
	return DatasetJob{
		ID:         uuid.New().String(),
		Dataset:    dataset,
		Priority:   1, // Default priority
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3, // Default max retries
	}
}

// WithPriority sets the job priority and returns the modified job
func (j DatasetJob) WithPriority(priority int) DatasetJob {
	j.Priority = priority
	return j
}

// WithMaxRetries sets the maximum retry count and returns the modified job
func (j DatasetJob) WithMaxRetries(maxRetries int) DatasetJob {
	j.MaxRetries = maxRetries
	return j
}

// IsRetryable checks if the job can be retried
func (j DatasetJob) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// Retry increments the retry count and returns the modified job
func (j DatasetJob) Retry() DatasetJob {
	j.RetryCount++
	return j
}

// RunResult represents the outcome of one dataset pipeline run
type RunResult struct {
	JobID        string
	Dataset      string
	Success      bool
	HaltSignaled bool // A CRITICAL rule tripped the halt threshold
	Halted       bool // The orchestrator acted on the signal and stopped

	RowsIn         int
	RowsOut        int
	PIIFields      int
	Actions        int // Remediation actions applied
	MaskedCells    int
	FailuresBefore int // Failed contract rules before remediation
	FailuresAfter  int // Failed contract rules after remediation

	OutputPath   string
	Verification *VerificationReport

	Errors   []ErrorRecord
	Warnings []string

	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	RetryCount int
	WorkerID   int
}

// NewRunResult initializes a run result for a dataset
func NewRunResult(dataset string) *RunResult {
	return &RunResult{
		Dataset:   dataset,
		StartTime: time.Now(),
		Errors:    make([]ErrorRecord, 0),
		Warnings:  make([]string, 0),
	}
}

// Complete marks the run as complete and calculates duration
func (r *RunResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success
}

// AddError adds an error to the result
func (r *RunResult) AddError(err ErrorRecord) {
	r.Errors = append(r.Errors, err)
	r.Success = false
}

// AddWarning adds a warning to the result
func (r *RunResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// ErrorCount returns the number of errors
func (r *RunResult) ErrorCount() int {
	return len(r.Errors)
}

// HasErrors checks if any errors occurred
func (r *RunResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// BatchSummary represents the final summary of a batch of dataset runs
type BatchSummary struct {
	Datasets           []string
	TotalDatasets      int
	SuccessfulDatasets int
	FailedDatasets     int
	HaltedDatasets     int
	TotalRows          int64
	TotalActions       int
	TotalMaskedCells   int
	ErrorCategories    map[ErrorCategory]int
	Duration           time.Duration
	StartTime          time.Time
	EndTime            time.Time
	Throughput         float64 // rows/second
}

// NewBatchSummary initializes a new batch summary
func NewBatchSummary() *BatchSummary {
	return &BatchSummary{
		Datasets:        make([]string, 0),
		StartTime:       time.Now(),
		ErrorCategories: make(map[ErrorCategory]int),
	}
}

// Complete marks the batch as complete and calculates metrics
func (s *BatchSummary) Complete() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	if s.Duration.Seconds() > 0 {
		s.Throughput = float64(s.TotalRows) / s.Duration.Seconds()
	}
}

// OverallSuccessRate returns the percentage of datasets fully processed
func (s *BatchSummary) OverallSuccessRate() float64 {
	if s.TotalDatasets == 0 {
		return 0
	}
	return float64(s.SuccessfulDatasets) / float64(s.TotalDatasets) * 100
}
