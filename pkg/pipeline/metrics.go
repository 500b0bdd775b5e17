// pkg/pipeline/metrics.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DatasetMetrics tracks metrics for a single dataset run
type DatasetMetrics struct {
	Dataset        string
	StartTime      time.Time
	EndTime        time.Time
	RowsIn         int
	RowsOut        int
	PIIFields      int
	Actions        int
	MaskedCells    int
	FailuresBefore int
	FailuresAfter  int
	Retries        int
}

// NewDatasetMetrics creates a new dataset metrics tracker
func NewDatasetMetrics(dataset string) *DatasetMetrics {
	return &DatasetMetrics{
		Dataset:   dataset,
		StartTime: time.Now(),
	}
}

// Duration returns the total duration of the dataset run
func (dm *DatasetMetrics) Duration() time.Duration {
	if dm.EndTime.IsZero() {
		return time.Since(dm.StartTime)
	}
	return dm.EndTime.Sub(dm.StartTime)
}

// RunMetrics tracks metrics across a batch of dataset runs
type RunMetrics struct {
	mu                 sync.Mutex
	logger             *zap.Logger
	StartTime          time.Time
	EndTime            time.Time
	DatasetMetrics     map[string]*DatasetMetrics
	SuccessfulDatasets int
	FailedDatasets     int
	HaltedDatasets     int
	TotalRowsIn        int64
	TotalRowsOut       int64
	TotalActions       int
	TotalMaskedCells   int
	ErrorCounts        map[ErrorCategory]int
	WorkerUtilization  map[int]time.Duration
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		StartTime:         time.Now(),
		DatasetMetrics:    make(map[string]*DatasetMetrics),
		ErrorCounts:       make(map[ErrorCategory]int),
		WorkerUtilization: make(map[int]time.Duration),
		logger:            logger,
	}
}

// StartDataset begins tracking metrics for a dataset
func (rm *RunMetrics) StartDataset(dataset string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	dm := NewDatasetMetrics(dataset)
	rm.DatasetMetrics[dataset] = dm

	if rm.logger != nil {
		rm.logger.Info("Started dataset run",
			zap.String("dataset", dataset),
			zap.Time("startTime", dm.StartTime))
	}
}

// RecordResult records metrics for a completed dataset run
func (rm *RunMetrics) RecordResult(result RunResult) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.TotalRowsIn += int64(result.RowsIn)
	rm.TotalRowsOut += int64(result.RowsOut)
	rm.TotalActions += result.Actions
	rm.TotalMaskedCells += result.MaskedCells

	switch {
	case result.Halted:
		rm.HaltedDatasets++
	case result.Success:
		rm.SuccessfulDatasets++
	default:
		rm.FailedDatasets++
		for _, err := range result.Errors {
			rm.RecordError(err.Category)
		}
	}

	dm, exists := rm.DatasetMetrics[result.Dataset]
	if exists {
		dm.EndTime = time.Now()
		dm.RowsIn = result.RowsIn
		dm.RowsOut = result.RowsOut
		dm.PIIFields = result.PIIFields
		dm.Actions = result.Actions
		dm.MaskedCells = result.MaskedCells
		dm.FailuresBefore = result.FailuresBefore
		dm.FailuresAfter = result.FailuresAfter
		dm.Retries = result.RetryCount
	}

	rm.WorkerUtilization[result.WorkerID] += result.Duration

	if rm.logger != nil {
		rm.logger.Info("Dataset run completed",
			zap.String("dataset", result.Dataset),
			zap.Bool("success", result.Success),
			zap.Bool("halted", result.Halted),
			zap.Int("rowsIn", result.RowsIn),
			zap.Int("rowsOut", result.RowsOut),
			zap.Int("actions", result.Actions),
			zap.Duration("duration", result.Duration),
			zap.Int("worker", result.WorkerID))
	}
}

// RecordError increments the count for a specific error category
func (rm *RunMetrics) RecordError(category ErrorCategory) {
	// No lock needed as this is always called from within a locked method
	rm.ErrorCounts[category]++
}

// Complete marks the batch as complete
func (rm *RunMetrics) Complete() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.EndTime = time.Now()

	if rm.logger != nil {
		duration := rm.EndTime.Sub(rm.StartTime)
		rm.logger.Info("Batch completed",
			zap.Duration("totalDuration", duration),
			zap.Int("successfulDatasets", rm.SuccessfulDatasets),
			zap.Int("failedDatasets", rm.FailedDatasets),
			zap.Int("haltedDatasets", rm.HaltedDatasets),
			zap.Int64("totalRows", rm.TotalRowsIn),
			zap.Float64("throughput", rm.CalculateThroughput()))
	}
}

// CalculateThroughput calculates the rows/second throughput
func (rm *RunMetrics) CalculateThroughput() float64 {
	duration := rm.Duration().Seconds()
	if duration <= 0 {
		return 0
	}
	return float64(rm.TotalRowsIn) / duration
}

// Duration returns the total duration of the batch
func (rm *RunMetrics) Duration() time.Duration {
	if rm.EndTime.IsZero() {
		return time.Since(rm.StartTime)
	}
	return rm.EndTime.Sub(rm.StartTime)
}

// GetWorkerEfficiency calculates worker efficiency metrics
func (rm *RunMetrics) GetWorkerEfficiency() map[int]float64 {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	efficiency := make(map[int]float64)
	totalDuration := rm.Duration()

	if totalDuration <= 0 {
		return efficiency
	}

	for workerID, duration := range rm.WorkerUtilization {
		efficiency[workerID] = float64(duration) / float64(totalDuration)
	}

	return efficiency
}

// GenerateBatchSummary creates a BatchSummary from metrics
func (rm *RunMetrics) GenerateBatchSummary() *BatchSummary {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	datasets := make([]string, 0, len(rm.DatasetMetrics))
	for dataset := range rm.DatasetMetrics {
		datasets = append(datasets, dataset)
	}

	endTime := rm.EndTime
	if endTime.IsZero() {
		endTime = time.Now()
	}

	summary := &BatchSummary{
		Datasets:           datasets,
		TotalDatasets:      rm.SuccessfulDatasets + rm.FailedDatasets + rm.HaltedDatasets,
		SuccessfulDatasets: rm.SuccessfulDatasets,
		FailedDatasets:     rm.FailedDatasets,
		HaltedDatasets:     rm.HaltedDatasets,
		TotalRows:          rm.TotalRowsIn,
		TotalActions:       rm.TotalActions,
		TotalMaskedCells:   rm.TotalMaskedCells,
		ErrorCategories:    rm.ErrorCounts,
		Duration:           rm.Duration(),
		StartTime:          rm.StartTime,
		EndTime:            endTime,
		Throughput:         rm.CalculateThroughput(),
	}

	return summary
}

// GenerateReport creates a human-readable batch metrics report
func (rm *RunMetrics) GenerateReport() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	total := rm.SuccessfulDatasets + rm.FailedDatasets + rm.HaltedDatasets

	report := fmt.Sprintf(`
Batch Metrics Report
====================
Duration:              %s
Start Time:            %s

Datasets Summary
----------------
Total Datasets:        %d
Successful Datasets:   %d (%.1f%%)
Failed Datasets:       %d (%.1f%%)
Halted Datasets:       %d (%.1f%%)

Data Summary
------------
Total Rows In:         %d
Total Rows Out:        %d
Remediation Actions:   %d
Masked Cells:          %d
Average Throughput:    %.2f rows/sec
`,
		formatDuration(rm.Duration()),
		rm.StartTime.Format(time.RFC3339),

		total,
		rm.SuccessfulDatasets, getPercentage(float64(rm.SuccessfulDatasets), float64(total)),
		rm.FailedDatasets, getPercentage(float64(rm.FailedDatasets), float64(total)),
		rm.HaltedDatasets, getPercentage(float64(rm.HaltedDatasets), float64(total)),

		rm.TotalRowsIn,
		rm.TotalRowsOut,
		rm.TotalActions,
		rm.TotalMaskedCells,
		rm.CalculateThroughput(),
	)

	report += "\nDataset Details\n---------------\n"
	for name, metrics := range rm.DatasetMetrics {
		report += fmt.Sprintf("- %s: %d rows, %d actions, %d masked cells, failures %d -> %d, %s\n",
			name,
			metrics.RowsIn,
			metrics.Actions,
			metrics.MaskedCells,
			metrics.FailuresBefore,
			metrics.FailuresAfter,
			formatDuration(metrics.Duration()))
	}

	if len(rm.ErrorCounts) > 0 {
		report += "\nError Distribution\n------------------\n"
		for category, count := range rm.ErrorCounts {
			report += fmt.Sprintf("- %s: %d\n", category.String(), count)
		}
	}

	return report
}

// ToJSON serializes metrics to JSON
func (rm *RunMetrics) ToJSON() ([]byte, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	errorCounts := make(map[string]int, len(rm.ErrorCounts))
	for category, count := range rm.ErrorCounts {
		errorCounts[category.String()] = count
	}

	return json.Marshal(struct {
		Duration           string         `json:"duration"`
		SuccessfulDatasets int            `json:"successfulDatasets"`
		FailedDatasets     int            `json:"failedDatasets"`
		HaltedDatasets     int            `json:"haltedDatasets"`
		TotalRowsIn        int64          `json:"totalRowsIn"`
		TotalRowsOut       int64          `json:"totalRowsOut"`
		TotalActions       int            `json:"totalActions"`
		TotalMaskedCells   int            `json:"totalMaskedCells"`
		Throughput         float64        `json:"throughput"`
		ErrorCounts        map[string]int `json:"errorCounts"`
	}{
		Duration:           formatDuration(rm.Duration()),
		SuccessfulDatasets: rm.SuccessfulDatasets,
		FailedDatasets:     rm.FailedDatasets,
		HaltedDatasets:     rm.HaltedDatasets,
		TotalRowsIn:        rm.TotalRowsIn,
		TotalRowsOut:       rm.TotalRowsOut,
		TotalActions:       rm.TotalActions,
		TotalMaskedCells:   rm.TotalMaskedCells,
		Throughput:         rm.CalculateThroughput(),
		ErrorCounts:        errorCounts,
	})
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// getPercentage safely calculates a percentage, avoiding division by zero
func getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}
