// pkg/pipeline/runner.go
package pipeline

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/config"
)

// maxWorkers caps the pool size regardless of configuration. Each run
// holds a source connection and writes its own deliverables, so a
// large pool buys little.
const maxWorkers = 8

// WorkerState represents the current state of a worker
type WorkerState string

const (
	WorkerStateIdle      WorkerState = "idle"
	WorkerStateWorking   WorkerState = "working"
	WorkerStateCompleted WorkerState = "completed"
	WorkerStateError     WorkerState = "error"
)

// RunFunc executes the pipeline for one dataset job and returns its
// result. The runner owns retry and abort decisions; implementations
// only report what happened.
type RunFunc func(ctx context.Context, job DatasetJob) *RunResult

// Worker pulls dataset jobs off the queue and runs them
type Worker struct {
	id        int
	run       RunFunc
	logger    *zap.Logger
	state     WorkerState
	stateLock sync.RWMutex
}

// NewWorker creates a new worker
func NewWorker(id int, run RunFunc, logger *zap.Logger) *Worker {
	return &Worker{
		id:     id,
		run:    run,
		logger: logger.With(zap.Int("workerID", id)),
		state:  WorkerStateIdle,
	}
}

// State returns the current state of the worker
func (w *Worker) State() WorkerState {
	w.stateLock.RLock()
	defer w.stateLock.RUnlock()
	return w.state
}

// setState updates the worker state
func (w *Worker) setState(state WorkerState) {
	w.stateLock.Lock()
	defer w.stateLock.Unlock()

	prevState := w.state
	w.state = state

	if prevState != state {
		w.logger.Debug("Worker state changed",
			zap.String("from", string(prevState)),
			zap.String("to", string(state)))
	}
}

// Start begins the worker processing loop
func (w *Worker) Start(ctx context.Context, jobs <-chan DatasetJob, results chan<- *RunResult) {
	w.setState(WorkerStateWorking)
	w.logger.Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopping due to context cancellation")
			w.setState(WorkerStateCompleted)
			return

		case job, ok := <-jobs:
			if !ok {
				// Channel closed, no more jobs
				w.logger.Info("Worker stopping due to closed job channel")
				w.setState(WorkerStateCompleted)
				return
			}

			w.logger.Info("Received job",
				zap.String("dataset", job.Dataset),
				zap.Int("retryCount", job.RetryCount))

			result := w.process(ctx, job)

			select {
			case results <- result:
				// Result sent successfully
			case <-ctx.Done():
				w.logger.Warn("Context cancelled while sending result",
					zap.String("dataset", job.Dataset))
				w.setState(WorkerStateCompleted)
				return
			}
		}
	}
}

// process runs a single dataset job and stamps the result with job
// bookkeeping
func (w *Worker) process(ctx context.Context, job DatasetJob) *RunResult {
	w.setState(WorkerStateWorking)

	result := w.run(ctx, job)
	if result == nil {
		result = NewRunResult(job.Dataset)
		result.AddError(NewErrorRecord(errors.New("run returned no result"), ErrorCategorySystemLevel).
			WithDataset(job.Dataset))
	}

	result.JobID = job.ID
	result.WorkerID = w.id
	result.RetryCount = job.RetryCount
	if result.EndTime.IsZero() {
		result.Complete(result.Success)
	}

	switch {
	case result.Halted:
		w.logger.Warn("Dataset run halted",
			zap.String("dataset", job.Dataset),
			zap.Duration("duration", result.Duration))
	case result.Success:
		w.logger.Info("Dataset run completed successfully",
			zap.String("dataset", job.Dataset),
			zap.Int("rowsOut", result.RowsOut),
			zap.Duration("duration", result.Duration))
	default:
		w.logger.Warn("Dataset run failed",
			zap.String("dataset", job.Dataset),
			zap.Int("errors", len(result.Errors)),
			zap.Duration("duration", result.Duration))
	}

	w.setState(WorkerStateIdle)

	return result
}

// Runner executes pipeline runs for a batch of datasets over a small
// worker pool, retrying recoverable failures and aborting the batch
// when the error handler demands it
type Runner struct {
	cfg           *config.Config
	run           RunFunc
	logger        *zap.Logger
	errorHandler  *ErrorHandler
	metrics       *RunMetrics
	workers       []*Worker
	jobQueue      chan DatasetJob
	resultQueue   chan *RunResult
	resubmitWg    sync.WaitGroup
	jobMu         sync.Mutex
	pendingJobs   map[string]DatasetJob
	completedJobs map[string]*RunResult
	failedJobs    map[string]*RunResult
}

// NewRunner creates a batch runner
func NewRunner(cfg *config.Config, run RunFunc, logger *zap.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("configuration cannot be nil")
	}
	if run == nil {
		return nil, errors.New("run function cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Runner{
		cfg:           cfg,
		run:           run,
		logger:        logger.Named("runner"),
		errorHandler:  NewErrorHandler(logger),
		metrics:       NewRunMetrics(logger),
		pendingJobs:   make(map[string]DatasetJob),
		completedJobs: make(map[string]*RunResult),
		failedJobs:    make(map[string]*RunResult),
	}, nil
}

// Run processes every dataset and blocks until the batch completes or
// the context is cancelled
func (r *Runner) Run(ctx context.Context, datasets []string) (*BatchSummary, error) {
	if len(datasets) == 0 {
		return nil, errors.New("no datasets to process")
	}

	workerCount := resolveWorkerCount(r.cfg.WorkerPoolSize, len(datasets))
	r.logger.Info("Starting batch run",
		zap.Strings("datasets", datasets),
		zap.Int("workers", workerCount))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.jobQueue = make(chan DatasetJob, workerCount*10) // Buffer size is 10x worker count
	r.resultQueue = make(chan *RunResult, workerCount*10)

	jobs := make([]DatasetJob, 0, len(datasets))
	r.jobMu.Lock()
	for _, dataset := range datasets {
		job := NewDatasetJob(dataset).WithMaxRetries(r.cfg.RetryAttempts)
		jobs = append(jobs, job)
		r.pendingJobs[job.ID] = job
		r.metrics.StartDataset(dataset)
	}
	r.jobMu.Unlock()

	// Start workers
	r.workers = make([]*Worker, workerCount)
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		r.workers[i] = NewWorker(i, r.run, r.logger)
		wg.Add(1)
		go func(worker *Worker) {
			defer wg.Done()
			worker.Start(runCtx, r.jobQueue, r.resultQueue)
		}(r.workers[i])
	}

	// Start result processor
	done := make(chan struct{})
	go r.processResults(runCtx, cancel, done)

	// Submit jobs
	for _, job := range jobs {
		select {
		case r.jobQueue <- job:
			r.logger.Debug("Submitted job",
				zap.String("dataset", job.Dataset),
				zap.String("jobID", job.ID))
		case <-runCtx.Done():
			r.logger.Warn("Context cancelled while submitting jobs")
		}
	}

	// Wait for every job to resolve, then shut the pool down. Resubmit
	// goroutines must settle before the job queue closes.
	r.waitForCompletion(runCtx)
	r.resubmitWg.Wait()
	close(r.jobQueue)
	wg.Wait()
	close(r.resultQueue)
	<-done

	r.metrics.Complete()
	summary := r.metrics.GenerateBatchSummary()

	r.logger.Info("Batch run completed",
		zap.Int("successfulDatasets", summary.SuccessfulDatasets),
		zap.Int("failedDatasets", summary.FailedDatasets),
		zap.Int("haltedDatasets", summary.HaltedDatasets),
		zap.Int64("totalRows", summary.TotalRows),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// processResults collects worker results, decides retries, and aborts
// the batch on fatal errors
func (r *Runner) processResults(ctx context.Context, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)

	for result := range r.resultQueue {
		if result.Success || result.Halted {
			r.metrics.RecordResult(*result)
			r.finishJob(result, true)
			continue
		}

		action := r.decideAction(result)

		switch action {
		case ActionAbort:
			r.logger.Error("Aborting batch run",
				zap.String("dataset", result.Dataset))
			r.metrics.RecordResult(*result)
			r.finishJob(result, false)
			cancel()
		case ActionRetry:
			if job, ok := r.retryJob(result); ok {
				// Intermediate attempts stay out of the metrics; only
				// the final result of a dataset is recorded
				r.logger.Warn("Retrying dataset",
					zap.String("dataset", result.Dataset),
					zap.Int("attempt", job.RetryCount),
					zap.Duration("delay", r.cfg.RetryDelay))
				r.resubmitWg.Add(1)
				go r.resubmit(ctx, job)
				continue
			}
			r.logger.Warn("Retries exhausted",
				zap.String("dataset", result.Dataset),
				zap.Int("retryCount", result.RetryCount))
			r.metrics.RecordResult(*result)
			r.finishJob(result, false)
		default:
			r.metrics.RecordResult(*result)
			r.finishJob(result, false)
		}

		if r.errorHandler.ThresholdExceeded() {
			r.logger.Error("Error threshold exceeded, aborting batch")
			cancel()
		}
	}
}

// decideAction maps a failed result to the most severe action its
// errors demand
func (r *Runner) decideAction(result *RunResult) Action {
	action := ActionContinue
	for _, record := range result.Errors {
		record = record.WithRetry(result.RetryCount)
		a := r.errorHandler.Handle(record)
		if actionSeverity(a) > actionSeverity(action) {
			action = a
		}
	}
	return action
}

// actionSeverity orders actions so conflicting verdicts resolve to the
// most drastic one
func actionSeverity(a Action) int {
	switch a {
	case ActionAbort:
		return 3
	case ActionSkipDataset:
		return 2
	case ActionRetry:
		return 1
	default:
		return 0
	}
}

// retryJob advances the pending job's retry counter when another
// attempt is allowed
func (r *Runner) retryJob(result *RunResult) (DatasetJob, bool) {
	r.jobMu.Lock()
	defer r.jobMu.Unlock()

	job, exists := r.pendingJobs[result.JobID]
	if !exists || !job.IsRetryable() {
		return DatasetJob{}, false
	}

	job = job.Retry()
	r.pendingJobs[job.ID] = job
	return job, true
}

// resubmit requeues a job after the configured delay
func (r *Runner) resubmit(ctx context.Context, job DatasetJob) {
	defer r.resubmitWg.Done()

	select {
	case <-time.After(r.cfg.RetryDelay):
	case <-ctx.Done():
		return
	}

	select {
	case r.jobQueue <- job:
		r.logger.Debug("Resubmitted job",
			zap.String("dataset", job.Dataset),
			zap.Int("retryCount", job.RetryCount))
	case <-ctx.Done():
	}
}

// finishJob moves a job out of the pending set
func (r *Runner) finishJob(result *RunResult, completed bool) {
	r.jobMu.Lock()
	defer r.jobMu.Unlock()

	delete(r.pendingJobs, result.JobID)
	if completed {
		r.completedJobs[result.JobID] = result
	} else {
		r.failedJobs[result.JobID] = result
	}
}

// waitForCompletion blocks until no jobs remain pending or the context
// is cancelled
func (r *Runner) waitForCompletion(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Warn("Batch run cancelled by context")
			return
		case <-ticker.C:
			r.jobMu.Lock()
			remaining := len(r.pendingJobs)
			r.jobMu.Unlock()

			if remaining == 0 {
				return
			}
		}
	}
}

// Metrics returns the batch metrics collector
func (r *Runner) Metrics() *RunMetrics {
	return r.metrics
}

// ErrorSummary returns error counts by category
func (r *Runner) ErrorSummary() map[ErrorCategory]int {
	return r.errorHandler.Summary()
}

// GenerateReport generates a human-readable batch report
func (r *Runner) GenerateReport() string {
	return r.metrics.GenerateReport()
}

// resolveWorkerCount determines the worker pool size from
// configuration, CPU count, and batch size
func resolveWorkerCount(configured, jobCount int) int {
	count := configured
	if count <= 0 {
		// Use 75% of available CPUs when unconfigured
		count = runtime.NumCPU() * 3 / 4
	}

	if count < 1 {
		count = 1
	}
	if count > jobCount {
		count = jobCount
	}
	if count > maxWorkers {
		count = maxWorkers
	}

	return count
}
