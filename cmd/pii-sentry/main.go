// cmd/pii-sentry/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/audit"
	"github.com/fintech-data/pii-sentry/pkg/config"
	"github.com/fintech-data/pii-sentry/pkg/logging"
	"github.com/fintech-data/pii-sentry/pkg/pipeline"
	"github.com/fintech-data/pii-sentry/pkg/source"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env if present; deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		return 1
	}
	defer logger.Sync()

	datasets := splitDatasets(cfg.TableName)

	logger.Info("Configuration loaded",
		zap.String("source", cfg.Source),
		zap.Strings("datasets", datasets),
		zap.String("outputDir", cfg.OutputDir),
		zap.Bool("auditEnabled", cfg.AuditEnabled),
		zap.Bool("revalidate", cfg.Revalidate),
		zap.Bool("haltOnCritical", cfg.HaltOnCritical))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var auditStore *audit.Store
	if cfg.AuditEnabled {
		auditStore, err = audit.Connect(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Error("Failed to connect to audit database", zap.Error(err))
			return 1
		}
		defer auditStore.Close()
	}

	runner, err := pipeline.NewRunner(cfg, datasetRun(cfg, auditStore, logger), logger)
	if err != nil {
		logger.Error("Failed to create runner", zap.Error(err))
		return 1
	}

	summary, err := runner.Run(ctx, datasets)
	if err != nil {
		logger.Error("Batch run failed", zap.Error(err))
		return 1
	}

	fmt.Println(runner.GenerateReport())

	if summary.FailedDatasets > 0 {
		logger.Warn("Batch completed with failures",
			zap.Int("failed", summary.FailedDatasets),
			zap.Int("total", summary.TotalDatasets))
		return 1
	}

	logger.Info("Batch completed",
		zap.Int("datasets", summary.TotalDatasets),
		zap.Float64("successRate", summary.OverallSuccessRate()))
	return 0
}

// datasetRun builds the per-dataset run function handed to the runner.
// Every job gets its own configuration copy and its own source connection,
// so concurrent runs never share mutable state.
func datasetRun(cfg *config.Config, auditStore *audit.Store, logger *zap.Logger) pipeline.RunFunc {
	multi := len(splitDatasets(cfg.TableName)) > 1

	return func(ctx context.Context, job pipeline.DatasetJob) *pipeline.RunResult {
		jobCfg := *cfg
		jobCfg.TableName = job.Dataset

		// With several CSV datasets the input path is a directory and
		// each dataset resolves to <dir>/<dataset>.csv.
		if multi && jobCfg.Source == config.SourceCSV {
			jobCfg.InputPath = filepath.Join(cfg.InputPath, job.Dataset+".csv")
		}

		result := pipeline.NewRunResult(job.Dataset)

		factory, err := source.NewSourceFactory(&jobCfg, logger)
		if err != nil {
			return failResult(result, err)
		}

		src, err := factory.Create(ctx)
		if err != nil {
			return failResult(result, err)
		}
		defer src.Close()

		p, err := pipeline.NewPipeline(&jobCfg, src, logger)
		if err != nil {
			return failResult(result, err)
		}

		if auditStore != nil {
			p = p.WithAuditStore(auditStore)
		}

		runResult, err := p.Run(ctx)
		if runResult == nil {
			return failResult(result, err)
		}
		return runResult
	}
}

// failResult marks a run result failed before the pipeline itself could start
func failResult(result *pipeline.RunResult, err error) *pipeline.RunResult {
	record := pipeline.NewErrorRecord(err, pipeline.CategorizeError(err)).
		WithDataset(result.Dataset)
	result.AddError(record)
	result.Complete(false)
	return result
}

// splitDatasets expands a comma-separated dataset list
func splitDatasets(tableName string) []string {
	parts := strings.Split(tableName, ",")
	datasets := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name != "" {
			datasets = append(datasets, name)
		}
	}
	return datasets
}
