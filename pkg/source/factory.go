// pkg/source/factory.go
package source

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/config"
)

// SourceFactory creates dataset sources from configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) (*SourceFactory, error) {
	if cfg == nil {
		return nil, errors.New("configuration cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Create builds the source named by the configuration
func (f *SourceFactory) Create(ctx context.Context) (Source, error) {
	switch f.cfg.Source {
	case config.SourceCSV:
		f.logger.Info("Creating CSV source",
			zap.String("path", f.cfg.InputPath),
			zap.String("table", f.cfg.TableName))
		return NewCSVSource(f.cfg.InputPath, f.cfg.TableName, f.logger)

	case config.SourcePostgres:
		f.logger.Info("Creating PostgreSQL source", zap.String("table", f.cfg.TableName))
		return NewPostgresSource(ctx, f.cfg.Postgres, f.cfg.TableName, f.logger)

	case config.SourceSnowflake:
		f.logger.Info("Creating Snowflake source", zap.String("table", f.cfg.TableName))
		return NewSnowflakeSource(ctx, f.cfg.Snowflake, f.cfg.TableName, f.logger)

	default:
		return nil, fmt.Errorf("unknown source %q", f.cfg.Source)
	}
}
