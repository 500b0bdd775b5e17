// pkg/source/postgres.go
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/config"
	"github.com/fintech-data/pii-sentry/pkg/model"
)

// PostgresSource reads a dataset from a PostgreSQL table
type PostgresSource struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
	table  string
}

// NewPostgresSource opens a pooled PostgreSQL connection for the
// configured source table
func NewPostgresSource(ctx context.Context, cfg *config.PostgresConfig, table string, logger *zap.Logger) (*PostgresSource, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration cannot be nil")
	}
	if table == "" {
		return nil, errors.New("table name cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	logger = logger.Named("postgres-source")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User),
		zap.String("table", table))

	db, err := sql.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	src := &PostgresSource{
		db:     db,
		logger: logger,
		cfg:    cfg,
		table:  table,
	}

	LogConnectionStats(logger, cfg.Database, db)
	return src, nil
}

// Validate verifies the connection and that the source table exists
func (s *PostgresSource) Validate(ctx context.Context) error {
	var version string
	if err := s.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	s.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	var exists bool
	query := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)
	`
	if err := s.db.QueryRowContext(ctx, query, s.table).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if table exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("table public.%s not found", s.table)
	}

	return nil
}

// Fetch reads the whole table in one streamed result set
func (s *PostgresSource) Fetch(ctx context.Context) (*model.Table, error) {
	queryCtx := ctx
	if s.cfg.StatementTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, s.cfg.StatementTimeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(queryCtx, fmt.Sprintf("SELECT * FROM public.%s", s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", s.table, err)
	}
	defer rows.Close()

	t, _, err := appendRows(rows, nil, s.table)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loaded dataset from PostgreSQL",
		zap.String("table", s.table),
		zap.Int("rows", t.RowCount()),
		zap.Int("columns", len(t.Fields)))

	return t, nil
}

// Close closes the database connection
func (s *PostgresSource) Close() error {
	s.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(s.logger, s.cfg.Database, s.db)
	return s.db.Close()
}
