// pkg/source/snowflake.go
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/config"
	"github.com/fintech-data/pii-sentry/pkg/model"
)

// fetchBatchSize is the page size used when reading source tables
const fetchBatchSize = 10000

// SnowflakeSource reads a dataset from a Snowflake table
type SnowflakeSource struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SnowflakeConfig
	table  string
}

// NewSnowflakeSource opens a pooled Snowflake connection for the
// configured source table
func NewSnowflakeSource(ctx context.Context, cfg *config.SnowflakeConfig, table string, logger *zap.Logger) (*SnowflakeSource, error) {
	if cfg == nil {
		return nil, errors.New("snowflake configuration cannot be nil")
	}
	if table == "" {
		return nil, errors.New("table name cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	logger = logger.Named("snowflake-source")

	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        cfg.Schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("table", table))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if cfg.QueryTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d",
				int(cfg.QueryTimeout.Seconds())),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	src := &SnowflakeSource{
		db:     db,
		logger: logger,
		cfg:    cfg,
		table:  table,
	}

	LogConnectionStats(logger, cfg.Database, db)
	return src, nil
}

// Validate verifies the connection, the session target, and that the
// source table exists in the configured schema
func (s *SnowflakeSource) Validate(ctx context.Context) error {
	var role, database, warehouse string
	err := s.db.QueryRowContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").
		Scan(&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	s.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	if database != s.cfg.Database {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, s.cfg.Database)
	}

	exists, err := s.tableExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify source table: %w", err)
	}
	if !exists {
		return fmt.Errorf("table %s not found in schema %s", s.table, s.cfg.Schema)
	}

	return nil
}

// Fetch reads the whole table, paging with LIMIT and OFFSET so a
// large table is never held in one open result set
func (s *SnowflakeSource) Fetch(ctx context.Context) (*model.Table, error) {
	query := fmt.Sprintf("SELECT * FROM %s.%s", s.cfg.Schema, s.table)

	var t *model.Table
	offset := 0
	for {
		batchQuery := fmt.Sprintf("%s LIMIT %d OFFSET %d", query, fetchBatchSize, offset)

		var count int
		var err error
		t, count, err = s.fetchBatch(ctx, batchQuery, t)
		if err != nil {
			return nil, fmt.Errorf("batch query failed at offset %d: %w", offset, err)
		}

		// Fewer rows than the page size means the table is exhausted
		if count < fetchBatchSize {
			break
		}
		offset += fetchBatchSize
	}

	s.logger.Info("Loaded dataset from Snowflake",
		zap.String("table", s.table),
		zap.Int("rows", t.RowCount()),
		zap.Int("columns", len(t.Fields)))

	return t, nil
}

// Close closes the database connection
func (s *SnowflakeSource) Close() error {
	s.logger.Info("Closing Snowflake connection")
	LogConnectionStats(s.logger, s.cfg.Database, s.db)
	return s.db.Close()
}

// fetchBatch runs one page query and scans it onto the table. The
// query timeout covers the scan as well as the query so a stalled
// result set cannot hang the fetch.
func (s *SnowflakeSource) fetchBatch(ctx context.Context, query string, t *model.Table) (*model.Table, int, error) {
	queryCtx := ctx
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(queryCtx, query)
	if err != nil {
		return t, 0, err
	}
	defer rows.Close()

	return appendRows(rows, t, s.table)
}

// tableExists checks the information schema for the source table.
// Snowflake stores unquoted identifiers in upper case.
func (s *SnowflakeSource) tableExists(ctx context.Context) (bool, error) {
	query := `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?
	`

	var count int
	err := s.db.QueryRowContext(ctx, query,
		strings.ToUpper(s.cfg.Schema),
		strings.ToUpper(s.table),
	).Scan(&count)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
