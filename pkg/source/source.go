// pkg/source/source.go
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Source delivers a dataset to the pipeline as a table
type Source interface {
	// Fetch reads the configured dataset
	Fetch(ctx context.Context) (*model.Table, error)

	// Validate verifies the source is reachable and readable
	Validate(ctx context.Context) error

	// Close releases any resources held by the source
	Close() error
}

// ConnStats contains connection pool statistics for logging
type ConnStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	MaxOpenConns    int
}

// GetConnectionStats returns connection pool statistics
func GetConnectionStats(db *sql.DB) ConnStats {
	stats := db.Stats()
	return ConnStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		MaxOpenConns:    stats.MaxOpenConnections,
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := GetConnectionStats(db)
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConns))
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sql.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}

// appendRows scans every row in the result set onto the table,
// building the table from the result columns when t is nil. Column
// names are lowered so field names match the contract regardless of
// how the warehouse reports identifiers.
func appendRows(rows *sql.Rows, t *model.Table, name string) (*model.Table, int, error) {
	cols, err := rows.Columns()
	if err != nil {
		return t, 0, fmt.Errorf("failed to read result columns: %w", err)
	}

	fields := make([]string, len(cols))
	seen := make(map[string]bool, len(cols))
	for i, col := range cols {
		lowered := strings.ToLower(col)
		if seen[lowered] {
			return t, 0, fmt.Errorf("duplicate column %q in result set: %w", lowered, model.ErrSchemaMismatch)
		}
		seen[lowered] = true
		fields[i] = lowered
	}

	if t == nil {
		t = model.NewTable(name, fields)
	}

	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return t, count, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := make(model.Record, len(fields))
		for i, field := range fields {
			rec[field] = normalizeDriverValue(values[i])
		}
		t.Append(rec)
		count++
	}

	if err := rows.Err(); err != nil {
		return t, count, fmt.Errorf("error iterating rows: %w", err)
	}

	return t, count, nil
}
