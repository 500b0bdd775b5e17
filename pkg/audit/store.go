// pkg/audit/store.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/config"
	"github.com/fintech-data/pii-sentry/pkg/model"
	"github.com/fintech-data/pii-sentry/pkg/source"
)

// Validation phases recorded with each persisted report
const (
	PhaseInitial         = "initial"
	PhasePostRemediation = "post_remediation"
)

// Store persists the remediation audit trail and validation outcomes
// of pipeline runs to PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// actionRow is the named-parameter shape for one remediation insert
type actionRow struct {
	RunID         string      `db:"run_id"`
	TableName     string      `db:"table_name"`
	FieldName     string      `db:"field_name"`
	RecordIndex   int         `db:"record_index"`
	Strategy      string      `db:"strategy"`
	Reason        string      `db:"reason"`
	OriginalValue interface{} `db:"original_value"`
	NewValue      interface{} `db:"new_value"`
}

// resultRow is the named-parameter shape for one validation insert
type resultRow struct {
	RunID          string `db:"run_id"`
	TableName      string `db:"table_name"`
	Phase          string `db:"phase"`
	RuleID         string `db:"rule_id"`
	FieldName      string `db:"field_name"`
	Severity       string `db:"severity"`
	Passed         bool   `db:"passed"`
	ViolationCount int    `db:"violation_count"`
}

// NewStore wraps an open audit database connection and ensures the
// tracking tables exist
func NewStore(db *sqlx.DB, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	store := &Store{
		db:     db,
		logger: logger.Named("audit-store"),
	}

	if err := store.setupTables(); err != nil {
		return nil, fmt.Errorf("failed to setup audit tables: %w", err)
	}

	return store, nil
}

// Connect opens the audit database and returns a ready store
func Connect(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	logger.Info("Connecting to audit database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit connection: %w", err)
	}

	source.ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if err := source.PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	return NewStore(db, logger)
}

// setupTables ensures the tracking tables exist
func (s *Store) setupTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	createActions := `
		CREATE TABLE IF NOT EXISTS public.pii_remediation_actions (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			table_name TEXT NOT NULL,
			field_name TEXT NOT NULL,
			record_index INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			reason TEXT NOT NULL,
			original_value TEXT,
			new_value TEXT,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, createActions); err != nil {
		return fmt.Errorf("failed to create remediation actions table: %w", err)
	}

	createResults := `
		CREATE TABLE IF NOT EXISTS public.pii_validation_results (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			table_name TEXT NOT NULL,
			phase TEXT NOT NULL,
			rule_id TEXT NOT NULL,
			field_name TEXT NOT NULL,
			severity TEXT NOT NULL,
			passed BOOLEAN NOT NULL,
			violation_count INTEGER NOT NULL,
			recorded_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, createResults); err != nil {
		return fmt.Errorf("failed to create validation results table: %w", err)
	}

	s.logger.Info("Ensured audit tracking tables exist")
	return nil
}

// RecordRemediationActions batch inserts one run's remediation audit
// trail inside a transaction
func (s *Store) RecordRemediationActions(ctx context.Context, runID, table string, actions []model.RemediationAction) error {
	if len(actions) == 0 {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTxx(opCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PrepareNamedContext(opCtx, `
		INSERT INTO public.pii_remediation_actions
		(run_id, table_name, field_name, record_index, strategy, reason, original_value, new_value)
		VALUES (:run_id, :table_name, :field_name, :record_index, :strategy, :reason, :original_value, :new_value)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, action := range actions {
		row := actionRow{
			RunID:         runID,
			TableName:     table,
			FieldName:     action.Field,
			RecordIndex:   action.RecordIndex,
			Strategy:      action.Strategy.String(),
			Reason:        action.Reason,
			OriginalValue: toNullableString(action.OriginalValue),
			NewValue:      toNullableString(action.NewValue),
		}
		if _, err = stmt.ExecContext(opCtx, row); err != nil {
			return fmt.Errorf("failed to insert remediation action: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Recorded remediation actions",
		zap.String("run_id", runID),
		zap.String("table", table),
		zap.Int("count", len(actions)))
	return nil
}

// RecordValidationReport batch inserts one validation pass. The phase
// tags whether the contract ran before or after remediation.
func (s *Store) RecordValidationReport(ctx context.Context, runID, phase string, report *model.ValidationReport) error {
	if report == nil || len(report.Results) == 0 {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTxx(opCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PrepareNamedContext(opCtx, `
		INSERT INTO public.pii_validation_results
		(run_id, table_name, phase, rule_id, field_name, severity, passed, violation_count)
		VALUES (:run_id, :table_name, :phase, :rule_id, :field_name, :severity, :passed, :violation_count)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, result := range report.Results {
		row := resultRow{
			RunID:          runID,
			TableName:      report.Table,
			Phase:          phase,
			RuleID:         result.RuleID,
			FieldName:      result.Field,
			Severity:       result.Severity.String(),
			Passed:         result.Passed,
			ViolationCount: result.ViolationCount(),
		}
		if _, err = stmt.ExecContext(opCtx, row); err != nil {
			return fmt.Errorf("failed to insert validation result: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Recorded validation results",
		zap.String("run_id", runID),
		zap.String("phase", phase),
		zap.Int("count", len(report.Results)))
	return nil
}

// Close closes the audit database connection
func (s *Store) Close() error {
	s.logger.Info("Closing audit store connection")
	return s.db.Close()
}

// toNullableString converts a cell value for a nullable TEXT column
func toNullableString(v interface{}) interface{} {
	if model.IsNull(v) {
		return nil
	}
	return model.ToString(v)
}
