// pkg/validate/validate.go
package validate

import (
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Options controls engine behavior
type Options struct {
	// CriticalHaltFraction is the fraction of records a single CRITICAL
	// rule must violate before the report raises the halt signal
	CriticalHaltFraction float64
	// DateFormats are the layouts date_format checks accept when a rule
	// does not pin its own layout
	DateFormats []string
}

// Engine evaluates a contract against a table. Evaluation never
// mutates the table, so running the same contract twice over the same
// data yields identical reports.
type Engine struct {
	opts Options
	expr *exprEvaluator

	regexMu    sync.RWMutex
	regexCache map[string]*regexp.Regexp

	logger *zap.Logger
}

// NewEngine creates a validation engine
func NewEngine(opts Options, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if opts.CriticalHaltFraction <= 0 || opts.CriticalHaltFraction > 1 {
		return nil, fmt.Errorf("critical halt fraction must be in (0, 1], got %f", opts.CriticalHaltFraction)
	}
	if len(opts.DateFormats) == 0 {
		return nil, fmt.Errorf("at least one date format is required")
	}

	expr, err := newExprEvaluator()
	if err != nil {
		return nil, err
	}

	return &Engine{
		opts:       opts,
		expr:       expr,
		regexCache: make(map[string]*regexp.Regexp),
		logger:     logger.Named("validator"),
	}, nil
}

// Validate runs every contract rule in definition order and reports
// each outcome. Violating record indices come back ascending. The halt
// signal is raised when any CRITICAL rule fails on more than the
// configured fraction of records; acting on it is the caller's call.
func (e *Engine) Validate(t *model.Table, contract *Contract) (*model.ValidationReport, error) {
	if err := contract.Validate(); err != nil {
		return nil, fmt.Errorf("invalid contract: %w", err)
	}

	report := &model.ValidationReport{
		Table:    t.Name,
		RowCount: t.RowCount(),
		Results:  make([]model.ValidationResult, 0, len(contract.Rules)),
	}

	for _, rule := range contract.Rules {
		severity, err := rule.SeverityLevel()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.ID, err)
		}

		violations, err := e.evaluateRule(t, rule)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.ID, err)
		}

		result := model.ValidationResult{
			RuleID:      rule.ID,
			Field:       rule.Field,
			Description: rule.Description,
			Severity:    severity,
			Passed:      len(violations) == 0,
			Violations:  violations,
		}
		report.Results = append(report.Results, result)

		if !result.Passed {
			e.logger.Debug("rule failed",
				zap.String("rule", rule.ID),
				zap.String("field", rule.Field),
				zap.String("severity", severity.String()),
				zap.Int("violations", len(violations)))
		}

		if severity == model.SeverityCritical && report.RowCount > 0 &&
			float64(len(violations)) > e.opts.CriticalHaltFraction*float64(report.RowCount) {
			report.Halt = true
			report.HaltRules = append(report.HaltRules, rule.ID)
			e.logger.Warn("critical rule exceeded halt threshold",
				zap.String("rule", rule.ID),
				zap.Int("violations", len(violations)),
				zap.Int("row_count", report.RowCount),
				zap.Float64("halt_fraction", e.opts.CriticalHaltFraction))
		}
	}

	e.logger.Info("validation complete",
		zap.String("table", t.Name),
		zap.Int("rules", len(contract.Rules)),
		zap.Int("failed", len(report.Failed())),
		zap.Int("warning_failures", report.CountBySeverity(model.SeverityWarning)),
		zap.Int("critical_failures", report.CountBySeverity(model.SeverityCritical)),
		zap.Bool("halt", report.Halt))

	return report, nil
}

func (e *Engine) evaluateRule(t *model.Table, rule Rule) ([]int, error) {
	switch rule.Check {
	case CheckNotNull:
		return checkNotNull(t, rule.Field), nil
	case CheckUnique:
		return checkUnique(t, rule.Field), nil
	case CheckRange:
		return checkRange(t, rule.Field, rule.Min, rule.Max), nil
	case CheckLength:
		return checkLength(t, rule.Field, rule.MinLength, rule.MaxLength), nil
	case CheckPattern:
		re, err := e.pattern(rule.Pattern)
		if err != nil {
			return nil, err
		}
		return checkPattern(t, rule.Field, re), nil
	case CheckInSet:
		return checkInSet(t, rule.Field, rule.AllowedValues), nil
	case CheckDateFormat:
		layouts := e.opts.DateFormats
		if rule.DateFormat != "" {
			layouts = []string{rule.DateFormat}
		}
		return checkDateFormat(t, rule.Field, layouts), nil
	case CheckExpr:
		return e.expr.checkExpr(t, rule.Field, rule.Expr)
	default:
		return nil, fmt.Errorf("unknown check %q", rule.Check)
	}
}

func (e *Engine) pattern(expr string) (*regexp.Regexp, error) {
	e.regexMu.RLock()
	re, ok := e.regexCache[expr]
	e.regexMu.RUnlock()
	if ok {
		return re, nil
	}

	e.regexMu.Lock()
	defer e.regexMu.Unlock()

	if re, ok := e.regexCache[expr]; ok {
		return re, nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}

	e.regexCache[expr] = re
	return re, nil
}
