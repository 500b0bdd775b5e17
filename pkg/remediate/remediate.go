// pkg/remediate/remediate.go
package remediate

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Options controls normalization and imputation behavior
type Options struct {
	// DateFormats are the layouts date normalization will parse
	DateFormats []string
	// PhoneDigitLength is the digit count a phone must have after
	// stripping separators
	PhoneDigitLength int
	// StringPlaceholder fills missing string cells
	StringPlaceholder string
	// NumberPlaceholder fills missing numeric cells
	NumberPlaceholder float64
	// ImputeOverrides pins a per-field placeholder regardless of type
	ImputeOverrides map[string]string
	// DropFields are removed from the table wholesale
	DropFields []string
}

// fieldPlan is the per-field strategy, resolved once up front so the
// record loop never re-inspects types or categories.
type fieldPlan struct {
	field       string
	category    model.PIICategory
	placeholder interface{}
	drop        bool
}

// Engine applies ordered, deterministic fixes to one table: a
// normalization pass per field, then imputation of whatever is still
// null. It never fails on malformed input; the worst case for any
// cell is an imputed placeholder.
type Engine struct {
	opts   Options
	plans  []fieldPlan
	logger *zap.Logger
}

// NewEngine resolves the per-field remediation plan from the schema
// and classification
func NewEngine(opts Options, schema model.Schema, classification model.Classification, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if len(opts.DateFormats) == 0 {
		return nil, errors.New("at least one date format is required")
	}
	if opts.PhoneDigitLength <= 0 {
		return nil, fmt.Errorf("phone digit length must be positive, got %d", opts.PhoneDigitLength)
	}
	if opts.StringPlaceholder == "" {
		return nil, errors.New("string placeholder cannot be empty")
	}

	drop := make(map[string]struct{}, len(opts.DropFields))
	for _, f := range opts.DropFields {
		drop[f] = struct{}{}
	}

	plans := make([]fieldPlan, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		placeholder := interface{}(opts.StringPlaceholder)
		if f.Kind == model.KindNumber {
			placeholder = opts.NumberPlaceholder
		}
		if override, ok := opts.ImputeOverrides[f.Name]; ok {
			placeholder = override
		}

		_, dropped := drop[f.Name]
		plans = append(plans, fieldPlan{
			field:       f.Name,
			category:    classification.Category(f.Name),
			placeholder: placeholder,
			drop:        dropped,
		})
	}

	return &Engine{
		opts:   opts,
		plans:  plans,
		logger: logger.Named("remediator"),
	}, nil
}

// Remediate returns a fixed copy of the table plus the ordered action
// log. Actions run field by field in table order: normalize first,
// then impute remaining nulls, so a value nulled by a failed
// normalization is filled in the same pass. The log records every
// mutation; replaying it over the input reconstructs the output.
func (e *Engine) Remediate(t *model.Table, quality *model.QualityReport, validation *model.ValidationReport) (*model.Table, []model.RemediationAction) {
	out := t.Clone()
	actions := make([]model.RemediationAction, 0)

	failedBefore := 0
	if validation != nil {
		failedBefore = len(validation.Failed())
	}
	e.logger.Info("starting remediation",
		zap.String("table", t.Name),
		zap.Int("rows", t.RowCount()),
		zap.Int("fields_with_nulls", e.nullFieldCount(quality)),
		zap.Int("failed_rules_before", failedBefore))

	for _, plan := range e.plans {
		if !out.HasField(plan.field) {
			continue
		}

		if plan.drop {
			dropField(out, plan.field)
			actions = append(actions, model.RemediationAction{
				Field:       plan.field,
				RecordIndex: -1,
				Strategy:    model.StrategyDrop,
				Reason:      "configured_drop",
			})
			e.logger.Info("dropped field", zap.String("field", plan.field))
			continue
		}

		for i, rec := range out.Records {
			value := rec[plan.field]
			if e.isPlaceholder(plan, value) {
				continue
			}

			newValue, action := e.normalizeValue(plan, value, i)
			if action != nil {
				rec[plan.field] = newValue
				actions = append(actions, *action)
			}
		}

		for i, rec := range out.Records {
			if !model.IsNull(rec[plan.field]) {
				continue
			}
			rec[plan.field] = plan.placeholder
			actions = append(actions, model.RemediationAction{
				Field:       plan.field,
				RecordIndex: i,
				NewValue:    plan.placeholder,
				Strategy:    model.StrategyImpute,
				Reason:      "missing_value",
			})
		}
	}

	e.logger.Info("remediation complete",
		zap.String("table", out.Name),
		zap.Int("actions", len(actions)),
		zap.Int("normalized", countByStrategy(actions, model.StrategyNormalize)),
		zap.Int("imputed", countByStrategy(actions, model.StrategyImpute)),
		zap.Int("dropped_fields", countByStrategy(actions, model.StrategyDrop)))

	return out, actions
}

func (e *Engine) normalizeValue(plan fieldPlan, value interface{}, index int) (interface{}, *model.RemediationAction) {
	switch plan.category {
	case model.PIIDateOfBirth:
		return normalizeDate(value, plan.field, index, e.opts.DateFormats)
	case model.PIIPhone:
		return normalizePhone(value, plan.field, index, e.opts.PhoneDigitLength)
	case model.PIIName:
		return normalizeName(value, plan.field, index)
	case model.PIIEmail:
		return normalizeEmail(value, plan.field, index)
	default:
		return value, nil
	}
}

// isPlaceholder reports whether a cell already holds the field's
// imputation placeholder. Placeholders are not data, so normalizers
// leave them alone.
func (e *Engine) isPlaceholder(plan fieldPlan, value interface{}) bool {
	if model.IsNull(value) {
		return false
	}
	return model.ToString(value) == model.ToString(plan.placeholder)
}

func (e *Engine) nullFieldCount(quality *model.QualityReport) int {
	if quality == nil {
		return 0
	}
	n := 0
	for field := range quality.Fields {
		if quality.HasNulls(field) {
			n++
		}
	}
	return n
}

func dropField(t *model.Table, field string) {
	fields := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f != field {
			fields = append(fields, f)
		}
	}
	t.Fields = fields
	for _, rec := range t.Records {
		delete(rec, field)
	}
}

func countByStrategy(actions []model.RemediationAction, s model.Strategy) int {
	n := 0
	for _, a := range actions {
		if a.Strategy == s {
			n++
		}
	}
	return n
}
