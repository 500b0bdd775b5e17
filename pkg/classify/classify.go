// pkg/classify/classify.go
package classify

import (
	"errors"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Options configures the classifier
type Options struct {
	// MatchThreshold is the minimum ratio of sampled values that must
	// match a category before the field is assigned to it
	MatchThreshold float64

	// SampleSize caps how many non-null values are examined per field.
	// Zero means the full column.
	SampleSize int

	// DateFormats are the layouts used by the DATE_OF_BIRTH test
	DateFormats []string
}

// Classifier tags table fields with PII categories by testing sampled
// values against per-category patterns
type Classifier struct {
	opts   Options
	logger *zap.Logger
}

// NewClassifier creates a classifier with the given options
func NewClassifier(opts Options, logger *zap.Logger) (*Classifier, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.MatchThreshold <= 0 || opts.MatchThreshold > 1 {
		return nil, errors.New("match threshold must be in (0, 1]")
	}
	if opts.SampleSize < 0 {
		return nil, errors.New("sample size cannot be negative")
	}
	if len(opts.DateFormats) == 0 {
		return nil, errors.New("at least one date format is required")
	}
	return &Classifier{
		opts:   opts,
		logger: logger.Named("classifier"),
	}, nil
}

// Classify produces the classification for every table field. It is a
// pure function of the sampled values: repeated calls on an unchanged
// table yield identical results. Malformed values never fail the call;
// they simply fail the pattern tests.
func (c *Classifier) Classify(t *model.Table) model.Classification {
	classification := make(model.Classification, len(t.Fields))

	for _, field := range t.Fields {
		samples := c.sampleField(t, field)
		fc := c.classifyField(field, samples)
		classification[field] = fc

		if fc.Category != model.PIINone {
			c.logger.Debug("Field classified",
				zap.String("field", field),
				zap.String("category", fc.Category.String()),
				zap.Float64("match_ratio", fc.MatchRatio),
				zap.Int("sample_size", fc.SampleSize))
		}
	}

	c.logger.Info("Classification complete",
		zap.Int("fields", len(t.Fields)),
		zap.Int("pii_fields", len(classification.PIIFields())))

	return classification
}

// sampleField draws up to SampleSize non-null values in record order,
// so sampling is deterministic for a given table
func (c *Classifier) sampleField(t *model.Table, field string) []string {
	limit := c.opts.SampleSize
	if limit <= 0 || limit > t.RowCount() {
		limit = t.RowCount()
	}

	samples := make([]string, 0, limit)
	for _, rec := range t.Records {
		if len(samples) == limit {
			break
		}
		v := rec[field]
		if model.IsNull(v) {
			continue
		}
		samples = append(samples, model.ToString(v))
	}
	return samples
}

// classifyField checks categories in fixed priority order and assigns
// the first whose match ratio clears the threshold
func (c *Classifier) classifyField(field string, samples []string) model.FieldClassification {
	fc := model.FieldClassification{
		Field:      field,
		Category:   model.PIINone,
		SampleSize: len(samples),
	}
	if len(samples) == 0 {
		return fc
	}

	for _, category := range model.CategoryPriority {
		matched := 0
		for _, value := range samples {
			if c.matches(category, value) {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(samples))
		if ratio >= c.opts.MatchThreshold {
			fc.Category = category
			fc.MatchRatio = ratio
			return fc
		}
	}
	return fc
}

// matches applies the category-specific pattern test to one value
func (c *Classifier) matches(category model.PIICategory, value string) bool {
	switch category {
	case model.PIIEmail:
		return matchEmail(value)
	case model.PIIPhone:
		return matchPhone(value)
	case model.PIIDateOfBirth:
		return matchDateOfBirth(value, c.opts.DateFormats)
	case model.PIIAddress:
		return matchAddress(value)
	case model.PIIName:
		return matchName(value)
	default:
		return false
	}
}
