// pkg/mask/mask.go
package mask

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Options controls masking behavior
type Options struct {
	// StringPlaceholder is the imputation marker masking leaves alone;
	// a placeholder carries no PII
	StringPlaceholder string

	// Policy restricts which categories are transformed. Nil masks
	// every category.
	Policy *Policy
}

// Masker applies one-way, category-specific transforms to classified
// fields and leaves everything else untouched. Masking is terminal:
// the output must not be remediated again.
type Masker struct {
	opts   Options
	policy *Policy
	logger *zap.Logger
}

// NewMasker creates a masking engine
func NewMasker(opts Options, logger *zap.Logger) (*Masker, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.StringPlaceholder == "" {
		return nil, errors.New("string placeholder cannot be empty")
	}

	policy := opts.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}

	return &Masker{
		opts:   opts,
		policy: policy,
		logger: logger.Named("masker"),
	}, nil
}

// Mask returns a masked copy of the table. Null cells and placeholder
// cells pass through, and values already carrying mask markers are not
// masked again, so a second application is a no-op. No mapping from
// masked to original values survives the call.
func (m *Masker) Mask(t *model.Table, classification model.Classification) *model.Table {
	out := t.Clone()

	masked := 0
	for _, field := range out.Fields {
		category := classification.Category(field)
		if !m.policy.Applies(category) {
			continue
		}

		for _, rec := range out.Records {
			value := rec[field]
			if model.IsNull(value) {
				continue
			}

			strValue := model.ToString(value)
			if strValue == m.opts.StringPlaceholder || strValue == MaskedAddress {
				continue
			}
			if strings.Contains(strValue, "*") {
				continue
			}

			rec[field] = m.maskValue(category, strValue)
			masked++
		}
	}

	m.logger.Info("masking complete",
		zap.String("table", out.Name),
		zap.Int("pii_fields", len(classification.PIIFields())),
		zap.Int("masked_values", masked))

	return out
}

func (m *Masker) maskValue(category model.PIICategory, s string) string {
	switch category {
	case model.PIIName:
		return maskName(s)
	case model.PIIEmail:
		return maskEmail(s)
	case model.PIIPhone:
		return maskPhone(s)
	case model.PIIDateOfBirth:
		return maskDateOfBirth(s)
	case model.PIIAddress:
		return maskStreetAddress(s)
	default:
		return s
	}
}
