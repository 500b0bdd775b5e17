// pkg/profile/profile.go
package profile

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Profiler computes per-field quality statistics in a single pass
// over the table. Purely descriptive; it never mutates records.
type Profiler struct {
	dateFormats []string
	logger      *zap.Logger
}

// NewProfiler creates a profiler. Date layouts are needed to label
// date format variants.
func NewProfiler(dateFormats []string, logger *zap.Logger) (*Profiler, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(dateFormats) == 0 {
		return nil, errors.New("at least one date format is required")
	}
	return &Profiler{
		dateFormats: dateFormats,
		logger:      logger.Named("profiler"),
	}, nil
}

// Profile scans all records once and returns the quality report
func (p *Profiler) Profile(t *model.Table) *model.QualityReport {
	report := &model.QualityReport{
		Table:    t.Name,
		RowCount: t.RowCount(),
		Fields:   make(map[string]model.FieldProfile, len(t.Fields)),
	}

	for _, field := range t.Fields {
		fp := p.profileField(t, field)
		report.Fields[field] = fp

		if fp.DistinctTypeCount > 1 {
			p.logger.Warn("Field mixes value types",
				zap.String("field", field),
				zap.Int("distinct_types", fp.DistinctTypeCount))
		}
		if len(fp.FormatVariants) > 1 {
			p.logger.Warn("Field mixes format variants",
				zap.String("field", field),
				zap.Strings("variants", fp.FormatVariants))
		}
		if fp.SentinelCount > 0 {
			p.logger.Warn("Field carries sentinel markers in place of nulls",
				zap.String("field", field),
				zap.Int("sentinels", fp.SentinelCount))
		}
	}

	p.logger.Info("Profiling complete",
		zap.String("table", t.Name),
		zap.Int("rows", report.RowCount),
		zap.Int("fields", len(report.Fields)))

	return report
}

func (p *Profiler) profileField(t *model.Table, field string) model.FieldProfile {
	fp := model.FieldProfile{Field: field}

	types := make(map[string]struct{})
	variants := make(map[string]struct{})

	for _, rec := range t.Records {
		v := rec[field]
		if model.IsNull(v) {
			fp.NullCount++
			continue
		}
		types[typeName(v)] = struct{}{}

		if s, ok := v.(string); ok {
			if isSentinel(s) {
				fp.SentinelCount++
				continue
			}
			if variant, found := formatVariant(s, p.dateFormats); found {
				variants[variant] = struct{}{}
			}
		}
	}

	if t.RowCount() > 0 {
		fp.NullRatio = float64(fp.NullCount) / float64(t.RowCount())
	}
	fp.DistinctTypeCount = len(types)

	fp.FormatVariants = make([]string, 0, len(variants))
	for v := range variants {
		fp.FormatVariants = append(fp.FormatVariants, v)
	}
	sort.Strings(fp.FormatVariants)

	return fp
}
