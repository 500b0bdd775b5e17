// pkg/validate/checks.go
package validate

import (
	"regexp"
	"sort"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Null handling policy: not_null is the only check that flags nulls.
// Every other check skips null cells, so a missing value trips exactly
// one rule instead of cascading through the whole contract.

func checkNotNull(t *model.Table, field string) []int {
	var violations []int
	for i, rec := range t.Records {
		if model.IsNull(rec[field]) {
			violations = append(violations, i)
		}
	}
	return violations
}

func checkUnique(t *model.Table, field string) []int {
	groups := make(map[string][]int)
	for i, rec := range t.Records {
		if model.IsNull(rec[field]) {
			continue
		}
		key := model.ToString(rec[field])
		groups[key] = append(groups[key], i)
	}

	var violations []int
	for _, indices := range groups {
		if len(indices) > 1 {
			violations = append(violations, indices...)
		}
	}
	sort.Ints(violations)
	return violations
}

func checkRange(t *model.Table, field string, min, max *float64) []int {
	var violations []int
	for i, rec := range t.Records {
		if model.IsNull(rec[field]) {
			continue
		}
		f, err := model.ToFloat(rec[field])
		if err != nil {
			violations = append(violations, i)
			continue
		}
		if min != nil && f < *min {
			violations = append(violations, i)
			continue
		}
		if max != nil && f > *max {
			violations = append(violations, i)
		}
	}
	return violations
}

func checkLength(t *model.Table, field string, minLen, maxLen *int) []int {
	var violations []int
	for i, rec := range t.Records {
		if model.IsNull(rec[field]) {
			continue
		}
		n := len([]rune(model.ToString(rec[field])))
		if minLen != nil && n < *minLen {
			violations = append(violations, i)
			continue
		}
		if maxLen != nil && n > *maxLen {
			violations = append(violations, i)
		}
	}
	return violations
}

func checkPattern(t *model.Table, field string, re *regexp.Regexp) []int {
	var violations []int
	for i, rec := range t.Records {
		if model.IsNull(rec[field]) {
			continue
		}
		if !re.MatchString(model.ToString(rec[field])) {
			violations = append(violations, i)
		}
	}
	return violations
}

func checkInSet(t *model.Table, field string, allowed []string) []int {
	set := make(map[string]struct{}, len(allowed))
	for _, v := range allowed {
		set[v] = struct{}{}
	}

	var violations []int
	for i, rec := range t.Records {
		if model.IsNull(rec[field]) {
			continue
		}
		if _, ok := set[model.ToString(rec[field])]; !ok {
			violations = append(violations, i)
		}
	}
	return violations
}

func checkDateFormat(t *model.Table, field string, layouts []string) []int {
	var violations []int
	for i, rec := range t.Records {
		if model.IsNull(rec[field]) {
			continue
		}
		if _, ok := model.ParseDate(model.ToString(rec[field]), layouts); !ok {
			violations = append(violations, i)
		}
	}
	return violations
}
