// pkg/report/render.go
package report

import (
	"fmt"
	"strings"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// RenderQualityProfile formats a profiler report as the quality
// profile deliverable
func RenderQualityProfile(q *model.QualityReport, schema model.Schema) string {
	lines := []string{
		"DATA QUALITY PROFILE REPORT",
		"===========================",
		"",
		fmt.Sprintf("Table: %s (%d rows)", q.Table, q.RowCount),
		"",
		"COMPLETENESS:",
	}

	for _, field := range schema.FieldNames() {
		profile, ok := q.Profile(field)
		if !ok {
			continue
		}
		completeness := 100.0
		if q.RowCount > 0 {
			completeness = float64(q.RowCount-profile.Missing()) / float64(q.RowCount) * 100
		}
		entry := fmt.Sprintf("- %s: %.0f%%", field, completeness)
		if profile.Missing() > 0 {
			entry += fmt.Sprintf(" (%d missing/invalid)", profile.Missing())
		}
		lines = append(lines, entry)
	}

	lines = append(lines, "", "DATA TYPES:")
	for _, f := range schema.Fields {
		entry := fmt.Sprintf("- %s: %s", f.Name, f.Kind)
		if profile, ok := q.Profile(f.Name); ok && profile.DistinctTypeCount > 1 {
			entry += fmt.Sprintf(" (%d distinct value types)", profile.DistinctTypeCount)
		}
		lines = append(lines, entry)
	}

	issues := []string{}
	mixedFormats := 0
	for _, field := range schema.FieldNames() {
		profile, ok := q.Profile(field)
		if !ok || len(profile.FormatVariants) <= 1 {
			continue
		}
		mixedFormats++
		issues = append(issues, fmt.Sprintf("%d. Mixed formats in %s: %s",
			len(issues)+1, field, strings.Join(profile.FormatVariants, ", ")))
	}

	lines = append(lines, "", "QUALITY ISSUES:")
	if len(issues) == 0 {
		lines = append(lines, "- None detected")
	} else {
		lines = append(lines, issues...)
	}

	missing := 0
	for _, field := range schema.FieldNames() {
		if profile, ok := q.Profile(field); ok && profile.Missing() > 0 {
			missing++
		}
	}
	lines = append(lines, "",
		"SEVERITY:",
		fmt.Sprintf("- Fields with missing values: %d", missing),
		fmt.Sprintf("- Fields with mixed formats: %d", mixedFormats))

	return strings.Join(lines, "\n")
}

// RenderPIIDetection formats the classification as the PII detection
// deliverable
func RenderPIIDetection(c model.Classification, rowCount int) string {
	lines := []string{
		"PII DETECTION REPORT",
		"======================",
		"",
		fmt.Sprintf("Records scanned: %d", rowCount),
		"",
		"RISK ASSESSMENT:",
	}

	piiFields := c.PIIFields()
	if len(piiFields) == 0 {
		lines = append(lines, "- No PII detected")
	} else {
		lines = append(lines, fmt.Sprintf("- HIGH: %s", strings.Join(piiFields, ", ")))
	}

	lines = append(lines, "", "DETECTED PII:")
	if len(piiFields) == 0 {
		lines = append(lines, "- None")
	}
	for _, field := range piiFields {
		fc := c[field]
		lines = append(lines, fmt.Sprintf("- %s: %s (%.0f%% of %d sampled values)",
			field, fc.Category, fc.MatchRatio*100, fc.SampleSize))
	}

	lines = append(lines, "",
		"EXPOSURE RISK:",
		"If this dataset were breached, attackers could:",
		"- Phish customers (have emails)",
		"- Spoof identities (have names + DOB + address)",
		"- Social engineer (have phone numbers)",
		"",
		"MITIGATION: Mask all PII before sharing with analytics teams")

	return strings.Join(lines, "\n")
}

// RenderValidation formats a validation report, with sample failing
// values pulled from the table
func RenderValidation(v *model.ValidationReport, t *model.Table) string {
	passed := 0
	for _, r := range v.Results {
		if r.Passed {
			passed++
		}
	}
	failed := len(v.Results) - passed
	rate := 100.0
	if len(v.Results) > 0 {
		rate = float64(passed) / float64(len(v.Results)) * 100
	}

	lines := []string{
		"VALIDATION RESULTS",
		"==================",
		fmt.Sprintf("PASS: %d rules passed", passed),
		fmt.Sprintf("FAIL: %d rules failed", failed),
		fmt.Sprintf("SUCCESS RATE: %.2f%%", rate),
	}

	if v.Halt {
		lines = append(lines, "",
			fmt.Sprintf("HALT SIGNAL: critical rules exceeded the violation threshold: %s",
				strings.Join(v.HaltRules, ", ")))
	}

	lines = append(lines, "", "DETAILED FAILURES:", "-------------------")
	if failed == 0 {
		lines = append(lines, "None")
	}

	for _, r := range v.Results {
		if r.Passed {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s:", r.RuleID))
		lines = append(lines, fmt.Sprintf("- Field: %s (%s)", r.Field, r.Severity))
		lines = append(lines, fmt.Sprintf("- Violating records: %d", r.ViolationCount()))
		lines = append(lines, fmt.Sprintf("- Sample failures: %s", sampleValues(t, r, 3)))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// RenderCleaningLog formats the remediation action log as the cleaning
// deliverable
func RenderCleaningLog(actions []model.RemediationAction, failuresBefore, failuresAfter int, out *model.Table) string {
	byReason := make(map[string]int)
	imputedByField := make(map[string]int)
	var imputedFields []string
	dropped := []string{}

	for _, a := range actions {
		switch a.Strategy {
		case model.StrategyNormalize:
			byReason[a.Reason]++
		case model.StrategyImpute:
			if imputedByField[a.Field] == 0 {
				imputedFields = append(imputedFields, a.Field)
			}
			imputedByField[a.Field]++
		case model.StrategyDrop:
			dropped = append(dropped, a.Field)
		}
	}

	lines := []string{
		"DATA CLEANING LOG",
		"=================",
		"",
		"ACTIONS TAKEN:",
		"--------------",
		"Normalization:",
		fmt.Sprintf("- Phone format: converted to XXX-XXX-XXXX (%d occurrences)",
			byReason["reformatted_phone"]+byReason["invalid_digit_count"]),
		fmt.Sprintf("- Date format: converted to YYYY-MM-DD (%d occurrences)",
			byReason["reformatted_to_iso"]+byReason["unparseable_date"]),
		fmt.Sprintf("- Name case: applied title case (%d occurrences)", byReason["title_cased"]),
		fmt.Sprintf("- Email case: lowercased (%d occurrences)", byReason["lowercased"]),
		"",
		"Missing Values:",
	}

	if len(imputedFields) == 0 {
		lines = append(lines, "- None")
	}
	for _, field := range imputedFields {
		lines = append(lines, fmt.Sprintf("- %s: %d row(s) missing -> filled with placeholder", field, imputedByField[field]))
	}

	if len(dropped) > 0 {
		lines = append(lines, "", "Dropped Fields:")
		for _, field := range dropped {
			lines = append(lines, fmt.Sprintf("- %s", field))
		}
	}

	status := "- Status: PASS"
	if failuresAfter > 0 {
		status = "- Status: REVIEW REQUIRED"
	}
	lines = append(lines, "",
		"Validation After Cleaning:",
		fmt.Sprintf("- Before: %d failures", failuresBefore),
		fmt.Sprintf("- After: %d failures", failuresAfter),
		status,
		"",
		fmt.Sprintf("Output: %s (%d rows, %d columns)", out.Name, out.RowCount(), len(out.Fields)))

	return strings.Join(lines, "\n")
}

// RenderMaskedSample formats a before/after comparison of the first
// rows of the original and masked tables
func RenderMaskedSample(original, masked *model.Table, sampleRows int) string {
	lines := []string{
		fmt.Sprintf("BEFORE MASKING (first %d rows):", sampleRows),
		"------------------------------",
	}
	lines = append(lines, tableHead(original, sampleRows)...)
	lines = append(lines, "",
		fmt.Sprintf("AFTER MASKING (first %d rows):", sampleRows),
		"-----------------------------")
	lines = append(lines, tableHead(masked, sampleRows)...)

	lines = append(lines, "",
		"ANALYSIS:",
		fmt.Sprintf("- Data structure preserved (still %d rows, %d columns)", masked.RowCount(), len(masked.Fields)),
		"- PII masked (names, emails, phones, addresses, DOBs hidden)",
		"- Business data intact (income, account_status, dates available)",
		"- Use case: safe for analytics teams")

	return strings.Join(lines, "\n")
}

// RenderExecutionReport joins the captured stage log into the final
// execution deliverable
func RenderExecutionReport(stageLines []string) string {
	return strings.Join(stageLines, "\n")
}

func sampleValues(t *model.Table, r model.ValidationResult, limit int) string {
	if r.Field == "" || t == nil {
		return "[]"
	}

	samples := make([]string, 0, limit)
	for _, idx := range r.Violations {
		if len(samples) == limit {
			break
		}
		if idx < 0 || idx >= len(t.Records) {
			continue
		}
		value := t.Records[idx][r.Field]
		if model.IsNull(value) {
			samples = append(samples, "<null>")
			continue
		}
		samples = append(samples, model.ToString(value))
	}
	return "[" + strings.Join(samples, ", ") + "]"
}

func tableHead(t *model.Table, n int) []string {
	lines := []string{strings.Join(t.Fields, ",")}
	for i, rec := range t.Records {
		if i == n {
			break
		}
		cells := make([]string, 0, len(t.Fields))
		for _, field := range t.Fields {
			if model.IsNull(rec[field]) {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, model.ToString(rec[field]))
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return lines
}
