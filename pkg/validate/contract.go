// pkg/validate/contract.go
package validate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Check names accepted in a contract rule
const (
	CheckNotNull    = "not_null"
	CheckUnique     = "unique"
	CheckRange      = "range"
	CheckLength     = "length"
	CheckPattern    = "pattern"
	CheckInSet      = "in_set"
	CheckDateFormat = "date_format"
	CheckExpr       = "expr"
)

// Rule is one declarative contract entry. Rules are side-effect-free:
// evaluation returns violating record indices, nothing else.
type Rule struct {
	ID          string `yaml:"id"`
	Field       string `yaml:"field,omitempty"`
	Check       string `yaml:"check"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description,omitempty"`

	// Check parameters; which ones apply depends on Check
	Min           *float64 `yaml:"min,omitempty"`
	Max           *float64 `yaml:"max,omitempty"`
	MinLength     *int     `yaml:"min_length,omitempty"`
	MaxLength     *int     `yaml:"max_length,omitempty"`
	Pattern       string   `yaml:"pattern,omitempty"`
	AllowedValues []string `yaml:"allowed_values,omitempty"`
	DateFormat    string   `yaml:"date_format,omitempty"`
	Expr          string   `yaml:"expr,omitempty"`
}

// SeverityLevel parses the rule's severity string
func (r Rule) SeverityLevel() (model.Severity, error) {
	return model.ParseSeverity(r.Severity)
}

// Contract is the ordered rule set a dataset must satisfy. Rule order
// is definition order and determines result order.
type Contract struct {
	Table string `yaml:"table"`
	Rules []Rule `yaml:"rules"`
}

// LoadContract reads a YAML contract from disk
func LoadContract(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract file: %w", err)
	}

	var c Contract
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse contract file: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid contract %s: %w", path, err)
	}

	return &c, nil
}

// Validate checks the contract definition itself: rule IDs unique,
// check names known, severities parseable, required parameters set
func (c *Contract) Validate() error {
	if len(c.Rules) == 0 {
		return fmt.Errorf("contract has no rules")
	}

	seen := make(map[string]struct{}, len(c.Rules))
	for i, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("rule %d has no id", i)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		seen[rule.ID] = struct{}{}

		if _, err := rule.SeverityLevel(); err != nil {
			return fmt.Errorf("rule %q: %w", rule.ID, err)
		}

		switch rule.Check {
		case CheckNotNull, CheckUnique, CheckDateFormat:
			if rule.Field == "" {
				return fmt.Errorf("rule %q: check %s requires a field", rule.ID, rule.Check)
			}
		case CheckRange:
			if rule.Field == "" {
				return fmt.Errorf("rule %q: check range requires a field", rule.ID)
			}
			if rule.Min == nil && rule.Max == nil {
				return fmt.Errorf("rule %q: check range requires min or max", rule.ID)
			}
		case CheckLength:
			if rule.Field == "" {
				return fmt.Errorf("rule %q: check length requires a field", rule.ID)
			}
			if rule.MinLength == nil && rule.MaxLength == nil {
				return fmt.Errorf("rule %q: check length requires min_length or max_length", rule.ID)
			}
		case CheckPattern:
			if rule.Field == "" || rule.Pattern == "" {
				return fmt.Errorf("rule %q: check pattern requires field and pattern", rule.ID)
			}
		case CheckInSet:
			if rule.Field == "" || len(rule.AllowedValues) == 0 {
				return fmt.Errorf("rule %q: check in_set requires field and allowed_values", rule.ID)
			}
		case CheckExpr:
			if rule.Expr == "" {
				return fmt.Errorf("rule %q: check expr requires expr", rule.ID)
			}
		default:
			return fmt.Errorf("rule %q: unknown check %q", rule.ID, rule.Check)
		}
	}

	return nil
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

// DefaultContract returns the built-in customer contract, used when no
// contract file is configured
func DefaultContract() *Contract {
	return &Contract{
		Table: "customers",
		Rules: []Rule{
			{
				ID: "customer_id_not_null", Field: "customer_id", Check: CheckNotNull,
				Severity: "CRITICAL", Description: "every record needs a customer id",
			},
			{
				ID: "customer_id_unique", Field: "customer_id", Check: CheckUnique,
				Severity: "CRITICAL", Description: "customer ids must not repeat",
			},
			{
				ID: "customer_id_positive", Field: "customer_id", Check: CheckRange,
				Min: floatPtr(1), Severity: "CRITICAL", Description: "customer ids start at 1",
			},
			{
				ID: "first_name_not_null", Field: "first_name", Check: CheckNotNull,
				Severity: "WARNING", Description: "first name should be present",
			},
			{
				ID: "first_name_length", Field: "first_name", Check: CheckLength,
				MinLength: intPtr(2), MaxLength: intPtr(50), Severity: "WARNING",
				Description: "first name length between 2 and 50",
			},
			{
				ID: "first_name_alpha", Field: "first_name", Check: CheckPattern,
				Pattern: `^[a-zA-Z\s]+$`, Severity: "WARNING",
				Description: "first name contains only letters and spaces",
			},
			{
				ID: "last_name_not_null", Field: "last_name", Check: CheckNotNull,
				Severity: "WARNING", Description: "last name should be present",
			},
			{
				ID: "last_name_length", Field: "last_name", Check: CheckLength,
				MinLength: intPtr(2), MaxLength: intPtr(50), Severity: "WARNING",
				Description: "last name length between 2 and 50",
			},
			{
				ID: "email_format", Field: "email", Check: CheckPattern,
				Pattern: `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`, Severity: "WARNING",
				Description: "email has local@domain.tld shape",
			},
			{
				ID: "phone_characters", Field: "phone", Check: CheckExpr,
				Expr: `value == null || string(value).matches("^[0-9().+\\- ]+$")`, Severity: "WARNING",
				Description: "phone contains only digits and separators",
			},
			{
				ID: "income_not_null", Field: "income", Check: CheckNotNull,
				Severity: "WARNING", Description: "income should be present",
			},
			{
				ID: "income_range", Field: "income", Check: CheckRange,
				Min: floatPtr(0), Max: floatPtr(10000000), Severity: "CRITICAL",
				Description: "income between 0 and 10,000,000",
			},
			{
				ID: "account_status_not_null", Field: "account_status", Check: CheckNotNull,
				Severity: "WARNING", Description: "account status should be present",
			},
			{
				ID: "account_status_membership", Field: "account_status", Check: CheckInSet,
				AllowedValues: []string{"active", "inactive", "suspended"}, Severity: "WARNING",
				Description: "account status is one of the known states",
			},
			{
				ID: "date_of_birth_format", Field: "date_of_birth", Check: CheckDateFormat,
				Severity: "WARNING", Description: "date of birth parses under a recognized layout",
			},
			{
				ID: "created_date_format", Field: "created_date", Check: CheckDateFormat,
				Severity: "WARNING", Description: "created date parses under a recognized layout",
			},
		},
	}
}
