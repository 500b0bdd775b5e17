// pkg/mask/policy.go
package mask

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

// Policy declares which PII categories the masker transforms. Decoded
// from a YAML document when a policy file is configured; the default
// policy masks every category.
type Policy struct {
	// Categories lists the category names to mask (EMAIL, PHONE,
	// DATE_OF_BIRTH, ADDRESS, NAME). Empty means all of them.
	Categories []string `yaml:"categories"`
}

// DefaultPolicy masks every category
func DefaultPolicy() *Policy {
	return &Policy{}
}

// LoadPolicy reads a masking policy from a YAML file
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading masking policy: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parsing masking policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &policy, nil
}

// Validate rejects category names the masker does not know
func (p *Policy) Validate() error {
	for _, name := range p.Categories {
		if _, ok := categoryByName(name); !ok {
			return fmt.Errorf("unknown masking category %q", name)
		}
	}
	return nil
}

// Applies reports whether the policy masks the given category
func (p *Policy) Applies(category model.PIICategory) bool {
	if category == model.PIINone {
		return false
	}
	if len(p.Categories) == 0 {
		return true
	}
	for _, name := range p.Categories {
		if c, ok := categoryByName(name); ok && c == category {
			return true
		}
	}
	return false
}

// Filter returns the subset of a classification the policy masks.
// An unrestricted policy returns the classification unchanged.
func (p *Policy) Filter(c model.Classification) model.Classification {
	if len(p.Categories) == 0 {
		return c
	}

	out := make(model.Classification, len(c))
	for field, fc := range c {
		if p.Applies(fc.Category) {
			out[field] = fc
		}
	}
	return out
}

func categoryByName(name string) (model.PIICategory, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for _, c := range model.CategoryPriority {
		if c.String() == normalized {
			return c, true
		}
	}
	return model.PIINone, false
}
