// pkg/classify/classify_test.go
package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/config"
	"github.com/fintech-data/pii-sentry/pkg/model"
)

func newTestClassifier(t *testing.T, opts Options) *Classifier {
	t.Helper()
	if opts.MatchThreshold == 0 {
		opts.MatchThreshold = 0.8
	}
	if opts.DateFormats == nil {
		opts.DateFormats = config.DefaultDateFormats
	}
	c, err := NewClassifier(opts, zap.NewNop())
	require.NoError(t, err)
	return c
}

func customerFixture() *model.Table {
	tbl := model.NewTable("customers", []string{
		"customer_id", "first_name", "last_name", "email", "phone",
		"address", "date_of_birth", "income", "account_status", "created_date",
	})

	rows := []model.Record{
		{
			"customer_id": int64(1001), "first_name": "John", "last_name": "Doe",
			"email": "john.doe@email.com", "phone": "555-123-4567",
			"address": "123 Main St New York NY 10001", "date_of_birth": "1985-03-15",
			"income": float64(75000), "account_status": "active", "created_date": "2020-01-15",
		},
		{
			"customer_id": int64(1002), "first_name": "Jane", "last_name": "Smith",
			"email": "jane.smith@email.com", "phone": "555-987-6543",
			"address": "456 Oak Ave Los Angeles CA 90001", "date_of_birth": "1990-07-22",
			"income": float64(95000), "account_status": "inactive", "created_date": "2019-06-20",
		},
		{
			"customer_id": int64(1003), "first_name": "Bob", "last_name": "Johnson",
			"email": "bob@email.com", "phone": "(555) 234-5678",
			"address": "789 Pine Rd Chicago IL 60601", "date_of_birth": "invalid_date",
			"income": nil, "account_status": "suspended", "created_date": "2021-03-10",
		},
		{
			"customer_id": int64(1004), "first_name": "Alice", "last_name": "Williams",
			"email": "alice.w@email.com", "phone": "555.345.6789",
			"address": "321 Elm St Houston TX 77001", "date_of_birth": "1975/05/10",
			"income": float64(120000), "account_status": "active", "created_date": "2018-11-05",
		},
		{
			"customer_id": int64(1005), "first_name": "PATRICIA", "last_name": "Brown",
			"email": "Fake@email.com", "phone": "5554567890",
			"address": "654 Maple Dr Phoenix AZ 85001", "date_of_birth": "2005-12-25",
			"income": float64(55000), "account_status": "inactive", "created_date": "2022-07-30",
		},
	}
	for _, r := range rows {
		tbl.Append(r)
	}
	return tbl
}

func TestClassifyCustomerFields(t *testing.T) {
	c := newTestClassifier(t, Options{})
	got := c.Classify(customerFixture())

	want := map[string]model.PIICategory{
		"customer_id":    model.PIINone,
		"first_name":     model.PIIName,
		"last_name":      model.PIIName,
		"email":          model.PIIEmail,
		"phone":          model.PIIPhone,
		"address":        model.PIIAddress,
		"date_of_birth":  model.PIIDateOfBirth,
		"income":         model.PIINone,
		"account_status": model.PIINone,
		// Any parseable date column in the plausible year range
		// classifies as DATE_OF_BIRTH; classification is data-driven
		"created_date": model.PIIDateOfBirth,
	}

	for field, category := range want {
		assert.Equal(t, category, got.Category(field), "field %s", field)
	}

	// date_of_birth has 4 of 5 parseable values, exactly at threshold
	assert.InDelta(t, 0.8, got["date_of_birth"].MatchRatio, 1e-9)
	assert.Equal(t, 5, got["date_of_birth"].SampleSize)

	// income sampled 4 non-null values
	assert.Equal(t, 4, got["income"].SampleSize)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := newTestClassifier(t, Options{})
	tbl := customerFixture()

	first := c.Classify(tbl)
	second := c.Classify(tbl)
	assert.Equal(t, first, second)
}

func TestClassifyThresholdBoundary(t *testing.T) {
	tbl := model.NewTable("contacts", []string{"contact"})
	values := []string{
		"a@example.com", "b@example.com", "c@example.com", "d@example.com", "not-an-email",
	}
	for _, v := range values {
		tbl.Append(model.Record{"contact": v})
	}

	// 4/5 = 0.8 meets the default threshold
	c := newTestClassifier(t, Options{MatchThreshold: 0.8})
	assert.Equal(t, model.PIIEmail, c.Classify(tbl).Category("contact"))

	// A stricter threshold rejects the same column
	strict := newTestClassifier(t, Options{MatchThreshold: 0.9})
	assert.Equal(t, model.PIINone, strict.Classify(tbl).Category("contact"))
}

func TestClassifyPriorityTieBreak(t *testing.T) {
	// With a digit-only date layout these values match both PHONE and
	// DATE_OF_BIRTH; the fixed priority order assigns PHONE
	c := newTestClassifier(t, Options{
		MatchThreshold: 0.8,
		DateFormats:    []string{"01022006"},
	})

	tbl := model.NewTable("ambiguous", []string{"value"})
	for _, v := range []string{"03151985", "07221990", "05101975", "12252005"} {
		tbl.Append(model.Record{"value": v})
	}

	got := c.Classify(tbl)
	assert.Equal(t, model.PIIPhone, got.Category("value"))
}

func TestClassifySampleLimit(t *testing.T) {
	tbl := model.NewTable("contacts", []string{"contact"})
	// First two non-null values are emails; the rest are not
	for _, v := range []interface{}{nil, "a@example.com", "b@example.com", "plain", "text"} {
		tbl.Append(model.Record{"contact": v})
	}

	c := newTestClassifier(t, Options{SampleSize: 2})
	got := c.Classify(tbl)

	assert.Equal(t, model.PIIEmail, got.Category("contact"))
	assert.Equal(t, 2, got["contact"].SampleSize)
}

func TestClassifyEmptyColumn(t *testing.T) {
	tbl := model.NewTable("contacts", []string{"notes"})
	tbl.Append(model.Record{"notes": nil})
	tbl.Append(model.Record{"notes": nil})

	c := newTestClassifier(t, Options{})
	got := c.Classify(tbl)

	assert.Equal(t, model.PIINone, got.Category("notes"))
	assert.Equal(t, 0, got["notes"].SampleSize)
}

func TestNewClassifierValidation(t *testing.T) {
	_, err := NewClassifier(Options{MatchThreshold: 0.8, DateFormats: config.DefaultDateFormats}, nil)
	assert.Error(t, err)

	_, err = NewClassifier(Options{MatchThreshold: 1.5, DateFormats: config.DefaultDateFormats}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClassifier(Options{MatchThreshold: 0.8}, zap.NewNop())
	assert.Error(t, err)
}

func TestMatchers(t *testing.T) {
	tests := []struct {
		name     string
		category model.PIICategory
		value    string
		want     bool
	}{
		{"valid email", model.PIIEmail, "jill@x.com", true},
		{"email with mixed case", model.PIIEmail, "Fake@email.com", true},
		{"email missing tld", model.PIIEmail, "jill@x", false},
		{"email missing local", model.PIIEmail, "@x.com", false},

		{"dashed phone", model.PIIPhone, "555-123-4567", true},
		{"parenthesized phone", model.PIIPhone, "(555) 234-5678", true},
		{"dotted phone", model.PIIPhone, "555.345.6789", true},
		{"bare ten digits", model.PIIPhone, "5554567890", true},
		{"seven digit local", model.PIIPhone, "555-1234", true},
		{"country code", model.PIIPhone, "+1-555-123-4567", true},
		{"iso date is not a phone", model.PIIPhone, "1985-03-15", false},
		{"too few digits", model.PIIPhone, "555-12", false},

		{"street with st", model.PIIAddress, "123 Main St New York NY 10001", true},
		{"street with drive", model.PIIAddress, "654 Maple Dr Phoenix AZ 85001", true},
		{"no street number", model.PIIAddress, "Main St New York", false},
		{"no street token", model.PIIAddress, "123 4567 89", false},

		{"title case name", model.PIIName, "Patricia Smith", true},
		{"all caps name", model.PIIName, "PATRICIA SMITH", true},
		{"name with particle", model.PIIName, "Connor O'Brien", true},
		{"status word excluded", model.PIIName, "Active", false},
		{"too many tokens", model.PIIName, "One Two Three Four Five", false},
		{"digits excluded", model.PIIName, "John 2nd", false},
	}

	c := newTestClassifier(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.matches(tt.category, tt.value))
		})
	}
}

func TestMatchDateOfBirthRange(t *testing.T) {
	layouts := config.DefaultDateFormats
	assert.True(t, matchDateOfBirth("1985-03-15", layouts))
	assert.True(t, matchDateOfBirth("1975/05/10", layouts))
	assert.False(t, matchDateOfBirth("invalid_date", layouts))
	assert.False(t, matchDateOfBirth("13/45/2020", layouts))
	// Years outside a plausible lifetime are rejected
	assert.False(t, matchDateOfBirth("1850-01-01", layouts))
	assert.False(t, matchDateOfBirth("2150-01-01", layouts))
}
