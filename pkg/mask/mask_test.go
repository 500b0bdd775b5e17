// pkg/mask/mask_test.go
package mask

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fintech-data/pii-sentry/pkg/model"
)

func newTestMasker(t *testing.T) *Masker {
	t.Helper()
	masker, err := NewMasker(Options{StringPlaceholder: "[UNKNOWN]"}, zap.NewNop())
	require.NoError(t, err)
	return masker
}

// cleanedFixture mirrors a table that already went through remediation
func cleanedFixture() *model.Table {
	fields := []string{
		"customer_id", "first_name", "last_name", "email", "phone",
		"address", "income", "account_status", "date_of_birth",
	}
	rows := []model.Record{
		{
			"customer_id": int64(1), "first_name": "John", "last_name": "Doe",
			"email": "john.doe@gmail.com", "phone": "555-123-4567",
			"address": "123 Main St New York NY 10001", "income": float64(75000),
			"account_status": "active", "date_of_birth": "1985-03-15",
		},
		{
			"customer_id": int64(2), "first_name": "Patricia", "last_name": "Smith",
			"email": "fake@email.com", "phone": "555-987-6543",
			"address": "456 Oak Ave Los Angeles CA 90001", "income": float64(95000),
			"account_status": "inactive", "date_of_birth": "1990-07-22",
		},
		{
			"customer_id": int64(3), "first_name": "[UNKNOWN]", "last_name": "Johnson",
			"email": "bob@email.com", "phone": "[UNKNOWN]",
			"address": "Apartment Four Springfield", "income": float64(60000),
			"account_status": "suspended", "date_of_birth": "[UNKNOWN]",
		},
	}

	table := model.NewTable("customers", fields)
	for _, row := range rows {
		table.Append(row)
	}
	return table
}

func fixtureClassification() model.Classification {
	return model.Classification{
		"first_name":    {Field: "first_name", Category: model.PIIName},
		"last_name":     {Field: "last_name", Category: model.PIIName},
		"email":         {Field: "email", Category: model.PIIEmail},
		"phone":         {Field: "phone", Category: model.PIIPhone},
		"address":       {Field: "address", Category: model.PIIAddress},
		"date_of_birth": {Field: "date_of_birth", Category: model.PIIDateOfBirth},
	}
}

func TestMaskNames(t *testing.T) {
	masker := newTestMasker(t)
	out := masker.Mask(cleanedFixture(), fixtureClassification())

	assert.Equal(t, "J***", out.Records[0]["first_name"])
	assert.Equal(t, "D**", out.Records[0]["last_name"])
	assert.Equal(t, "P*******", out.Records[1]["first_name"])
	assert.Equal(t, "S****", out.Records[1]["last_name"])

	// Placeholders carry no PII and stay readable
	assert.Equal(t, "[UNKNOWN]", out.Records[2]["first_name"])
}

func TestMaskEmails(t *testing.T) {
	masker := newTestMasker(t)
	out := masker.Mask(cleanedFixture(), fixtureClassification())

	assert.Equal(t, "j*******@gmail.com", out.Records[0]["email"])
	assert.Equal(t, "f***@email.com", out.Records[1]["email"])
	assert.Equal(t, "b**@email.com", out.Records[2]["email"])
}

func TestMaskPhones(t *testing.T) {
	masker := newTestMasker(t)
	out := masker.Mask(cleanedFixture(), fixtureClassification())

	assert.Equal(t, "***-***-4567", out.Records[0]["phone"])
	assert.Equal(t, "***-***-6543", out.Records[1]["phone"])
	assert.Equal(t, "[UNKNOWN]", out.Records[2]["phone"])
}

func TestMaskDateOfBirth(t *testing.T) {
	masker := newTestMasker(t)
	out := masker.Mask(cleanedFixture(), fixtureClassification())

	assert.Equal(t, "1985-**-**", out.Records[0]["date_of_birth"])
	assert.Equal(t, "1990-**-**", out.Records[1]["date_of_birth"])
	assert.Equal(t, "[UNKNOWN]", out.Records[2]["date_of_birth"])
}

func TestMaskAddresses(t *testing.T) {
	masker := newTestMasker(t)
	out := masker.Mask(cleanedFixture(), fixtureClassification())

	assert.Equal(t, "*** **** ** New York NY 10001", out.Records[0]["address"])
	assert.Equal(t, "*** *** *** Los Angeles CA 90001", out.Records[1]["address"])

	// No street type token to anchor on, mask wholesale
	assert.Equal(t, "[MASKED ADDRESS]", out.Records[2]["address"])
}

func TestMaskLeavesUnclassifiedFields(t *testing.T) {
	masker := newTestMasker(t)
	out := masker.Mask(cleanedFixture(), fixtureClassification())

	assert.Equal(t, int64(1), out.Records[0]["customer_id"])
	assert.Equal(t, float64(75000), out.Records[0]["income"])
	assert.Equal(t, "active", out.Records[0]["account_status"])
}

func TestMaskSkipsNulls(t *testing.T) {
	table := cleanedFixture()
	table.Records[0]["email"] = nil

	masker := newTestMasker(t)
	out := masker.Mask(table, fixtureClassification())

	assert.Nil(t, out.Records[0]["email"])
}

func TestMaskIsIdempotent(t *testing.T) {
	masker := newTestMasker(t)
	classification := fixtureClassification()

	once := masker.Mask(cleanedFixture(), classification)
	twice := masker.Mask(once, classification)

	assert.Equal(t, once, twice)
}

func TestMaskDoesNotMutateInput(t *testing.T) {
	table := cleanedFixture()
	snapshot := table.Clone()

	masker := newTestMasker(t)
	masker.Mask(table, fixtureClassification())

	assert.Equal(t, snapshot, table)
}

func TestMaskIsOneWay(t *testing.T) {
	masker := newTestMasker(t)
	out := masker.Mask(cleanedFixture(), fixtureClassification())

	name := out.Records[0]["first_name"].(string)
	assert.False(t, strings.Contains(name, "ohn"))

	email := out.Records[0]["email"].(string)
	assert.False(t, strings.Contains(email, "ohn.doe"))

	phone := out.Records[0]["phone"].(string)
	assert.False(t, strings.Contains(phone, "555-123"))

	address := out.Records[0]["address"].(string)
	assert.False(t, strings.Contains(address, "Main"))
	assert.False(t, strings.Contains(address, "123"))
}

func TestMaskTransforms(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		assert.Equal(t, "P******* S****", maskName("Patricia Smith"))
		assert.Equal(t, "J***", maskName("John"))
		assert.Equal(t, "J", maskName("J"))
	})

	t.Run("emails", func(t *testing.T) {
		assert.Equal(t, "j***@x.com", maskEmail("jill@x.com"))
		assert.Equal(t, "not-an-email", maskEmail("not-an-email"))
	})

	t.Run("phones", func(t *testing.T) {
		assert.Equal(t, "***-***-4567", maskPhone("555-123-4567"))
		assert.Equal(t, "(***) ***-5678", maskPhone("(555) 234-5678"))
		assert.Equal(t, "******7890", maskPhone("5554567890"))
		assert.Equal(t, "***-1234", maskPhone("555-1234"))
		assert.Equal(t, "***-*", maskPhone("123-4"))
	})

	t.Run("dates", func(t *testing.T) {
		assert.Equal(t, "1985-**-**", maskDateOfBirth("1985-03-15"))
		assert.Equal(t, "March 15 1985", maskDateOfBirth("March 15 1985"))
	})

	t.Run("addresses", func(t *testing.T) {
		assert.Equal(t, "*** **** ** New York NY 10001", maskStreetAddress("123 Main St New York NY 10001"))
		assert.Equal(t, "*** ***** **** Houston TX 77001", maskStreetAddress("321 Birch Blvd Houston TX 77001"))
		assert.Equal(t, "[MASKED ADDRESS]", maskStreetAddress("Somewhere Nice"))
	})
}
