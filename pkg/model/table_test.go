// pkg/model/table_test.go
package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSchema(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		wantErr bool
	}{
		{
			name: "uniform records pass",
			records: []Record{
				{"customer_id": int64(1), "first_name": "Ada"},
				{"customer_id": int64(2), "first_name": "Grace"},
			},
			wantErr: false,
		},
		{
			name: "missing field fails",
			records: []Record{
				{"customer_id": int64(1), "first_name": "Ada"},
				{"customer_id": int64(2)},
			},
			wantErr: true,
		},
		{
			name: "extra field fails",
			records: []Record{
				{"customer_id": int64(1), "first_name": "Ada", "email": "a@b.com"},
			},
			wantErr: true,
		},
		{
			name:    "empty table passes",
			records: nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable("customers", []string{"customer_id", "first_name"})
			for _, rec := range tt.records {
				tbl.Append(rec)
			}
			err := tbl.CheckSchema()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchemaMismatch))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := NewTable("customers", []string{"first_name"})
	tbl.Append(Record{"first_name": "Ada"})

	clone := tbl.Clone()
	clone.Records[0]["first_name"] = "A**"

	assert.Equal(t, "Ada", tbl.Records[0]["first_name"])
	assert.Equal(t, "A**", clone.Records[0]["first_name"])
	assert.Equal(t, tbl.Fields, clone.Fields)
}

func TestInferSchema(t *testing.T) {
	tbl := NewTable("customers", []string{"income", "phone", "notes"})
	tbl.Append(Record{"income": float64(75000), "phone": "555-123-4567", "notes": nil})
	tbl.Append(Record{"income": nil, "phone": "555-987-6543", "notes": nil})
	tbl.Append(Record{"income": int64(95000), "phone": "5554567890", "notes": nil})

	schema := InferSchema(tbl)

	assert.Equal(t, KindNumber, schema.KindOf("income"))
	// Digit-only strings stay strings
	assert.Equal(t, KindString, schema.KindOf("phone"))
	// All-null columns default to string
	assert.Equal(t, KindString, schema.KindOf("notes"))
	// Unknown fields default to string
	assert.Equal(t, KindString, schema.KindOf("nonexistent"))
	assert.Equal(t, []string{"income", "phone", "notes"}, schema.FieldNames())
}
