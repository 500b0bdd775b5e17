// pkg/model/table.go
package model

import (
	"errors"
	"fmt"
)

// ErrSchemaMismatch indicates a record whose field set differs from the
// table schema. It is the only fatal precondition in the pipeline; every
// downstream stage assumes a uniform schema.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Record maps a field name to a cell value. Values are one of
// string, a numeric type, or nil.
type Record map[string]interface{}

// Table is an ordered set of records sharing one schema
type Table struct {
	Name    string   // Logical dataset name (e.g., "customers")
	Fields  []string // Column order, fixed at ingestion
	Records []Record
}

// NewTable creates an empty table with the given column order
func NewTable(name string, fields []string) *Table {
	return &Table{
		Name:    name,
		Fields:  append([]string{}, fields...),
		Records: make([]Record, 0),
	}
}

// Append adds a record to the table. Schema conformance is checked
// separately via CheckSchema before the pipeline runs.
func (t *Table) Append(rec Record) {
	t.Records = append(t.Records, rec)
}

// RowCount returns the number of records in the table
func (t *Table) RowCount() int {
	return len(t.Records)
}

// HasField reports whether the table schema contains the given field
func (t *Table) HasField(name string) bool {
	for _, f := range t.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// CheckSchema verifies that every record carries exactly the table's
// field set. It must be called before classification or validation;
// the returned error wraps ErrSchemaMismatch and names the first
// offending record.
func (t *Table) CheckSchema() error {
	for i, rec := range t.Records {
		if len(rec) != len(t.Fields) {
			return fmt.Errorf("record %d has %d fields, schema has %d: %w",
				i, len(rec), len(t.Fields), ErrSchemaMismatch)
		}
		for _, f := range t.Fields {
			if _, ok := rec[f]; !ok {
				return fmt.Errorf("record %d missing field %q: %w", i, f, ErrSchemaMismatch)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the table. Masking operates on a clone
// so the remediated table is never mutated after it is final.
func (t *Table) Clone() *Table {
	out := NewTable(t.Name, t.Fields)
	out.Records = make([]Record, 0, len(t.Records))
	for _, rec := range t.Records {
		copied := make(Record, len(rec))
		for k, v := range rec {
			copied[k] = v
		}
		out.Records = append(out.Records, copied)
	}
	return out
}
