// pkg/model/schema.go
package model

// FieldKind is the semantic type of a field, resolved once during
// schema setup. Imputation placeholders are selected by kind, never
// by inspecting individual cells.
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumber
)

// String returns a human-readable kind name
func (k FieldKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	default:
		return "string"
	}
}

// Field pairs a column name with its resolved semantic kind
type Field struct {
	Name string
	Kind FieldKind
}

// Schema is the resolved field list for a table, in column order
type Schema struct {
	Fields []Field
}

// KindOf returns the kind for a field name.
// Unknown fields default to KindString.
func (s Schema) KindOf(name string) FieldKind {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Kind
		}
	}
	return KindString
}

// FieldNames returns the schema's column names in order
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// InferSchema resolves a kind for every table field by scanning cells.
// A field is numeric when every non-null value is carried as a Go
// numeric type; numeric-looking strings stay strings so that phone and
// postal fields are not misclassified.
func InferSchema(t *Table) Schema {
	schema := Schema{Fields: make([]Field, 0, len(t.Fields))}
	for _, name := range t.Fields {
		kind := KindString
		seen := false
		numeric := true
		for _, rec := range t.Records {
			v := rec[name]
			if IsNull(v) {
				continue
			}
			seen = true
			if !IsNumeric(v) {
				numeric = false
				break
			}
		}
		if seen && numeric {
			kind = KindNumber
		}
		schema.Fields = append(schema.Fields, Field{Name: name, Kind: kind})
	}
	return schema
}
