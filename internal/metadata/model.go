package metadata

import "fmt"

// Model describes a persisted table: columns, primary key, generation mode.
// Models are supplied by the schema layer and treated as read-only.
type Model struct {
	Name       string     `json:"name"`
	Table      string     `json:"table"`
	PrimaryKey PrimaryKey `json:"primary_key"`
	SoftDelete bool       `json:"soft_delete,omitempty"`
	// Token names the concurrency-token column (e.g. a version counter),
	// empty when the model has none.
	Token  string  `json:"concurrency_token,omitempty"`
	Fields []Field `json:"fields"`
}

type PrimaryKey struct {
	Field string `json:"field"`
	Type  string `json:"type"` // uuid, int, bigint, string
	// Generated marks database/application generated keys. When false the
	// caller must supply a non-default key value on create.
	Generated bool `json:"generated"`
}

type Field struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Required  bool   `json:"required,omitempty"`
	Unique    bool   `json:"unique,omitempty"`
	Default   any    `json:"default,omitempty"`
	Nullable  bool   `json:"nullable,omitempty"`
	Precision int    `json:"precision,omitempty"`
}

// GetField returns a pointer to the field with the given name, or nil.
func (m *Model) GetField(name string) *Field {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

// HasField returns true if the model has a field with the given name.
func (m *Model) HasField(name string) bool {
	return m.GetField(name) != nil
}

// FieldNames returns all field names in declaration order.
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks the model is well formed enough to persist against.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if m.Table == "" {
		return fmt.Errorf("model %s: table is required", m.Name)
	}
	if m.PrimaryKey.Field == "" {
		return fmt.Errorf("model %s: primary key field is required", m.Name)
	}
	if !m.HasField(m.PrimaryKey.Field) {
		return fmt.Errorf("model %s: primary key %s is not a declared field", m.Name, m.PrimaryKey.Field)
	}
	if m.Token != "" && !m.HasField(m.Token) {
		return fmt.Errorf("model %s: concurrency token %s is not a declared field", m.Name, m.Token)
	}
	return nil
}

// ZeroValue returns the column default for a field: the declared default when
// present, nil for nullable columns, else the zero value of the field type.
func (f *Field) ZeroValue() any {
	if f.Default != nil {
		return f.Default
	}
	if f.Nullable {
		return nil
	}
	switch f.Type {
	case "int", "integer", "bigint":
		return int64(0)
	case "decimal", "float":
		return float64(0)
	case "boolean":
		return false
	default:
		return ""
	}
}
