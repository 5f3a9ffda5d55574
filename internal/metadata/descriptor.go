package metadata

import "fmt"

// UpdateStyle governs whether default-valued fields are written or stripped.
type UpdateStyle string

const (
	// StyleAll writes fields even when they hold their zero value.
	StyleAll UpdateStyle = "all"
	// StyleNonDefault strips zero-valued fields before persistence.
	StyleNonDefault UpdateStyle = "non-default"
)

// FieldRule declares per-field write behavior on a request type.
type FieldRule struct {
	Field    string      `json:"field"`
	Column   string      `json:"column,omitempty"`  // rename target, empty keeps the field name
	Default  string      `json:"default,omitempty"` // expression replacing zero values
	Style    UpdateStyle `json:"style,omitempty"`   // per-field override of the type style
	Ignore   bool        `json:"ignore,omitempty"`  // exclude from persisted values entirely
	Nullable bool        `json:"nullable,omitempty"`
}

// PopulateRule unconditionally overwrites a field with an evaluated
// expression before persistence.
type PopulateRule struct {
	Field string `json:"field"`
	Expr  string `json:"expr"`
}

// FilterRule contributes an AND-ed predicate term instead of a written
// column. Exactly one of Op+Expr or Template+Expr applies; a Template must
// contain a single parameter placeholder.
type FilterRule struct {
	Field    string `json:"field"`
	Op       string `json:"op,omitempty"` // =, !=, <, <=, >, >= (default =)
	Expr     string `json:"expr"`
	Template string `json:"template,omitempty"` // raw SQL fragment with one ? placeholder
}

// Rule is a declarative validation rule evaluated before a write.
type Rule struct {
	Type       string `json:"type"` // field | expression
	Field      string `json:"field,omitempty"`
	Operator   string `json:"operator,omitempty"` // min, max, min_length, max_length, pattern
	Value      any    `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"` // violation when it evaluates true
	Message    string `json:"message,omitempty"`
	StopOnFail bool   `json:"stop_on_fail,omitempty"`
}

// ResponseShape names the response fields an operation reports into. Empty
// names mean the response type carries no such field.
type ResponseShape struct {
	IDField     string `json:"id_field,omitempty"`
	CountField  string `json:"count_field,omitempty"`
	ResultField string `json:"result_field,omitempty"`
	TokenField  string `json:"token_field,omitempty"`
}

// Empty reports whether the response type has no shapeable fields at all.
func (s ResponseShape) Empty() bool {
	return s.IDField == "" && s.CountField == "" && s.ResultField == "" && s.TokenField == ""
}

// Descriptor is the statically registered behavior table for one request
// type. It is declared once at startup and looked up by Name; the engine
// never introspects request values beyond what is declared here.
type Descriptor struct {
	Name     string         `json:"name"`
	Model    string         `json:"model"`
	Style    UpdateStyle    `json:"style,omitempty"` // type-level default, StyleAll when empty
	Fields   []FieldRule    `json:"fields,omitempty"`
	Populate []PopulateRule `json:"populate,omitempty"`
	Filters  []FilterRule   `json:"filters,omitempty"`
	Rules    []Rule         `json:"rules,omitempty"`
	// Apply carries marker annotations ("audit", "soft-delete") consumed by
	// registered metadata filters.
	Apply    []string      `json:"apply,omitempty"`
	Response ResponseShape `json:"response,omitempty"`
}

// Validate checks the descriptor is well formed.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor name is required")
	}
	if d.Model == "" {
		return fmt.Errorf("descriptor %s: model is required", d.Name)
	}
	for _, f := range d.Fields {
		if f.Field == "" {
			return fmt.Errorf("descriptor %s: field rule without a field name", d.Name)
		}
		if f.Style != "" && f.Style != StyleAll && f.Style != StyleNonDefault {
			return fmt.Errorf("descriptor %s: field %s has unknown style %q", d.Name, f.Field, f.Style)
		}
	}
	for _, p := range d.Populate {
		if p.Field == "" || p.Expr == "" {
			return fmt.Errorf("descriptor %s: populate rule needs field and expr", d.Name)
		}
	}
	for _, f := range d.Filters {
		if f.Field == "" || f.Expr == "" {
			return fmt.Errorf("descriptor %s: filter rule needs field and expr", d.Name)
		}
	}
	return nil
}

// DefaultDescriptor synthesizes a plain descriptor for a model that has no
// explicit one registered. Writes every supplied field, reports the record
// id, and audits plus soft-deletes according to the model flags.
func DefaultDescriptor(m *Model) *Descriptor {
	d := &Descriptor{
		Name:     m.Name,
		Model:    m.Name,
		Style:    StyleAll,
		Response: ResponseShape{IDField: m.PrimaryKey.Field},
	}
	if m.SoftDelete {
		d.Apply = append(d.Apply, "soft-delete")
	}
	return d
}

// HasApply reports whether a marker annotation is present.
func (d *Descriptor) HasApply(name string) bool {
	for _, a := range d.Apply {
		if a == name {
			return true
		}
	}
	return false
}
