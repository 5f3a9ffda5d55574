package engine

import (
	"strings"
	"sync"

	"forge-backend/internal/metadata"
)

// ResetField is the request pseudo-field naming columns to force back to
// their column default.
const ResetField = "reset"

// TypeMeta is the resolved behavior table for one request type: the
// descriptor's rules indexed for lookup, plus flags injected by metadata
// filters. Computed once per type and cached; redundant concurrent
// computation yields equivalent content.
type TypeMeta struct {
	Descriptor *metadata.Descriptor
	Model      *metadata.Model

	Renames  map[string]string // field -> column
	Defaults map[string]string // column -> expression
	Styles   map[string]metadata.UpdateStyle
	Nullable map[string]bool
	Drop     map[string]bool // fields silently excluded from persisted values

	Populate []metadata.PopulateRule
	Filters  []metadata.FilterRule
	Rules    []metadata.Rule

	SoftDelete bool
	// SoftDeletePopulate is applied only when a Delete routes through the
	// update path of a soft-delete type.
	SoftDeletePopulate []metadata.PopulateRule
	Audit              bool
	TokenField         string
}

// Column returns the persisted column for a request field, honoring renames.
func (m *TypeMeta) Column(field string) string {
	if c, ok := m.Renames[field]; ok {
		return c
	}
	return field
}

// Style returns the effective update style for a column.
func (m *TypeMeta) Style(column string) metadata.UpdateStyle {
	if s, ok := m.Styles[column]; ok && s != "" {
		return s
	}
	if m.Descriptor.Style != "" {
		return m.Descriptor.Style
	}
	return metadata.StyleAll
}

// MetaFilter post-processes resolved metadata. Filters run in registration
// order and may mutate the TypeMeta, layering cross-cutting policies without
// touching the resolver.
type MetaFilter func(*TypeMeta) error

// Resolver resolves request types to TypeMeta through a process-wide
// concurrent cache. Entries are never evicted; Reset exists for tests.
type Resolver struct {
	registry *metadata.Registry
	filters  []MetaFilter
	cache    sync.Map // type name -> *TypeMeta
}

func NewResolver(reg *metadata.Registry, filters ...MetaFilter) *Resolver {
	return &Resolver{registry: reg, filters: filters}
}

// Resolve returns the behavior metadata for a request type. Safe for
// concurrent callers; a lost race recomputes identical content.
func (r *Resolver) Resolve(typeName string) (*TypeMeta, error) {
	if v, ok := r.cache.Load(typeName); ok {
		return v.(*TypeMeta), nil
	}

	meta, err := r.resolve(typeName)
	if err != nil {
		return nil, err
	}

	actual, _ := r.cache.LoadOrStore(typeName, meta)
	return actual.(*TypeMeta), nil
}

// Reset clears the cache. Test use only.
func (r *Resolver) Reset() {
	r.cache.Range(func(k, _ any) bool {
		r.cache.Delete(k)
		return true
	})
}

func (r *Resolver) resolve(typeName string) (*TypeMeta, error) {
	desc := r.registry.GetDescriptor(typeName)
	if desc == nil {
		return nil, UnknownTypeError(typeName)
	}
	model := r.registry.GetModel(desc.Model)
	if model == nil {
		return nil, UnknownTypeError(desc.Model)
	}

	meta := &TypeMeta{
		Descriptor: desc,
		Model:      model,
		Renames:    make(map[string]string),
		Defaults:   make(map[string]string),
		Styles:     make(map[string]metadata.UpdateStyle),
		Nullable:   make(map[string]bool),
		Drop:       make(map[string]bool),
		Populate:   desc.Populate,
		Filters:    desc.Filters,
		Rules:      desc.Rules,
		SoftDelete: model.SoftDelete || desc.HasApply("soft-delete"),
		TokenField: model.Token,
	}

	for _, f := range desc.Fields {
		column := f.Field
		if f.Column != "" && f.Column != f.Field {
			column = f.Column
			meta.Renames[f.Field] = f.Column
		}
		if f.Default != "" {
			meta.Defaults[column] = f.Default
		}
		if f.Style != "" {
			meta.Styles[column] = f.Style
		}
		if f.Nullable {
			meta.Nullable[column] = true
		}
		if dropField(meta, column, f) {
			meta.Drop[column] = true
		}
	}

	for _, filter := range r.filters {
		if err := filter(meta); err != nil {
			return nil, err
		}
	}

	return meta, nil
}

// dropField decides whether a declared field is silently excluded from
// persisted values: recognized pseudo-fields stay; otherwise a field with no
// model column is dropped when conventionally ignored or explicitly marked,
// and an explicit Ignore always wins.
func dropField(meta *TypeMeta, column string, f metadata.FieldRule) bool {
	if f.Ignore {
		return true
	}
	if column == ResetField || (meta.TokenField != "" && column == meta.TokenField) {
		return false
	}
	if meta.Model.HasField(column) {
		return false
	}
	return strings.HasPrefix(column, "_")
}

// AuditMarkerFilter flags descriptors carrying the "audit" marker so the
// executor records an event with their writes.
func AuditMarkerFilter(meta *TypeMeta) error {
	if meta.Descriptor.HasApply("audit") {
		meta.Audit = true
	}
	return nil
}

// SoftDeleteFilter injects populate rules for the soft-delete bookkeeping
// columns so a Delete on a soft-delete type runs as a field update. The
// deleted_at/deleted_by columns exist on every soft-delete table (the
// migrator adds them when not declared).
func SoftDeleteFilter(meta *TypeMeta) error {
	if !meta.SoftDelete {
		return nil
	}
	meta.SoftDeletePopulate = append(meta.SoftDeletePopulate,
		metadata.PopulateRule{Field: "deleted_at", Expr: "now()"},
		metadata.PopulateRule{Field: "deleted_by", Expr: "actor.id"},
	)
	return nil
}

// DefaultMetaFilters is the standard filter chain.
func DefaultMetaFilters() []MetaFilter {
	return []MetaFilter{AuditMarkerFilter, SoftDeleteFilter}
}
