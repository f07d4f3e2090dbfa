// Package typemap maps component field schemas to TypeScript type expressions.
//
// Mapping is pure: every lookup goes through the registry snapshot handed to New,
// so a Mapper performs no I/O and yields the same expression for the same field.
package typemap

import (
	"sort"

	"github.com/leapstack-labs/sbtypegen/internal/naming"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
	"github.com/leapstack-labs/sbtypegen/pkg/tsdecl"
)

// Names of the opaque types declared by the hand-authored base declarations.
const (
	RichTextType = "SbRichText"
	ImageType    = "SbImage"
	LinkType     = "SbLink"
	TableType    = "SbTable"
)

// Mapper resolves field schemas against one registry snapshot.
type Mapper struct {
	registry *core.Registry
	names    *naming.Resolver
	diags    *core.Diagnostics

	// opaque records which base types were referenced.
	opaque map[string]bool
}

// New creates a mapper. Warnings are recorded in diags when it is non-nil.
func New(registry *core.Registry, names *naming.Resolver, diags *core.Diagnostics) *Mapper {
	if names == nil {
		names = naming.NewResolver("")
	}
	return &Mapper{
		registry: registry,
		names:    names,
		diags:    diags,
		opaque:   make(map[string]bool),
	}
}

// MapField returns the type expression of a field of the named component.
// The second result is false for fields that carry no data (sections).
func (m *Mapper) MapField(component string, field core.FieldSchema) (tsdecl.TypeExpr, bool) {
	switch field.Kind {
	case core.FieldSection:
		return nil, false

	case core.FieldText, core.FieldTextarea, core.FieldDateTime, core.FieldMarkdown:
		return tsdecl.String, true

	case core.FieldNumber:
		// the delivery API transmits numbers as strings
		return tsdecl.String, true

	case core.FieldBoolean:
		return tsdecl.Boolean, true

	case core.FieldRichText:
		return m.opaqueRef(RichTextType), true
	case core.FieldAsset:
		return m.opaqueRef(ImageType), true
	case core.FieldMultiAsset:
		return &tsdecl.Array{Elem: m.opaqueRef(ImageType)}, true
	case core.FieldMultiLink:
		return m.opaqueRef(LinkType), true
	case core.FieldTable:
		return m.opaqueRef(TableType), true

	case core.FieldOption:
		return m.enumeration(component, field), true
	case core.FieldOptions:
		return &tsdecl.Array{Elem: m.enumeration(component, field)}, true

	case core.FieldBlocks:
		return m.blocks(component, field), true

	default:
		m.warnf(core.WarnUnknownField, component, field.Name, "field type %q is not recognised, using unknown", field.RawType)
		return tsdecl.Unknown, true
	}
}

// OpaqueTypes returns the base type names referenced so far, sorted.
func (m *Mapper) OpaqueTypes() []string {
	names := make([]string, 0, len(m.opaque))
	for n := range m.opaque {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *Mapper) opaqueRef(name string) *tsdecl.Ref {
	m.opaque[name] = true
	return &tsdecl.Ref{Name: name}
}

// =============================================================================
// Enumerations
// =============================================================================

// enumeration resolves an option field to a union of literal values. A datasource
// reference wins over inline options; no values at all degrades to string.
func (m *Mapper) enumeration(component string, field core.FieldSchema) tsdecl.TypeExpr {
	var values []string
	if field.DatasourceSlug != "" {
		values = m.registry.DatasourceValues(field.DatasourceSlug)
		if len(values) == 0 {
			if m.registry.HasDatasource(field.DatasourceSlug) {
				m.warnf(core.WarnEmptyDatasource, component, field.Name, "datasource %q has no entries, using string", field.DatasourceSlug)
			} else {
				m.warnf(core.WarnEmptyDatasource, component, field.Name, "datasource %q was not fetched, using string", field.DatasourceSlug)
			}
			return tsdecl.String
		}
	} else {
		for _, o := range field.Options {
			values = append(values, o.Value)
		}
	}

	members := literalUnion(values)
	if len(members) == 0 {
		return tsdecl.String
	}
	return &tsdecl.Union{Members: members}
}

// literalUnion quotes values as literal types, dropping repeats.
func literalUnion(values []string) []tsdecl.TypeExpr {
	seen := make(map[string]bool, len(values))
	var members []tsdecl.TypeExpr
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		members = append(members, &tsdecl.Literal{Value: v})
	}
	return members
}

// =============================================================================
// Blocks
// =============================================================================

// blocks resolves a blocks field to an array of the allowed component types.
// Every blocks field is array-wrapped; an empty restriction yields never[].
func (m *Mapper) blocks(component string, field core.FieldSchema) tsdecl.TypeExpr {
	r := field.Restriction

	var names []string
	switch r.Mode {
	case core.RestrictNone:
		for i := range m.registry.Components {
			names = append(names, m.registry.Components[i].Name)
		}

	case core.RestrictWhitelist:
		missing := make(map[string]bool)
		for _, name := range r.Components {
			if _, ok := m.registry.Component(name); !ok {
				if !missing[name] {
					missing[name] = true
					m.warnf(core.WarnUnknownWhitelist, component, field.Name, "whitelisted component %q does not exist", name)
				}
				continue
			}
			names = append(names, name)
		}

	case core.RestrictGroup:
		groups := m.registry.GroupDescendants(r.Groups...)
		for i := range m.registry.Components {
			c := &m.registry.Components[i]
			if c.GroupUUID != "" && groups[c.GroupUUID] {
				names = append(names, c.Name)
			}
		}

	case core.RestrictTag:
		for i := range m.registry.Components {
			c := &m.registry.Components[i]
			for _, tag := range r.Tags {
				if c.HasTag(tag) {
					names = append(names, c.Name)
					break
				}
			}
		}
	}

	members := m.componentRefs(names)
	if len(members) == 0 && r.Mode != core.RestrictNone {
		m.warnf(core.WarnEmptyRestriction, component, field.Name, "%s restriction matches no component, using never[]", r.Mode)
	}
	return &tsdecl.Array{Elem: &tsdecl.Union{Members: members}}
}

// componentRefs resolves component names to type references, keeping the first
// occurrence of each resolved name.
func (m *Mapper) componentRefs(names []string) []tsdecl.TypeExpr {
	seen := make(map[string]bool, len(names))
	var refs []tsdecl.TypeExpr
	for _, name := range names {
		typeName := m.names.TypeName(name)
		if seen[typeName] {
			continue
		}
		seen[typeName] = true
		refs = append(refs, &tsdecl.Ref{Name: typeName})
	}
	return refs
}

func (m *Mapper) warnf(kind core.WarningKind, component, field, format string, args ...any) {
	if m.diags != nil {
		m.diags.Addf(kind, component, field, format, args...)
	}
}
