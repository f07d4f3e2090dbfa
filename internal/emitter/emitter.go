// Package emitter assembles the content declaration unit: one type alias per
// component plus the paired index unions over all, nestable and content-type
// components.
package emitter

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/sbtypegen/internal/naming"
	"github.com/leapstack-labs/sbtypegen/internal/typemap"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
	"github.com/leapstack-labs/sbtypegen/pkg/tsdecl"
)

// Defaults for Config.
const (
	DefaultComponentTag = "SbComponent"
	DefaultBaseModule   = "./storyblok.components.base"
)

// Reserved index union names.
const (
	AllNames         = "SbComponentNames"
	AllTypes         = "SbComponents"
	NestableNames    = "SbNestableComponentNames"
	NestableTypes    = "SbNestableComponents"
	ContentTypeNames = "SbContentTypeComponentNames"
	ContentTypeTypes = "SbContentTypeComponents"
)

// Config configures an Emitter.
type Config struct {
	// ComponentTag is the generic base type wrapping every component:
	// ComponentTag<'name', { ...fields }>.
	ComponentTag string
	// BaseModule is the module the component tag and opaque types are imported from.
	BaseModule string
	Names      *naming.Resolver
	// Reserved lists names already declared in the global scope by the base
	// declarations. A component resolving to one of them is a collision unless
	// the content unit imports that name.
	Reserved []string
}

// Emitter builds content declaration units from registry snapshots.
type Emitter struct {
	tag      string
	module   string
	names    *naming.Resolver
	reserved []string
}

// New creates an emitter, filling unset config values with defaults.
func New(cfg Config) *Emitter {
	e := &Emitter{tag: cfg.ComponentTag, module: cfg.BaseModule, names: cfg.Names, reserved: cfg.Reserved}
	if e.tag == "" {
		e.tag = DefaultComponentTag
	}
	if e.module == "" {
		e.module = DefaultBaseModule
	}
	if e.names == nil {
		e.names = naming.NewResolver("")
	}
	return e
}

// Emit builds the declaration unit for a registry. The result depends only on the
// registry contents, so identical snapshots print to identical bytes.
//
// A type name produced by more than one source (a component, an index union, an
// import or a base declaration) fails with *core.NameCollisionError.
func (e *Emitter) Emit(reg *core.Registry, diags *core.Diagnostics) (*tsdecl.Unit, error) {
	mapper := typemap.New(reg, e.names, diags)

	components := make([]*tsdecl.Declaration, 0, len(reg.Components))
	for i := range reg.Components {
		components = append(components, e.component(mapper, &reg.Components[i]))
	}

	imports := append([]string{e.tag}, mapper.OpaqueTypes()...)
	if err := e.checkCollisions(reg, imports); err != nil {
		return nil, err
	}

	unit := &tsdecl.Unit{
		Imports: []*tsdecl.Import{tsdecl.NewImport(e.module, true, imports...)},
	}
	unit.Declarations = append(unit.Declarations, e.indexUnions(reg)...)
	unit.Declarations = append(unit.Declarations, components...)
	return unit, nil
}

// Render emits the unit for a registry and prints it at module scope.
func (e *Emitter) Render(reg *core.Registry, diags *core.Diagnostics) (string, error) {
	unit, err := e.Emit(reg, diags)
	if err != nil {
		return "", err
	}
	return tsdecl.PrintUnit(unit), nil
}

func (e *Emitter) component(mapper *typemap.Mapper, c *core.Component) *tsdecl.Declaration {
	props := make([]tsdecl.Prop, 0, len(c.Fields))
	for _, f := range c.Fields {
		typ, ok := mapper.MapField(c.Name, f)
		if !ok {
			continue
		}
		props = append(props, tsdecl.Prop{Name: f.Name, Type: typ})
	}

	body := &tsdecl.Ref{
		Name: e.tag,
		Args: []tsdecl.TypeExpr{&tsdecl.Literal{Value: c.Name}, &tsdecl.Object{Props: props}},
	}
	return tsdecl.NewTypeAlias(e.names.TypeName(c.Name), body, true)
}

// =============================================================================
// Index unions
// =============================================================================

func (e *Emitter) indexUnions(reg *core.Registry) []*tsdecl.Declaration {
	var all, nestable, contentTypes []*core.Component
	for i := range reg.Components {
		c := &reg.Components[i]
		all = append(all, c)
		if c.IsNestable {
			nestable = append(nestable, c)
		} else {
			contentTypes = append(contentTypes, c)
		}
	}

	var decls []*tsdecl.Declaration
	decls = append(decls, e.indexPair(AllNames, AllTypes, all)...)
	decls = append(decls, e.indexPair(NestableNames, NestableTypes, nestable)...)
	decls = append(decls, e.indexPair(ContentTypeNames, ContentTypeTypes, contentTypes)...)
	return decls
}

// indexPair builds the literal-name union and the type union of a component set.
// An empty set yields never for both.
func (e *Emitter) indexPair(namesAlias, typesAlias string, components []*core.Component) []*tsdecl.Declaration {
	names := &tsdecl.Union{Multiline: true}
	types := &tsdecl.Union{Multiline: true}
	for _, c := range components {
		names.Members = append(names.Members, &tsdecl.Literal{Value: c.Name})
		types.Members = append(types.Members, &tsdecl.Ref{Name: e.names.TypeName(c.Name)})
	}
	return []*tsdecl.Declaration{
		tsdecl.NewTypeAlias(namesAlias, names, true),
		tsdecl.NewTypeAlias(typesAlias, types, true),
	}
}

// =============================================================================
// Collisions
// =============================================================================

func (e *Emitter) checkCollisions(reg *core.Registry, imports []string) error {
	sources := make(map[string][]string)
	add := func(name, source string) {
		sources[name] = append(sources[name], source)
	}

	imported := make(map[string]bool, len(imports))
	for _, name := range imports {
		imported[name] = true
		add(name, fmt.Sprintf("import from %q", e.module))
	}
	reserved := make(map[string]bool, len(e.reserved))
	for _, name := range e.reserved {
		if imported[name] || reserved[name] {
			continue
		}
		reserved[name] = true
		add(name, "base declaration")
	}
	for _, name := range []string{AllNames, AllTypes, NestableNames, NestableTypes, ContentTypeNames, ContentTypeTypes} {
		add(name, "index union")
	}
	for i := range reg.Components {
		name := reg.Components[i].Name
		add(e.names.TypeName(name), fmt.Sprintf("component %q", name))
	}

	names := make([]string, 0, len(sources))
	for name, src := range sources {
		if len(src) > 1 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return &core.NameCollisionError{Name: names[0], Sources: sources[names[0]]}
}
