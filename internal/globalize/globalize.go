// Package globalize rewrites a module-scoped declaration unit into an ambient
// `declare global` block, so consuming code can use its types without imports.
//
// Declarations defined in the unit are moved into the block with their export
// markers removed. Names the unit only passes through from another module
// (re-export lists, local exports of imported bindings and aliases that merely
// rename an import) become `export type { Name as Alias } from 'module'` entries
// inside the block.
package globalize

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sbtypegen/pkg/tsdecl"
)

// Options controls a transform.
type Options struct {
	// IgnoreImports drops the unit's imports instead of resolving exports through
	// them. Generated content units reference the globalized base types and need no
	// imports of their own.
	IgnoreImports bool
	// Logger receives a warning for every statement the unit cannot carry into
	// the block. Nil discards them.
	Logger *slog.Logger
}

// TransformError reports a unit that cannot be expressed as a global block.
type TransformError struct {
	Pos  tsdecl.Position
	Name string
	Msg  string
}

func (e *TransformError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Pos.Line, e.Pos.Column)
	if e.Pos.File != "" {
		loc = e.Pos.File + ":" + loc
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s: %s", loc, e.Name, e.Msg)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

// binding is an imported name: Name as exported by Module.
type binding struct {
	name   string
	module string
}

// reexport is one `Name as Alias` entry sourced from a module.
type reexport struct {
	binding
	alias string
	pos   tsdecl.Position
}

// Transform converts a parsed unit into a global block.
func Transform(u *tsdecl.Unit, opts Options) (*tsdecl.GlobalBlock, error) {
	t := &transform{
		unit:     u,
		opts:     opts,
		imports:  make(map[string]binding),
		declared: make(map[string]bool),
		consumed: make(map[string]bool),
	}
	return t.run()
}

// TransformSource parses src, transforms it and prints the global block.
func TransformSource(src, file string, opts Options) (string, error) {
	u, err := tsdecl.Parse(src, file)
	if err != nil {
		return "", err
	}
	block, err := Transform(u, opts)
	if err != nil {
		return "", err
	}
	return tsdecl.PrintGlobal(block), nil
}

type transform struct {
	unit *tsdecl.Unit
	opts Options

	// imports maps local binding names to their source.
	imports  map[string]binding
	declared map[string]bool
	// consumed marks imports turned into re-exports.
	consumed map[string]bool

	reexports []reexport
	decls     []*tsdecl.Declaration
}

func (t *transform) run() (*tsdecl.GlobalBlock, error) {
	t.warnSkipped()
	if !t.opts.IgnoreImports {
		t.collectImports()
	}
	for _, d := range t.unit.Declarations {
		t.declared[d.Name] = true
	}

	if err := t.collectExports(); err != nil {
		return nil, err
	}
	if err := t.collectDeclarations(); err != nil {
		return nil, err
	}

	exports, err := t.groupReexports()
	if err != nil {
		return nil, err
	}

	block := &tsdecl.GlobalBlock{Exports: exports, Declarations: t.decls}
	if !t.opts.IgnoreImports {
		imports, err := t.remainingImports()
		if err != nil {
			return nil, err
		}
		block.Imports = imports
	}
	return block, nil
}

// warnSkipped logs the statements the parser did not model. They are not part of
// the block, so anything referring to them is left dangling.
func (t *transform) warnSkipped() {
	logger := t.opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, s := range t.unit.Skipped {
		logger.Warn("statement dropped from global declarations",
			"keyword", s.Keyword,
			"pos", s.Pos.String(),
			"statement", firstLine(s.Text))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// =============================================================================
// Collection
// =============================================================================

func (t *transform) collectImports() {
	for _, imp := range t.unit.Imports {
		for _, s := range imp.Specs {
			t.imports[s.Local()] = binding{name: s.Name, module: imp.Module}
		}
	}
}

func (t *transform) collectExports() error {
	for _, exp := range t.unit.Exports {
		if exp.Star {
			return &TransformError{Pos: exp.Pos, Msg: fmt.Sprintf("export * from %q cannot be re-exported into the global scope", exp.Module)}
		}

		for _, s := range exp.Specs {
			if exp.Module != "" {
				t.addReexport(binding{name: s.Name, module: exp.Module}, s.Exported(), exp.Pos)
				continue
			}

			if t.declared[s.Name] {
				// exported local declarations are already global
				continue
			}
			src, ok := t.imports[s.Name]
			if !ok {
				return &TransformError{Pos: exp.Pos, Name: s.Exported(), Msg: "export has no declaration or import to resolve it from"}
			}
			if err := t.reexportImport(s.Name, src, s.Exported(), exp.Pos); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectDeclarations keeps every declaration except aliases that only rename an
// import; those become re-exports so generic parameters survive.
func (t *transform) collectDeclarations() error {
	for _, d := range t.unit.Declarations {
		if d.Kind == tsdecl.DeclTypeAlias && d.Target != "" {
			if src, ok := t.imports[d.Target]; ok {
				if err := t.reexportImport(d.Target, src, d.Name, d.Pos); err != nil {
					return err
				}
				continue
			}
		}
		t.decls = append(t.decls, d)
	}
	return nil
}

func (t *transform) reexportImport(local string, src binding, alias string, pos tsdecl.Position) error {
	if src.name == "*" {
		return &TransformError{Pos: pos, Name: alias, Msg: fmt.Sprintf("namespace import of %q cannot be re-exported as a type", src.module)}
	}
	t.consumed[local] = true
	t.addReexport(src, alias, pos)
	return nil
}

func (t *transform) addReexport(src binding, alias string, pos tsdecl.Position) {
	t.reexports = append(t.reexports, reexport{binding: src, alias: alias, pos: pos})
}

// =============================================================================
// Output
// =============================================================================

// groupReexports merges re-exports into one export statement per module, in order
// of first appearance. Re-exporting the same source twice under one alias is
// collapsed; an alias bound to two sources or shadowing a declaration fails.
func (t *transform) groupReexports() ([]*tsdecl.Export, error) {
	kept := make(map[string]bool, len(t.decls))
	for _, d := range t.decls {
		kept[d.Name] = true
	}

	seen := make(map[string]binding)
	byModule := make(map[string]*tsdecl.Export)
	var exports []*tsdecl.Export

	for _, r := range t.reexports {
		if kept[r.alias] {
			return nil, &TransformError{Pos: r.pos, Name: r.alias, Msg: "re-export clashes with a declaration of the same name"}
		}
		if prev, ok := seen[r.alias]; ok {
			if prev != r.binding {
				return nil, &TransformError{Pos: r.pos, Name: r.alias,
					Msg: fmt.Sprintf("exported from both %q and %q", prev.module, r.module)}
			}
			continue
		}
		seen[r.alias] = r.binding

		exp, ok := byModule[r.module]
		if !ok {
			exp = &tsdecl.Export{Module: r.module, TypeOnly: true}
			byModule[r.module] = exp
			exports = append(exports, exp)
		}
		exp.Specs = append(exp.Specs, tsdecl.ExportSpec{Name: r.name, Alias: r.alias})
	}
	return exports, nil
}

// remainingImports drops import bindings that were turned into re-exports and are
// not referenced by any kept declaration. Side-effect imports stay.
func (t *transform) remainingImports() ([]*tsdecl.Import, error) {
	if len(t.consumed) == 0 {
		return t.unit.Imports, nil
	}

	referenced, err := t.referencedNames()
	if err != nil {
		return nil, err
	}

	var imports []*tsdecl.Import
	for _, imp := range t.unit.Imports {
		if len(imp.Specs) == 0 {
			imports = append(imports, imp)
			continue
		}

		var specs []tsdecl.ImportSpec
		for _, s := range imp.Specs {
			if t.consumed[s.Local()] && !referenced[s.Local()] {
				continue
			}
			specs = append(specs, s)
		}
		if len(specs) == 0 {
			continue
		}

		pruned := *imp
		pruned.Specs = specs
		imports = append(imports, &pruned)
	}
	return imports, nil
}

// referencedNames collects the identifiers used by the kept declarations.
func (t *transform) referencedNames() (map[string]bool, error) {
	names := make(map[string]bool)
	for _, d := range t.decls {
		tokens, err := tsdecl.NewLexer(d.Body, d.Pos.File).Tokenize()
		if err != nil {
			return nil, err
		}
		for _, tok := range tokens {
			if tok.Type == tsdecl.TokenIdent {
				names[tok.Value] = true
			}
		}
	}
	return names, nil
}
