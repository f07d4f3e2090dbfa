// Package tsdecl reads and writes TypeScript declaration units.
//
// A unit is the subset of a .d.ts file the type compiler cares about: import
// statements, export lists, and type alias or interface declarations. Parsing is
// structural, not semantic: declarations keep their source text verbatim and only
// their names, export markers and boundaries are understood. Everything else is
// recorded as a skipped statement.
//
// All text produced by the compiler goes through the printer in this package.
package tsdecl

import "fmt"

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// String formats the position as file:line:col, omitting an empty file.
func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Unit is a parsed or generated declaration unit.
type Unit struct {
	File         string
	Imports      []*Import
	Exports      []*Export
	Declarations []*Declaration
	Skipped      []*Statement
}

// ImportSpec is one binding of an import statement.
// Name is "default" for a default import and "*" for a namespace import.
type ImportSpec struct {
	Name     string
	Alias    string
	TypeOnly bool
}

// Local returns the binding name visible in the importing unit.
func (s ImportSpec) Local() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// Import is an import statement.
type Import struct {
	Module   string
	TypeOnly bool
	Specs    []ImportSpec
	Pos      Position
}

// ExportSpec is one entry of an export list: Name is exported as Alias.
type ExportSpec struct {
	Name     string
	Alias    string
	TypeOnly bool
}

// Exported returns the name the binding is exported under.
func (s ExportSpec) Exported() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// Export is an export list statement, optionally re-exporting from Module.
// Star is set for `export * from` statements; StarAlias for `export * as ns from`.
type Export struct {
	Module    string
	TypeOnly  bool
	Specs     []ExportSpec
	Star      bool
	StarAlias string
	Pos       Position
}

// DeclKind identifies the kind of a declaration.
type DeclKind int

// Declaration kinds.
const (
	DeclTypeAlias DeclKind = iota
	DeclInterface
)

func (k DeclKind) String() string {
	switch k {
	case DeclTypeAlias:
		return "type"
	case DeclInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Declaration is a type alias or interface.
// Body holds the source from the `type`/`interface` keyword through the end of the
// declaration, without export or declare modifiers and without a trailing semicolon.
type Declaration struct {
	Kind     DeclKind
	Name     string
	Exported bool
	Doc      string
	Body     string
	Pos      Position
	// Trailing is a comment that follows the declaration on its last line.
	Trailing string

	// Target is set for a type alias whose right-hand side is a bare identifier.
	Target string
}

// Statement is a top-level statement the parser does not model.
type Statement struct {
	Keyword string
	Text    string
	Pos     Position
}

// Declaration returns the declaration with the given name.
func (u *Unit) Declaration(name string) (*Declaration, bool) {
	for _, d := range u.Declarations {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
