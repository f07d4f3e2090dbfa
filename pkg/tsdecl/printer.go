package tsdecl

import (
	"strings"
)

// Output conventions: two-space indentation, single quotes, no semicolons, LF line
// endings and a trailing newline.
const indentUnit = "  "

// GlobalBlock is an ambient `declare global` block and the module-scope imports
// emitted above it. Header lines are printed as line comments at the top.
type GlobalBlock struct {
	Header       []string
	Imports      []*Import
	Exports      []*Export
	Declarations []*Declaration
}

// Names returns the type names the block declares in the global scope: its
// declarations and the aliases of its re-exports. Names behind `export *` are
// unknown and not included.
func (g *GlobalBlock) Names() []string {
	var names []string
	for _, exp := range g.Exports {
		if exp.StarAlias != "" {
			names = append(names, exp.StarAlias)
		}
		for _, s := range exp.Specs {
			names = append(names, s.Exported())
		}
	}
	for _, d := range g.Declarations {
		names = append(names, d.Name)
	}
	return names
}

// PrintUnit renders a unit at module scope. Skipped statements are not printed.
func PrintUnit(u *Unit) string {
	var b strings.Builder

	for _, imp := range u.Imports {
		writeImport(&b, imp)
		b.WriteByte('\n')
	}
	for _, exp := range u.Exports {
		writeExport(&b, exp, "", false)
		b.WriteByte('\n')
	}

	for i, d := range u.Declarations {
		if i > 0 || b.Len() > 0 {
			b.WriteByte('\n')
		}
		writeDeclaration(&b, d, "", d.Exported)
		b.WriteByte('\n')
	}

	return b.String()
}

// PrintGlobal renders an ambient global block. A block without imports gets an
// empty export so the file stays a module, which `declare global` requires.
func PrintGlobal(g *GlobalBlock) string {
	var b strings.Builder

	for _, line := range g.Header {
		b.WriteString(strings.TrimRight("// "+line, " ") + "\n")
	}
	for _, imp := range g.Imports {
		writeImport(&b, imp)
		b.WriteByte('\n')
	}
	if len(g.Imports) == 0 {
		b.WriteString("export {}\n")
	}
	b.WriteByte('\n')

	var items []string
	for _, exp := range g.Exports {
		var ib strings.Builder
		writeExport(&ib, exp, indentUnit, true)
		items = append(items, ib.String())
	}
	for _, d := range g.Declarations {
		var ib strings.Builder
		writeDeclaration(&ib, d, indentUnit, false)
		items = append(items, ib.String())
	}

	if len(items) == 0 {
		b.WriteString("declare global {}\n")
		return b.String()
	}

	b.WriteString("declare global {\n")
	b.WriteString(strings.Join(items, "\n\n"))
	b.WriteString("\n}\n")
	return b.String()
}

// FormatType renders a type expression on the current indentation level.
func FormatType(t TypeExpr) string {
	var b strings.Builder
	writeType(&b, t, "")
	return b.String()
}

// QuoteString renders s as a single-quoted string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// formatAliasType renders the right-hand side of a type alias, including the
// separator after `=`.
func formatAliasType(t TypeExpr) string {
	u, ok := t.(*Union)
	if !ok || !u.Multiline || len(u.Members) < 2 {
		return " " + FormatType(t)
	}

	var b strings.Builder
	for _, m := range u.Members {
		b.WriteString("\n" + indentUnit + "| ")
		writeType(&b, m, indentUnit)
	}
	return b.String()
}

func writeType(b *strings.Builder, t TypeExpr, indent string) {
	switch t := t.(type) {
	case Keyword:
		b.WriteString(string(t))

	case *Ref:
		b.WriteString(t.Name)
		if len(t.Args) > 0 {
			b.WriteByte('<')
			for i, arg := range t.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				writeType(b, arg, indent)
			}
			b.WriteByte('>')
		}

	case *Literal:
		b.WriteString(QuoteString(t.Value))

	case *Union:
		switch {
		case len(t.Members) == 0:
			b.WriteString(string(Never))
		case len(t.Members) == 1:
			writeType(b, t.Members[0], indent)
		case t.Multiline:
			for _, m := range t.Members {
				b.WriteString("\n" + indent + indentUnit + "| ")
				writeType(b, m, indent+indentUnit)
			}
		default:
			for i, m := range t.Members {
				if i > 0 {
					b.WriteString(" | ")
				}
				writeType(b, m, indent)
			}
		}

	case *Array:
		if u, ok := t.Elem.(*Union); ok && len(u.Members) > 1 {
			b.WriteByte('(')
			writeType(b, &Union{Members: u.Members}, indent)
			b.WriteByte(')')
		} else {
			writeType(b, t.Elem, indent)
		}
		b.WriteString("[]")

	case *Object:
		if len(t.Props) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for _, p := range t.Props {
			b.WriteString(indent + indentUnit)
			b.WriteString(PropertyName(p.Name))
			if p.Optional {
				b.WriteByte('?')
			}
			b.WriteString(": ")
			writeType(b, p.Type, indent+indentUnit)
			b.WriteByte('\n')
		}
		b.WriteString(indent + "}")

	default:
		b.WriteString(string(Unknown))
	}
}

// PropertyName renders an object property key, quoting it when it is not an identifier.
func PropertyName(name string) string {
	if IsIdentifier(name) {
		return name
	}
	return QuoteString(name)
}

func writeImport(b *strings.Builder, imp *Import) {
	b.WriteString("import ")
	if len(imp.Specs) == 0 {
		b.WriteString(QuoteString(imp.Module))
		return
	}
	if imp.TypeOnly {
		b.WriteString("type ")
	}

	var parts []string
	var named []string
	for _, s := range imp.Specs {
		switch s.Name {
		case "default":
			parts = append(parts, s.Alias)
		case "*":
			parts = append(parts, "* as "+s.Alias)
		default:
			named = append(named, specText(s.Name, s.Alias, s.TypeOnly))
		}
	}
	if len(named) > 0 {
		parts = append(parts, "{ "+strings.Join(named, ", ")+" }")
	}

	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(" from ")
	b.WriteString(QuoteString(imp.Module))
}

func writeExport(b *strings.Builder, exp *Export, indent string, multiline bool) {
	b.WriteString(indent + "export ")
	if exp.TypeOnly {
		b.WriteString("type ")
	}

	switch {
	case exp.Star:
		b.WriteString("*")
		if exp.StarAlias != "" {
			b.WriteString(" as " + exp.StarAlias)
		}
	case len(exp.Specs) == 0:
		b.WriteString("{}")
	case multiline:
		b.WriteString("{\n")
		for _, s := range exp.Specs {
			b.WriteString(indent + indentUnit + specText(s.Name, s.Alias, s.TypeOnly) + ",\n")
		}
		b.WriteString(indent + "}")
	default:
		names := make([]string, 0, len(exp.Specs))
		for _, s := range exp.Specs {
			names = append(names, specText(s.Name, s.Alias, s.TypeOnly))
		}
		b.WriteString("{ " + strings.Join(names, ", ") + " }")
	}

	if exp.Module != "" {
		b.WriteString(" from " + QuoteString(exp.Module))
	}
}

func specText(name, alias string, typeOnly bool) string {
	s := name
	if !IsIdentifier(name) {
		s = QuoteString(name)
	}
	if typeOnly {
		s = "type " + s
	}
	if alias != "" && alias != name {
		s += " as " + alias
	}
	return s
}

// writeDeclaration writes a declaration's doc comment, body and trailing comment,
// indenting every non-empty line.
func writeDeclaration(b *strings.Builder, d *Declaration, indent string, exported bool) {
	var text strings.Builder
	if d.Doc != "" {
		text.WriteString(d.Doc)
		text.WriteByte('\n')
	}
	if exported {
		text.WriteString("export ")
	}
	text.WriteString(d.Body)
	if d.Trailing != "" {
		text.WriteString(" " + d.Trailing)
	}

	lines := strings.Split(strings.ReplaceAll(text.String(), "\r\n", "\n"), "\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		line = strings.TrimRight(line, " \t")
		if line != "" {
			b.WriteString(indent + line)
		}
	}
}
