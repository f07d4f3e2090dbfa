package tsdecl

import (
	"strings"
)

// statementKeywords start a new top-level statement when they follow a line break.
var statementKeywords = map[string]bool{
	"export":    true,
	"import":    true,
	"type":      true,
	"interface": true,
	"declare":   true,
	"const":     true,
	"let":       true,
	"var":       true,
	"function":  true,
	"class":     true,
	"enum":      true,
	"namespace": true,
	"module":    true,
	"abstract":  true,
}

// continuations keep an expression going across a line break after a closing brace.
var continuations = map[string]bool{
	"|": true, "&": true, "[": true, ".": true, "?": true, ":": true,
	",": true, "=>": true, "extends": true, "?.": true,
}

// parser walks the comment-free token stream of one unit.
type parser struct {
	input  string
	file   string
	tokens []Token
	// docs holds the comments directly preceding tokens[i].
	docs map[int][]Token
	pos  int
}

// Parse parses a declaration unit.
func Parse(input, file string) (*Unit, error) {
	raw, err := NewLexer(input, file).Tokenize()
	if err != nil {
		return nil, err
	}

	p := &parser{input: input, file: file, docs: make(map[int][]Token)}
	var pending []Token
	newline := false
	for _, tok := range raw {
		if tok.Type == TokenComment {
			pending = append(pending, tok)
			newline = newline || tok.NewlineBefore
			continue
		}
		tok.NewlineBefore = tok.NewlineBefore || newline
		if len(pending) > 0 {
			p.docs[len(p.tokens)] = pending
		}
		p.tokens = append(p.tokens, tok)
		pending = nil
		newline = false
	}

	return p.parseUnit()
}

func (p *parser) parseUnit() (*Unit, error) {
	u := &Unit{File: p.file}

	for !p.at(TokenEOF) {
		if p.isPunct(";") {
			p.advance()
			continue
		}
		if err := p.parseStatement(u); err != nil {
			return nil, err
		}
	}

	return u, nil
}

func (p *parser) parseStatement(u *Unit) error {
	start := p.pos

	switch {
	case p.isIdent("import") && !p.peekPunct(1, "(") && !p.peekPunct(1, "."):
		return p.parseImport(u)

	case p.isIdent("export"):
		return p.parseExport(u, start)

	case p.isIdent("declare") && p.peekIdent(1, "type", "interface"):
		p.advance()
		return p.parseDeclaration(u, start, false)

	case p.isIdent("type") && p.peekType(1, TokenIdent):
		return p.parseDeclaration(u, start, false)

	case p.isIdent("interface") && p.peekType(1, TokenIdent):
		return p.parseDeclaration(u, start, false)
	}

	return p.skipStatement(u, start)
}

// =============================================================================
// Imports
// =============================================================================

func (p *parser) parseImport(u *Unit) error {
	start := p.pos
	imp := &Import{Pos: p.cur().Pos}
	p.advance() // import

	if p.at(TokenString) {
		imp.Module = p.cur().Value
		p.advance()
		p.skipAttributes()
		u.Imports = append(u.Imports, imp)
		return nil
	}

	// `import type X from`, but not `import type from 'x'` or `import type, {...}`
	if p.isIdent("type") && !p.peekIdent(1, "from") && !p.peekPunct(1, ",") {
		imp.TypeOnly = true
		p.advance()
	}

	// import X = require('...') is CommonJS interop; keep it out of the model.
	if p.at(TokenIdent) && p.peekPunct(1, "=") {
		return p.skipStatement(u, start)
	}

	if p.at(TokenIdent) && !p.isIdent("from") {
		imp.Specs = append(imp.Specs, ImportSpec{Name: "default", Alias: p.cur().Value})
		p.advance()
		if p.isPunct(",") {
			p.advance()
		}
	}

	switch {
	case p.isPunct("*"):
		p.advance()
		if err := p.expectIdent("as"); err != nil {
			return err
		}
		alias, err := p.expectName()
		if err != nil {
			return err
		}
		imp.Specs = append(imp.Specs, ImportSpec{Name: "*", Alias: alias})

	case p.isPunct("{"):
		specs, err := p.parseSpecList()
		if err != nil {
			return err
		}
		for _, s := range specs {
			imp.Specs = append(imp.Specs, ImportSpec{Name: s.Name, Alias: s.Alias, TypeOnly: s.TypeOnly})
		}
	}

	if err := p.expectIdent("from"); err != nil {
		return err
	}
	if !p.at(TokenString) {
		return NewParseErrorf(p.cur().Pos, "expected module specifier, got %q", p.cur().Value)
	}
	imp.Module = p.cur().Value
	p.advance()
	p.skipAttributes()

	u.Imports = append(u.Imports, imp)
	return nil
}

// skipAttributes skips `with { ... }` / `assert { ... }` import attributes.
func (p *parser) skipAttributes() {
	if (p.isIdent("with") || p.isIdent("assert")) && !p.cur().NewlineBefore && p.peekPunct(1, "{") {
		p.advance()
		_ = p.skipBalanced("{", "}")
	}
}

// =============================================================================
// Exports
// =============================================================================

func (p *parser) parseExport(u *Unit, start int) error {
	exp := &Export{Pos: p.cur().Pos}
	p.advance() // export

	switch {
	case p.isIdent("declare") && p.peekIdent(1, "type", "interface"):
		p.advance()
		return p.parseDeclaration(u, start, true)

	case p.isIdent("type") && p.peekType(1, TokenIdent):
		return p.parseDeclaration(u, start, true)

	case p.isIdent("interface"):
		return p.parseDeclaration(u, start, true)

	case p.isIdent("type") && (p.peekPunct(1, "{") || p.peekPunct(1, "*")):
		exp.TypeOnly = true
		p.advance()
	}

	switch {
	case p.isPunct("{"):
		specs, err := p.parseSpecList()
		if err != nil {
			return err
		}
		exp.Specs = specs

	case p.isPunct("*"):
		p.advance()
		exp.Star = true
		if p.isIdent("as") {
			p.advance()
			alias, err := p.expectName()
			if err != nil {
				return err
			}
			exp.StarAlias = alias
		}

	default:
		return p.skipStatement(u, start)
	}

	if p.isIdent("from") {
		p.advance()
		if !p.at(TokenString) {
			return NewParseErrorf(p.cur().Pos, "expected module specifier, got %q", p.cur().Value)
		}
		exp.Module = p.cur().Value
		p.advance()
		p.skipAttributes()
	} else if exp.Star {
		return NewParseError(p.cur().Pos, "expected 'from' after 'export *'")
	}

	u.Exports = append(u.Exports, exp)
	return nil
}

// parseSpecList parses `{ a, type b as c, 'd' as e }`.
func (p *parser) parseSpecList() ([]ExportSpec, error) {
	open := p.cur()
	p.advance() // {

	var specs []ExportSpec
	for !p.isPunct("}") {
		if p.at(TokenEOF) {
			return nil, NewParseError(open.Pos, "unclosed '{' in import or export list")
		}

		var spec ExportSpec
		// `type` is a modifier unless it is the binding name itself
		if p.isIdent("type") && (p.peekType(1, TokenIdent) || p.peekType(1, TokenString)) && !p.peekIdent(1, "as") {
			spec.TypeOnly = true
			p.advance()
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		spec.Name = name
		if p.isIdent("as") {
			p.advance()
			alias, err := p.expectName()
			if err != nil {
				return nil, err
			}
			if alias != name {
				spec.Alias = alias
			}
		}
		specs = append(specs, spec)

		if p.isPunct(",") {
			p.advance()
			continue
		}
		if !p.isPunct("}") {
			return nil, NewParseErrorf(p.cur().Pos, "expected ',' or '}', got %q", p.cur().Value)
		}
	}
	p.advance() // }

	return specs, nil
}

// =============================================================================
// Declarations
// =============================================================================

// parseDeclaration parses a type alias or interface starting at the current keyword.
// start is the index of the statement's first token, used for its doc comment.
func (p *parser) parseDeclaration(u *Unit, start int, exported bool) error {
	kw := p.cur()
	p.advance()

	decl := &Declaration{
		Exported: exported,
		Doc:      p.docFor(start),
		Pos:      p.tokens[start].Pos,
	}

	name, err := p.expectName()
	if err != nil {
		return err
	}
	decl.Name = name

	if p.isPunct("<") {
		if err := p.skipBalanced("<", ">"); err != nil {
			return err
		}
	}

	var end int
	switch kw.Value {
	case "type":
		decl.Kind = DeclTypeAlias
		if !p.isPunct("=") {
			return NewParseErrorf(p.cur().Pos, "expected '=' in type alias %s, got %q", name, p.cur().Value)
		}
		p.advance()
		first := p.pos
		end, err = p.scanStatementEnd()
		if err != nil {
			return err
		}
		if p.pos == first || (p.pos == first+1 && p.tokens[first].Value == ";") {
			return NewParseErrorf(kw.Pos, "type alias %s has no type", name)
		}
		if last := p.lastNonSemi(first); last == first && p.tokens[first].Type == TokenIdent {
			decl.Target = p.tokens[first].Value
		}

	case "interface":
		decl.Kind = DeclInterface
		for !p.isPunct("{") {
			if p.at(TokenEOF) {
				return NewParseErrorf(kw.Pos, "interface %s has no body", name)
			}
			if p.isPunct("<") {
				if err := p.skipBalanced("<", ">"); err != nil {
					return err
				}
				continue
			}
			p.advance()
		}
		if err := p.skipBalanced("{", "}"); err != nil {
			return err
		}
		end = p.tokens[p.pos-1].End
	}

	decl.Body = p.input[kw.Start:end]
	decl.Trailing = p.trailingComment()
	u.Declarations = append(u.Declarations, decl)
	return nil
}

// lastNonSemi returns the index of the last token consumed since first, ignoring
// a terminating semicolon.
func (p *parser) lastNonSemi(first int) int {
	last := p.pos - 1
	if last > first && p.tokens[last].Value == ";" && p.tokens[last].Type == TokenPunct {
		last--
	}
	return last
}

// scanStatementEnd consumes tokens up to the end of the current statement and
// returns the byte offset where the statement text ends (a terminating `;` excluded).
func (p *parser) scanStatementEnd() (int, error) {
	var stack []string
	end := p.cur().Start
	closedBlock := false
	first := true

	for !p.at(TokenEOF) {
		tok := p.cur()

		if len(stack) == 0 {
			if tok.Type == TokenPunct && tok.Value == ";" {
				p.advance()
				return end, nil
			}
			if !first && tok.NewlineBefore {
				if tok.Type == TokenIdent && statementKeywords[tok.Value] {
					return end, nil
				}
				if closedBlock && !continuations[tok.Value] {
					return end, nil
				}
			}
		}
		first = false
		closedBlock = false

		if tok.Type == TokenPunct {
			switch tok.Value {
			case "(", "[", "{", "<":
				stack = append(stack, tok.Value)
			case ">":
				if len(stack) > 0 && stack[len(stack)-1] == "<" {
					stack = stack[:len(stack)-1]
				}
			case ")", "]", "}":
				// a `<` left open here was a comparison, not a type argument list
				for len(stack) > 0 && stack[len(stack)-1] == "<" {
					stack = stack[:len(stack)-1]
				}
				if len(stack) == 0 || stack[len(stack)-1] != openerOf(tok.Value) {
					return 0, NewParseErrorf(tok.Pos, "unexpected %q", tok.Value)
				}
				stack = stack[:len(stack)-1]
				closedBlock = len(stack) == 0 && tok.Value == "}"
			}
		}

		end = tok.End
		p.advance()
	}

	for len(stack) > 0 && stack[len(stack)-1] == "<" {
		stack = stack[:len(stack)-1]
	}
	if len(stack) > 0 {
		return 0, NewParseErrorf(p.cur().Pos, "unclosed %q", stack[len(stack)-1])
	}
	return end, nil
}

func openerOf(closer string) string {
	switch closer {
	case ")":
		return "("
	case "]":
		return "["
	default:
		return "{"
	}
}

// skipStatement records an unmodelled statement and moves past it.
func (p *parser) skipStatement(u *Unit, start int) error {
	p.pos = start
	first := p.cur()
	end, err := p.scanStatementEnd()
	if err != nil {
		return err
	}
	if end < first.Start {
		end = first.End
	}
	u.Skipped = append(u.Skipped, &Statement{
		Keyword: first.Value,
		Text:    p.input[first.Start:end],
		Pos:     first.Pos,
	})
	return nil
}

// trailingComment returns the comment that follows the statement just consumed
// on the same line.
func (p *parser) trailingComment() string {
	comments := p.docs[p.pos]
	if len(comments) == 0 || comments[0].NewlineBefore {
		return ""
	}
	return comments[0].Value
}

// skipBalanced consumes a bracketed region starting at the current open token.
func (p *parser) skipBalanced(open, closeTok string) error {
	startTok := p.cur()
	depth := 0
	for !p.at(TokenEOF) {
		tok := p.cur()
		if tok.Type == TokenPunct {
			switch tok.Value {
			case open:
				depth++
			case closeTok:
				depth--
			}
		}
		p.advance()
		if depth == 0 {
			return nil
		}
	}
	return NewParseErrorf(startTok.Pos, "unclosed %q", open)
}

// docFor returns the comments attached to tokens[i], keeping only the block that
// directly precedes the token without an empty line in between.
func (p *parser) docFor(i int) string {
	comments := p.docs[i]
	if len(comments) == 0 {
		return ""
	}

	line := p.tokens[i].Pos.Line
	keep := len(comments)
	for j := len(comments) - 1; j >= 0; j-- {
		if comments[j].EndLine < line-1 {
			break
		}
		// a trailing comment of the previous statement is not documentation
		if !comments[j].NewlineBefore && (i > 0 || j > 0) {
			break
		}
		keep = j
		line = comments[j].Pos.Line
	}
	if keep == len(comments) {
		return ""
	}

	first, last := comments[keep], comments[len(comments)-1]
	return strings.TrimRight(p.input[first.Start:last.End], " \t")
}

// =============================================================================
// Token helpers
// =============================================================================

func (p *parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *parser) at(t TokenType) bool {
	return p.cur().Type == t
}

func (p *parser) isIdent(value string) bool {
	tok := p.cur()
	return tok.Type == TokenIdent && tok.Value == value
}

func (p *parser) isPunct(value string) bool {
	tok := p.cur()
	return tok.Type == TokenPunct && tok.Value == value
}

func (p *parser) peek(n int) Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *parser) peekType(n int, t TokenType) bool {
	return p.peek(n).Type == t
}

func (p *parser) peekIdent(n int, values ...string) bool {
	tok := p.peek(n)
	if tok.Type != TokenIdent {
		return false
	}
	for _, v := range values {
		if tok.Value == v {
			return true
		}
	}
	return false
}

func (p *parser) peekPunct(n int, value string) bool {
	tok := p.peek(n)
	return tok.Type == TokenPunct && tok.Value == value
}

func (p *parser) expectIdent(value string) error {
	if !p.isIdent(value) {
		return NewParseErrorf(p.cur().Pos, "expected %q, got %q", value, p.cur().Value)
	}
	p.advance()
	return nil
}

// expectName consumes an identifier or string binding name.
func (p *parser) expectName() (string, error) {
	tok := p.cur()
	if tok.Type != TokenIdent && tok.Type != TokenString {
		return "", NewParseErrorf(tok.Pos, "expected name, got %q", tok.Value)
	}
	p.advance()
	return tok.Value, nil
}
