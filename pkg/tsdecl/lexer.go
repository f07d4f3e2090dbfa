package tsdecl

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for declaration unit tokens.
const (
	TokenEOF      TokenType = iota // End of input
	TokenIdent                     // Identifier or keyword
	TokenString                    // '...' or "..."
	TokenTemplate                  // `...`
	TokenNumber                    // Numeric literal
	TokenPunct                     // Operator or punctuation
	TokenComment                   // Line or block comment
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "IDENT"
	case TokenString:
		return "STRING"
	case TokenTemplate:
		return "TEMPLATE"
	case TokenNumber:
		return "NUMBER"
	case TokenPunct:
		return "PUNCT"
	case TokenComment:
		return "COMMENT"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
// Value is the unquoted content for strings and the raw text otherwise.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
	// Start and End are byte offsets of the raw token text in the input.
	Start int
	End   int
	// EndLine is the line of the last character of the token.
	EndLine int
	// NewlineBefore is set when a line break separates the token from the previous one.
	NewlineBefore bool
}

// Lexer tokenizes a declaration unit.
type Lexer struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
	newline  bool
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input, file string) *Lexer {
	return &Lexer{
		input: input,
		file:  file,
		pos:   0,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the input into a slice of tokens, comments included.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token

	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}

	return tokens, nil
}

// multiPunct lists punctuation sequences lexed as a single token, longest first.
var multiPunct = []string{"...", "=>", "?."}

// nextToken returns the next token from the input.
func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()

	l.markStart()
	start := l.pos
	newline := l.newline
	l.newline = false

	if l.pos >= len(l.input) {
		return l.token(TokenEOF, "", start, newline), nil
	}

	r := l.peek()
	switch {
	case l.matchString("//"):
		for l.pos < len(l.input) && l.peek() != '\n' {
			l.advance()
		}
		return l.token(TokenComment, l.input[start:l.pos], start, newline), nil

	case l.matchString("/*"):
		end := strings.Index(l.input[l.pos+2:], "*/")
		if end < 0 {
			return Token{}, NewLexError(l.startPosition(), "unclosed block comment")
		}
		l.advanceTo(l.pos + 2 + end + 2)
		return l.token(TokenComment, l.input[start:l.pos], start, newline), nil

	case r == '\'' || r == '"':
		return l.scanString(r, start, newline)

	case r == '`':
		return l.scanTemplate(start, newline)

	case isIdentStart(r):
		for l.pos < len(l.input) && isIdentPart(l.peek()) {
			l.advance()
		}
		return l.token(TokenIdent, l.input[start:l.pos], start, newline), nil

	case r >= '0' && r <= '9':
		for l.pos < len(l.input) {
			c := l.peek()
			if !isIdentPart(c) && c != '.' {
				break
			}
			l.advance()
		}
		return l.token(TokenNumber, l.input[start:l.pos], start, newline), nil
	}

	for _, p := range multiPunct {
		if l.matchString(p) {
			l.advanceTo(l.pos + len(p))
			return l.token(TokenPunct, p, start, newline), nil
		}
	}

	l.advance()
	return l.token(TokenPunct, l.input[start:l.pos], start, newline), nil
}

// scanString scans a single- or double-quoted string literal.
func (l *Lexer) scanString(quote rune, start int, newline bool) (Token, error) {
	l.advance() // opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		r := l.peek()
		switch r {
		case quote:
			l.advance()
			tok := l.token(TokenString, sb.String(), start, newline)
			return tok, nil
		case '\n':
			return Token{}, NewLexError(l.startPosition(), "unterminated string literal")
		case '\\':
			l.advance()
			if l.pos >= len(l.input) {
				break
			}
			esc := l.peek()
			l.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '\n':
				// line continuation
			default:
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(r)
			l.advance()
		}
	}

	return Token{}, NewLexError(l.startPosition(), "unterminated string literal")
}

// scanTemplate scans a template literal, keeping its raw text as the value.
func (l *Lexer) scanTemplate(start int, newline bool) (Token, error) {
	l.advance() // opening backtick

	for l.pos < len(l.input) {
		switch l.peek() {
		case '`':
			l.advance()
			return l.token(TokenTemplate, l.input[start:l.pos], start, newline), nil
		case '\\':
			l.advance()
			l.advance()
		default:
			l.advance()
		}
	}

	return Token{}, NewLexError(l.startPosition(), "unterminated template literal")
}

// Helper methods

func (l *Lexer) token(typ TokenType, value string, start int, newline bool) Token {
	return Token{
		Type:          typ,
		Value:         value,
		Pos:           l.startPosition(),
		Start:         start,
		End:           l.pos,
		EndLine:       l.line,
		NewlineBefore: newline,
	}
}

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// advanceTo advances rune by rune until offset is reached.
func (l *Lexer) advanceTo(offset int) {
	for l.pos < offset && l.pos < len(l.input) {
		l.advance()
	}
}

// matchString checks if the input at current position matches s.
func (l *Lexer) matchString(s string) bool {
	return strings.HasPrefix(l.input[l.pos:], s)
}

// skipWhitespace skips whitespace, remembering whether a line break was crossed.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r := l.peek()
		if r == '\n' {
			l.newline = true
		} else if !unicode.IsSpace(r) && r != '\uFEFF' {
			break
		}
		l.advance()
	}
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
}

// startPosition returns the position where the current token started.
func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// IsIdentifier reports whether s can be used as a bare property name or type name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}
