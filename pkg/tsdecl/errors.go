package tsdecl

import "fmt"

// Error is a syntax problem located in a declaration unit.
type Error interface {
	error
	Position() Position
}

// syntaxError is shared by lexer and parser errors.
type syntaxError struct {
	pos Position
	msg string
}

func (e *syntaxError) Position() Position { return e.pos }

func (e *syntaxError) Error() string { return e.pos.String() + ": " + e.msg }

// LexError is an invalid token: an unterminated string, template or comment.
type LexError struct{ syntaxError }

// NewLexError returns a LexError at pos.
func NewLexError(pos Position, msg string) *LexError {
	return &LexError{syntaxError{pos: pos, msg: msg}}
}

// ParseError is a statement the parser could not delimit.
type ParseError struct{ syntaxError }

// NewParseError returns a ParseError at pos.
func NewParseError(pos Position, msg string) *ParseError {
	return &ParseError{syntaxError{pos: pos, msg: msg}}
}

// NewParseErrorf returns a ParseError at pos with a formatted message.
func NewParseErrorf(pos Position, format string, args ...any) *ParseError {
	return NewParseError(pos, fmt.Sprintf(format, args...))
}
