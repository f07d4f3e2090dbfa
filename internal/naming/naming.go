// Package naming derives generated type identifiers from component names.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultPrefix is prepended to every generated component type name.
const DefaultPrefix = "SbComponent"

// Resolver maps component names to type names.
// The mapping is pure: the same name always yields the same type name.
type Resolver struct {
	prefix string
}

// NewResolver creates a resolver. An empty prefix selects DefaultPrefix.
func NewResolver(prefix string) *Resolver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Resolver{prefix: prefix}
}

// Prefix returns the configured type name prefix.
func (r *Resolver) Prefix() string {
	return r.prefix
}

// TypeName returns the generated type name for a component:
// "project_artwork" becomes "SbComponentProjectArtwork".
func (r *Resolver) TypeName(componentName string) string {
	return r.prefix + PascalCase(componentName)
}

// PascalCase lowercases s, splits it on every character that is not a letter or a
// digit, title-cases each segment and concatenates the segments.
func PascalCase(s string) string {
	segments := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	// Casers keep state; one per call keeps the resolver safe for concurrent use.
	caser := cases.Title(language.English, cases.NoLower)

	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(caser.String(seg))
	}
	return b.String()
}
