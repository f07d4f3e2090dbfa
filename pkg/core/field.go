package core

import "strings"

// =============================================================================
// FieldKind
// =============================================================================

// FieldKind discriminates the FieldSchema tagged union.
type FieldKind int

// Field kinds recognised in component schemas.
const (
	FieldUnknown FieldKind = iota
	FieldText
	FieldTextarea
	FieldNumber
	FieldBoolean
	FieldDateTime
	FieldMarkdown
	FieldRichText
	FieldAsset
	FieldMultiAsset
	FieldMultiLink
	FieldTable
	FieldOption
	FieldOptions
	FieldBlocks
	// FieldSection is an organisational marker in the schema editor. It carries no data.
	FieldSection
)

var fieldKindNames = map[FieldKind]string{
	FieldUnknown:    "unknown",
	FieldText:       "text",
	FieldTextarea:   "textarea",
	FieldNumber:     "number",
	FieldBoolean:    "boolean",
	FieldDateTime:   "datetime",
	FieldMarkdown:   "markdown",
	FieldRichText:   "richtext",
	FieldAsset:      "asset",
	FieldMultiAsset: "multiasset",
	FieldMultiLink:  "multilink",
	FieldTable:      "table",
	FieldOption:     "option",
	FieldOptions:    "options",
	FieldBlocks:     "bloks",
	FieldSection:    "section",
}

// String returns the wire tag of the kind.
func (k FieldKind) String() string {
	if s, ok := fieldKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseFieldKind maps a schema "type" tag to a FieldKind.
// Unrecognised tags map to FieldUnknown so newer schemas still decode.
func ParseFieldKind(tag string) FieldKind {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "blocks" {
		return FieldBlocks
	}
	for k, s := range fieldKindNames {
		if s == tag && k != FieldUnknown {
			return k
		}
	}
	return FieldUnknown
}

// =============================================================================
// FieldSchema
// =============================================================================

// OptionValue is one inline choice of an option/options field.
type OptionValue struct {
	Name  string
	Value string
}

// FieldSchema describes one field of a component.
// Only the members relevant to Kind are populated.
type FieldSchema struct {
	Name string
	Kind FieldKind
	// RawType is the type tag as received, kept for FieldUnknown diagnostics.
	RawType     string
	Pos         int
	Required    bool
	DisplayName string

	// Option and Options
	DatasourceSlug string
	Options        []OptionValue

	// Blocks
	Restriction Restriction
}

// =============================================================================
// Restriction
// =============================================================================

// RestrictionMode selects which components may populate a blocks field.
type RestrictionMode int

// Restriction modes.
const (
	RestrictNone RestrictionMode = iota
	RestrictWhitelist
	RestrictGroup
	RestrictTag
)

// String returns a human-readable name for the mode.
func (m RestrictionMode) String() string {
	switch m {
	case RestrictNone:
		return "unrestricted"
	case RestrictWhitelist:
		return "whitelist"
	case RestrictGroup:
		return "group"
	case RestrictTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Restriction is the restriction policy of a blocks field.
type Restriction struct {
	Mode       RestrictionMode
	Components []string // RestrictWhitelist, in declared order
	Groups     []string // RestrictGroup, group UUIDs
	Tags       []int    // RestrictTag
}
