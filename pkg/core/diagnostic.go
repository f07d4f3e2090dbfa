package core

import (
	"fmt"
	"sync"
)

// =============================================================================
// WarningKind
// =============================================================================

// WarningKind classifies a non-fatal generation problem.
type WarningKind int

// Warning kinds.
const (
	// WarnFetch is a failed request that was degraded locally (one datasource's entries).
	WarnFetch WarningKind = iota
	// WarnUnknownField is a field whose type tag is not recognised; it maps to unknown.
	WarnUnknownField
	// WarnEmptyDatasource is an option field whose datasource has no entries.
	WarnEmptyDatasource
	// WarnEmptyRestriction is a restricted blocks field that resolved to no components.
	WarnEmptyRestriction
	// WarnUnknownWhitelist is a whitelisted component name absent from the registry.
	WarnUnknownWhitelist
	// WarnDegraded marks a run that wrote the stub declarations.
	WarnDegraded
	// WarnValidation is a syntax problem reported by the declaration check.
	WarnValidation
)

// String returns the string representation of the kind.
func (k WarningKind) String() string {
	switch k {
	case WarnFetch:
		return "fetch"
	case WarnUnknownField:
		return "unknown_field"
	case WarnEmptyDatasource:
		return "empty_datasource"
	case WarnEmptyRestriction:
		return "empty_restriction"
	case WarnUnknownWhitelist:
		return "unknown_whitelist"
	case WarnDegraded:
		return "degraded"
	case WarnValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// =============================================================================
// Warning
// =============================================================================

// Warning is a schema mapping or fetch problem that did not stop generation.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Component string      `json:"component,omitempty"`
	Field     string      `json:"field,omitempty"`
	Message   string      `json:"message"`
}

func (w Warning) String() string {
	switch {
	case w.Component != "" && w.Field != "":
		return fmt.Sprintf("%s.%s: %s", w.Component, w.Field, w.Message)
	case w.Component != "":
		return fmt.Sprintf("%s: %s", w.Component, w.Message)
	default:
		return w.Message
	}
}

// =============================================================================
// Diagnostics
// =============================================================================

// Diagnostics collects warnings for one generation run.
// It is safe for concurrent use; warnings keep insertion order.
type Diagnostics struct {
	mu       sync.Mutex
	warnings []Warning
}

// Add records a warning.
func (d *Diagnostics) Add(w Warning) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.warnings = append(d.warnings, w)
}

// Addf records a warning with a formatted message.
func (d *Diagnostics) Addf(kind WarningKind, component, field, format string, args ...any) {
	d.Add(Warning{Kind: kind, Component: component, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Warnings returns a copy of the recorded warnings.
func (d *Diagnostics) Warnings() []Warning {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Warning(nil), d.warnings...)
}

// Len returns the number of recorded warnings.
func (d *Diagnostics) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.warnings)
}
