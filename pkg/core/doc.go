// Package core defines the shared language of the sbtypegen system.
//
// This package contains:
//   - Schema registry entities (Component, ComponentGroup, FieldSchema, Datasource)
//   - The Registry snapshot consumed by the type compiler
//   - Generation diagnostics (Warning, Diagnostics) and the error taxonomy
//   - History types shared by the state store and the pipeline
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
