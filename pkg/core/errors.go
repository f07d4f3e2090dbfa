package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredentials is returned when no management token is configured.
var ErrMissingCredentials = errors.New("storyblok management token is not configured")

// FetchError is a network or authorization failure reaching the schema registry.
type FetchError struct {
	Op         string // "components", "datasources", "datasource_entries", "space"
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NameCollisionError reports two declarations resolving to the same type name.
// Emitting would silently shadow one of them, so generation stops.
type NameCollisionError struct {
	Name    string
	Sources []string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("type name %q is produced by more than one source: %s", e.Name, strings.Join(e.Sources, ", "))
}
