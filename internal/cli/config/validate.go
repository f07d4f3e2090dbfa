package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/leapstack-labs/sbtypegen/internal/storyblok"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// OutputModes lists the accepted values of the output key.
var OutputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var problems []string

	if !storyblok.Region(c.Storyblok.Region).Valid() {
		problems = append(problems, fmt.Sprintf("storyblok.region %q is not one of eu, us, ca, ap, cn", c.Storyblok.Region))
	}
	if c.TypePrefix == "" {
		problems = append(problems, "type_prefix is required")
	} else if !identifierPattern.MatchString(c.TypePrefix) {
		problems = append(problems, fmt.Sprintf("type_prefix %q is not a valid TypeScript identifier", c.TypePrefix))
	}
	if !identifierPattern.MatchString(c.ComponentTag) {
		problems = append(problems, fmt.Sprintf("component_tag %q is not a valid TypeScript identifier", c.ComponentTag))
	}
	if c.OutDir == "" {
		problems = append(problems, "out_dir is required")
	}
	if c.BaseFile == c.ContentFile {
		problems = append(problems, "base_file and content_file must differ")
	}
	if c.OutputFormat != "" && !slices.Contains(OutputModes, c.OutputFormat) {
		problems = append(problems, fmt.Sprintf("output %q is not one of %s", c.OutputFormat, strings.Join(OutputModes, ", ")))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s\nHint: check %s or the SBTYPEGEN_* environment", strings.Join(problems, "\n  - "), ConfigFileName)
	}
	return nil
}

// HasManagementToken reports whether a schema fetch can be attempted.
func (c *Config) HasManagementToken() bool {
	return c.Storyblok.OAuthToken != ""
}
