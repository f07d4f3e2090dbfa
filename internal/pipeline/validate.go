package pipeline

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

// Validate checks that source parses as TypeScript. Every syntax error esbuild
// reports becomes a WarnValidation warning; a clean source yields none.
func Validate(source, file string) []core.Warning {
	result := api.Transform(source, api.TransformOptions{
		Loader:     api.LoaderTS,
		Sourcefile: file,
		LogLevel:   api.LogLevelSilent,
	})

	warnings := make([]core.Warning, 0, len(result.Errors))
	for _, msg := range result.Errors {
		text := msg.Text
		if msg.Location != nil {
			text = fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
		}
		warnings = append(warnings, core.Warning{Kind: core.WarnValidation, Message: text})
	}
	return warnings
}
