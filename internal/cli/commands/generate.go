package commands

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sbtypegen/internal/cli/output"
	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	DryRun bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate TypeScript declarations from the Storyblok schema",
		Long: `Fetch the component schema of a Storyblok space and write global TypeScript
declarations for every component, plus the base declarations.

When the schema cannot be fetched (no management token, network or API error),
a stub content file is written instead so type checking keeps working.`,
		Example: `  # Generate into the configured out_dir
  sbtypegen generate

  # Print the declarations without writing them
  sbtypegen generate --dry-run

  # Write only the base declarations and the stub content file
  sbtypegen generate --no-fetch`,
		Aliases: []string{"gen"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the declarations instead of writing them")
	cmd.Flags().Bool("no-fetch", false, "Skip the schema fetch and write stub content types")
	cmd.Flags().String("type-prefix", "", "Prefix of generated component type names")
	cmd.Flags().String("module-file", "", "Also write the module-scoped content declarations to this file")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var p *pipeline.Pipeline
	if opts.DryRun {
		pc := cc.Cfg.PipelineConfig()
		pc.Logger = cc.Logger
		pc.DryRun = true
		p = pipeline.New(pc)
	} else {
		history, err := cc.OpenHistory()
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		if history != nil {
			defer func() { _ = history.Close() }()
		}
		p = cc.NewPipeline(history)
	}

	res, err := p.Run(cmd.Context())
	if res != nil {
		if rerr := renderResult(cc.Renderer, res, opts.DryRun); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if res.State == core.RunStateFailed {
		return fmt.Errorf("generation failed: %s", strings.Join(res.UnitErrors, "; "))
	}
	return nil
}

// renderResult prints a run result in the renderer's mode.
func renderResult(r *output.Renderer, res *pipeline.Result, dryRun bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	if dryRun {
		paths := make([]string, 0, len(res.Outputs))
		for path := range res.Outputs {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			r.Println("// " + filepath.Base(path))
			r.Printf("%s\n", res.Outputs[path])
		}
		return nil
	}

	styles := r.Styles()
	r.Header(2, "Generated declarations")
	for _, f := range res.Files {
		detail := "unchanged"
		if f.Changed {
			detail = fmt.Sprintf("written, %d bytes", f.Bytes)
		}
		r.StatusLine(f.Path, "success", detail)
	}
	for _, msg := range res.UnitErrors {
		r.StatusLine(msg, "error", "")
	}
	for _, w := range res.Warnings {
		r.Warning(formatWarning(w))
	}

	r.Println("")
	summary := fmt.Sprintf("%s: %d components, %d warnings in %s",
		res.State, res.Components, len(res.Warnings), res.Duration.Round(time.Millisecond))
	switch res.State {
	case core.RunStateDone:
		r.Success(summary)
	case core.RunStateDegraded:
		r.Warning(summary)
	default:
		r.Error(summary)
	}
	if res.Unchanged {
		r.Println(styles.Muted.Render("Content is unchanged since the previous run."))
	}
	return nil
}

func formatWarning(w core.Warning) string {
	var where []string
	if w.Component != "" {
		where = append(where, w.Component)
	}
	if w.Field != "" {
		where = append(where, w.Field)
	}
	if len(where) == 0 {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, strings.Join(where, "."), w.Message)
}
