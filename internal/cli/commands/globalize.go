package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sbtypegen/internal/globalize"
)

// GlobalizeOptions holds options for the globalize command.
type GlobalizeOptions struct {
	IgnoreImports bool
	Out           string
}

// NewGlobalizeCommand creates the globalize command.
func NewGlobalizeCommand() *cobra.Command {
	opts := &GlobalizeOptions{}

	cmd := &cobra.Command{
		Use:   "globalize <file>",
		Short: "Rewrite a declaration file into global declarations",
		Long: `Rewrite a module-scoped TypeScript declaration file into a 'declare global'
block. Exported declarations become global, imported names that are re-exported
become grouped type-only re-exports, and remaining imports are kept.`,
		Example: `  # Print the global form of a declaration file
  sbtypegen globalize types/base.d.ts

  # Drop the imports and write the result to a file
  sbtypegen globalize types/content.d.ts --ignore-imports --out types/global.d.ts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlobalize(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.IgnoreImports, "ignore-imports", false, "Drop import statements from the output")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Write to this file instead of stdout")

	return cmd
}

func runGlobalize(cmd *cobra.Command, path string, opts *GlobalizeOptions) error {
	src, err := os.ReadFile(path) //nolint:gosec // path is a user-supplied input file
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	out, err := globalize.TransformSource(string(src), path, globalize.Options{
		IgnoreImports: opts.IgnoreImports,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if opts.Out == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(opts.Out, []byte(out), 0o644); err != nil { //nolint:gosec // declaration files are meant to be read by other tools
		return fmt.Errorf("failed to write %s: %w", opts.Out, err)
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", opts.Out)
	return nil
}
