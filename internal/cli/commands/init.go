package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sbtypegen/internal/cli/config"
	"github.com/leapstack-labs/sbtypegen/internal/cli/output"
	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
)

// starterBaseFile is the base declaration file written by init.
const starterBaseFile = "storyblok.components.base.d.ts"

// starterConfig is the sbtypegen.yaml written by init.
type starterConfig struct {
	Storyblok struct {
		OAuthToken  string `yaml:"oauth_token"`
		AccessToken string `yaml:"access_token"`
		SpaceID     string `yaml:"space_id"`
		Region      string `yaml:"region"`
	} `yaml:"storyblok"`
	BaseTypes   string `yaml:"base_types"`
	OutDir      string `yaml:"out_dir"`
	HistoryPath string `yaml:"history_path"`
	FetchTypes  bool   `yaml:"fetch_types"`
	Validate    bool   `yaml:"validate"`
	Webhook     struct {
		Secret       string `yaml:"secret"`
		BuildHookURL string `yaml:"build_hook_url"`
	} `yaml:"webhook"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize sbtypegen in a project",
		Long: `Initialize sbtypegen with a starter configuration.

This creates:
  - sbtypegen.yaml configuration file
  - storyblok.components.base.d.ts hand-authored base declarations
  - .env.example listing the Storyblok tokens
  - .gitignore entries for the history database and .env`,
		Example: `  # Initialize in current directory
  sbtypegen init

  # Initialize in another directory
  sbtypegen init frontend

  # Force overwrite existing config
  sbtypegen init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			// Config may be absent or invalid before init, so none is loaded.
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	data, err := renderStarterConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(config.ConfigFileName, "success", "")

	basePath := filepath.Join(dir, starterBaseFile)
	if _, err := os.Stat(basePath); err == nil && !force {
		r.StatusLine(starterBaseFile, "skipped", "exists")
	} else {
		if err := os.WriteFile(basePath, []byte(pipeline.DefaultBaseTypes), 0o644); err != nil { //nolint:gosec // declaration files are meant to be read by other tools
			return fmt.Errorf("failed to write %s: %w", basePath, err)
		}
		r.StatusLine(starterBaseFile, "success", "")
	}

	files, err := scaffold("minimal", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	for _, f := range files {
		if f.Written {
			r.StatusLine(f.Path, "success", "")
		} else {
			r.StatusLine(f.Path, "skipped", "exists")
		}
	}

	r.Println("")
	r.Success("sbtypegen initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Put your Storyblok tokens into .env (see .env.example)")
	r.Println("  2. Set storyblok.space_id in sbtypegen.yaml, or rely on the access token lookup")
	r.Println("  3. Run 'sbtypegen generate' to write the declarations")
	r.Println("  4. Add the out_dir to the include list of your tsconfig.json")

	return nil
}

// renderStarterConfig encodes the starter configuration with a header comment.
func renderStarterConfig() ([]byte, error) {
	var cfg starterConfig
	cfg.Storyblok.OAuthToken = "${STORYBLOK_OAUTH_TOKEN}"
	cfg.Storyblok.AccessToken = "${STORYBLOK_ACCESS_TOKEN}"
	cfg.Storyblok.Region = config.DefaultRegion
	cfg.BaseTypes = starterBaseFile
	cfg.OutDir = config.DefaultOutDir
	cfg.HistoryPath = config.DefaultHistoryFile
	cfg.FetchTypes = true
	cfg.Validate = true
	cfg.Webhook.Secret = "${SBTYPEGEN_WEBHOOK_SECRET}"

	var node yaml.Node
	if err := node.Encode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	node.HeadComment = "sbtypegen configuration.\n" +
		"${VAR} references are expanded from the environment and .env;\n" +
		"SBTYPEGEN_* variables override any key (use __ for nesting)."

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
