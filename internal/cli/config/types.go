// Package config provides configuration management for the sbtypegen CLI.
//
// Values are layered from defaults, an sbtypegen.yaml file, SBTYPEGEN_*
// environment variables and explicitly set command-line flags, in increasing
// order of precedence.
package config

import (
	"path/filepath"

	"github.com/leapstack-labs/sbtypegen/internal/emitter"
	"github.com/leapstack-labs/sbtypegen/internal/naming"
	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
	"github.com/leapstack-labs/sbtypegen/internal/storyblok"
	"github.com/leapstack-labs/sbtypegen/internal/webhook"
)

// Config holds all CLI configuration options.
type Config struct {
	Storyblok StoryblokConfig `koanf:"storyblok"`

	TypePrefix   string `koanf:"type_prefix"`
	ComponentTag string `koanf:"component_tag"`
	BaseModule   string `koanf:"base_module"`
	// BaseTypes is the path of hand-authored base declarations. Empty uses the
	// built-in declarations.
	BaseTypes string `koanf:"base_types"`

	OutDir      string `koanf:"out_dir"`
	BaseFile    string `koanf:"base_file"`
	ContentFile string `koanf:"content_file"`
	ModuleFile  string `koanf:"module_file"`

	FetchTypes     bool `koanf:"fetch_types"`
	ValidateOutput bool `koanf:"validate"`

	// HistoryPath is the generation history database. Empty disables history.
	HistoryPath string `koanf:"history_path"`

	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Webhook      WebhookConfig `koanf:"webhook"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// StoryblokConfig holds the space credentials.
type StoryblokConfig struct {
	OAuthToken  string `koanf:"oauth_token"`
	AccessToken string `koanf:"access_token"`
	SpaceID     string `koanf:"space_id"`
	Region      string `koanf:"region"`
	BaseURL     string `koanf:"base_url"`
}

// WebhookConfig holds the webhook relay settings.
type WebhookConfig struct {
	Addr         string `koanf:"addr"`
	Secret       string `koanf:"secret"`
	BuildHookURL string `koanf:"build_hook_url"`
	Regenerate   bool   `koanf:"regenerate"`
}

// Default configuration values.
const (
	ConfigFileName     = "sbtypegen.yaml"
	DefaultOutDir      = ".sbtypegen/types"
	DefaultHistoryFile = ".sbtypegen/history.db"
	DefaultRegion      = string(storyblok.RegionEU)
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	EnvPrefix          = "SBTYPEGEN_"
)

// defaults returns the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"storyblok.region": DefaultRegion,
		"type_prefix":      naming.DefaultPrefix,
		"component_tag":    emitter.DefaultComponentTag,
		"base_module":      emitter.DefaultBaseModule,
		"out_dir":          DefaultOutDir,
		"base_file":        pipeline.DefaultBaseFile,
		"content_file":     pipeline.DefaultContentFile,
		"fetch_types":      true,
		"validate":         true,
		"history_path":     DefaultHistoryFile,
		"verbose":          false,
		"output":           DefaultOutput,
		"webhook.addr":     webhook.DefaultAddr,
	}
}

// StoryblokClientConfig converts the credentials to a schema client config.
func (c *Config) StoryblokClientConfig() storyblok.Config {
	return storyblok.Config{
		OAuthToken:  c.Storyblok.OAuthToken,
		AccessToken: c.Storyblok.AccessToken,
		SpaceID:     c.Storyblok.SpaceID,
		Region:      storyblok.Region(c.Storyblok.Region),
		BaseURL:     c.Storyblok.BaseURL,
	}
}

// PipelineConfig converts the configuration to a pipeline config. History and
// Logger are left for the caller.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Storyblok:     c.StoryblokClientConfig(),
		TypePrefix:    c.TypePrefix,
		ComponentTag:  c.ComponentTag,
		BaseModule:    c.BaseModule,
		BaseTypesPath: c.BaseTypes,
		OutDir:        c.OutDir,
		BaseFile:      c.BaseFile,
		ContentFile:   c.ContentFile,
		ModuleFile:    c.ModuleFile,
		FetchTypes:    c.FetchTypes,
		Validate:      c.ValidateOutput,
	}
}

// ConfigFile returns the path of the project's config file.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.ProjectRoot, ConfigFileName)
}
