package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes an sbtypegen.yaml into a fresh project directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no variables", "plain text", "plain text"},
		{"single variable", "${TEST_VAR_ONE}", "value_one"},
		{"embedded variable", "prefix_${TEST_VAR_ONE}_suffix", "prefix_value_one_suffix"},
		{"multiple variables", "${TEST_VAR_ONE}:${TEST_VAR_TWO}", "value_one:value_two"},
		{"undefined variable", "${UNDEFINED_VAR_XYZ}", "${UNDEFINED_VAR_XYZ}"},
		{"empty string", "", ""},
		{"dollar without braces", "$TEST_VAR_ONE", "$TEST_VAR_ONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "type_prefix", envKey("SBTYPEGEN_TYPE_PREFIX"))
	assert.Equal(t, "storyblok.oauth_token", envKey("SBTYPEGEN_STORYBLOK__OAUTH_TOKEN"))
	assert.Equal(t, "webhook.build_hook_url", envKey("SBTYPEGEN_WEBHOOK__BUILD_HOOK_URL"))
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "{}\n")
	root := filepath.Dir(path)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, path, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())

	assert.Equal(t, "eu", cfg.Storyblok.Region)
	assert.Equal(t, "SbComponent", cfg.TypePrefix)
	assert.Equal(t, "SbComponent", cfg.ComponentTag)
	assert.Equal(t, "./storyblok.components.base", cfg.BaseModule)
	assert.Equal(t, filepath.Join(root, DefaultOutDir), cfg.OutDir)
	assert.Equal(t, filepath.Join(root, DefaultHistoryFile), cfg.HistoryPath)
	assert.Equal(t, "storyblok.components.base.d.ts", cfg.BaseFile)
	assert.Equal(t, "storyblok.components.content.d.ts", cfg.ContentFile)
	assert.Empty(t, cfg.BaseTypes)
	assert.True(t, cfg.FetchTypes)
	assert.True(t, cfg.ValidateOutput)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, ":8787", cfg.Webhook.Addr)
	assert.False(t, cfg.HasManagementToken())
}

func TestLoadConfig_FileValues(t *testing.T) {
	ResetConfig()
	t.Setenv("SB_MANAGEMENT_TOKEN", "secret-token")

	path := writeConfig(t, `storyblok:
  oauth_token: ${SB_MANAGEMENT_TOKEN}
  space_id: 12345
  region: us
type_prefix: Block
base_types: types/base.d.ts
out_dir: /abs/types
module_file: storyblok.components.d.ts
history_path: ""
webhook:
  secret: hook-secret
  build_hook_url: https://api.netlify.com/build_hooks/abc
  regenerate: true
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Storyblok.OAuthToken)
	assert.Equal(t, "12345", cfg.Storyblok.SpaceID)
	assert.Equal(t, "us", cfg.Storyblok.Region)
	assert.Equal(t, "Block", cfg.TypePrefix)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "types/base.d.ts"), cfg.BaseTypes)
	assert.Equal(t, "/abs/types", cfg.OutDir)
	assert.Empty(t, cfg.HistoryPath)
	assert.True(t, cfg.Webhook.Regenerate)
	assert.Equal(t, "hook-secret", cfg.Webhook.Secret)

	pc := cfg.PipelineConfig()
	assert.Equal(t, "Block", pc.TypePrefix)
	assert.Equal(t, "storyblok.components.d.ts", pc.ModuleFile)
	assert.Equal(t, "secret-token", pc.Storyblok.OAuthToken)
	assert.Equal(t, "us", string(pc.Storyblok.Region))
}

func TestLoadConfig_Precedence(t *testing.T) {
	newFlags := func() *pflag.FlagSet {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("type-prefix", "", "")
		flags.String("space-id", "", "")
		flags.Bool("no-fetch", false, "")
		flags.String("out-dir", "", "")
		return flags
	}

	t.Run("flag beats env and file", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, "type_prefix: FromFile\n")
		t.Setenv("SBTYPEGEN_TYPE_PREFIX", "FromEnv")

		flags := newFlags()
		require.NoError(t, flags.Set("type-prefix", "FromFlag"))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "FromFlag", cfg.TypePrefix)
	})

	t.Run("env beats file", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, "type_prefix: FromFile\nstoryblok:\n  space_id: '1'\n")
		t.Setenv("SBTYPEGEN_TYPE_PREFIX", "FromEnv")
		t.Setenv("SBTYPEGEN_STORYBLOK__SPACE_ID", "2")

		cfg, err := LoadConfig(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, "FromEnv", cfg.TypePrefix)
		assert.Equal(t, "2", cfg.Storyblok.SpaceID)
	})

	t.Run("mapped flags", func(t *testing.T) {
		ResetConfig()
		path := writeConfig(t, "{}\n")

		flags := newFlags()
		require.NoError(t, flags.Set("space-id", "99"))
		require.NoError(t, flags.Set("no-fetch", "true"))
		require.NoError(t, flags.Set("out-dir", "generated"))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "99", cfg.Storyblok.SpaceID)
		assert.False(t, cfg.FetchTypes)

		// path flags resolve against the working directory
		want, err := filepath.Abs("generated")
		require.NoError(t, err)
		assert.Equal(t, want, cfg.OutDir)
	})
}

func TestLoadConfig_Errors(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	ResetConfig()
	path := writeConfig(t, "storyblok:\n  region: mars\n")
	_, err = LoadConfig(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `storyblok.region "mars"`)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storyblok:    StoryblokConfig{Region: "eu"},
			TypePrefix:   "SbComponent",
			ComponentTag: "SbComponent",
			OutDir:       "types",
			BaseFile:     "base.d.ts",
			ContentFile:  "content.d.ts",
			OutputFormat: "auto",
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown region", mutate: func(c *Config) { c.Storyblok.Region = "mars" }, errSubstr: "storyblok.region"},
		{name: "empty prefix", mutate: func(c *Config) { c.TypePrefix = "" }, errSubstr: "type_prefix is required"},
		{name: "prefix with dash", mutate: func(c *Config) { c.TypePrefix = "Sb-" }, errSubstr: "not a valid TypeScript identifier"},
		{name: "empty component tag", mutate: func(c *Config) { c.ComponentTag = "" }, errSubstr: "component_tag"},
		{name: "same output files", mutate: func(c *Config) { c.ContentFile = c.BaseFile }, errSubstr: "must differ"},
		{name: "unknown output", mutate: func(c *Config) { c.OutputFormat = "yaml" }, errSubstr: `output "yaml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestGetLogger_Fallback(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))
}

func TestLoadConfig_UnsetCredentialReference(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "storyblok:\n  oauth_token: ${SBTYPEGEN_TEST_UNSET_TOKEN}\n  access_token: ${SBTYPEGEN_TEST_UNSET_TOKEN}\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Storyblok.OAuthToken)
	assert.Empty(t, cfg.Storyblok.AccessToken)
	assert.False(t, cfg.HasManagementToken())
}
