package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string) // setup before running
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name: "init empty directory",
			args: []string{},
			wantFiles: []string{
				"sbtypegen.yaml",
				"storyblok.components.base.d.ts",
				".gitignore",
				".env.example",
			},
		},
		{
			name: "init existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "sbtypegen.yaml"), []byte("existing"), 0600)
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "sbtypegen.yaml"), []byte("existing"), 0600)
			},
			args:      []string{"--force"},
			wantFiles: []string{"sbtypegen.yaml", "storyblok.components.base.d.ts"},
		},
		{
			name:      "init into a new subdirectory",
			args:      []string{"frontend"},
			wantFiles: []string{"frontend/sbtypegen.yaml", "frontend/.gitignore"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, f))
				assert.False(t, os.IsNotExist(err), "expected file %q to exist", f)
			}
		})
	}
}

func TestInitCommandMetadata(t *testing.T) {
	cmd := NewInitCommand()

	assert.Equal(t, "init [directory]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("force"), "--force flag should exist")
}

func TestInitCreatesValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile("sbtypegen.yaml")
	require.NoError(t, err, "failed to read sbtypegen.yaml")

	assert.Contains(t, string(content), "# sbtypegen configuration.")
	assert.Contains(t, string(content), "oauth_token: ${STORYBLOK_OAUTH_TOKEN}")

	var parsed starterConfig
	require.NoError(t, yaml.Unmarshal(content, &parsed))
	assert.Equal(t, "eu", parsed.Storyblok.Region)
	assert.Equal(t, "storyblok.components.base.d.ts", parsed.BaseTypes)
	assert.True(t, parsed.FetchTypes)
	assert.True(t, parsed.Validate)

	base, err := os.ReadFile("storyblok.components.base.d.ts")
	require.NoError(t, err)
	assert.Equal(t, pipeline.DefaultBaseTypes, string(base))
}

func TestInitKeepsExistingBaseTypes(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	require.NoError(t, os.WriteFile("storyblok.components.base.d.ts", []byte("// mine\n"), 0600))

	cmd := NewInitCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	require.NoError(t, cmd.Execute())

	base, err := os.ReadFile("storyblok.components.base.d.ts")
	require.NoError(t, err)
	assert.Equal(t, "// mine\n", string(base))
}

func TestTargetName(t *testing.T) {
	assert.Equal(t, ".gitignore", targetName("gitignore"))
	assert.Equal(t, "sub/.env.example", targetName("sub/env.example"))
	assert.Equal(t, "README.md", targetName("README.md"))
}

func TestScaffold_KeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("node_modules\n"), 0600))

	files, err := scaffold("minimal", dir, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []scaffoldedFile{
		{Path: ".gitignore"},
		{Path: ".env.example", Written: true},
	}, files)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "node_modules\n", string(data))

	files, err = scaffold("minimal", dir, true)
	require.NoError(t, err)
	for _, f := range files {
		assert.True(t, f.Written, "%s should be overwritten with force", f.Path)
	}
}
