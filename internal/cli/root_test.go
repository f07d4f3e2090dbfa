package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sbtypegen/internal/cli/config"
	clitest "github.com/leapstack-labs/sbtypegen/internal/cli/testutil"
	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
	"github.com/leapstack-labs/sbtypegen/internal/testutil"
)

func testSpace() *testutil.FakeSpace {
	space := testutil.NewFakeSpace()
	space.AddComponent("teaser", true, `{"headline": {"type": "text", "pos": 0}}`)
	space.AddComponent("page", false, `{"body": {"type": "bloks", "pos": 0}}`)
	return space
}

// executeRoot runs the root command inside dir and returns stdout and stderr.
func executeRoot(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Chdir(dir)

	cmd := NewRootCmd()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"generate", "watch", "globalize", "inspect", "history", "doctor", "serve", "init", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "project-dir", "oauth-token", "access-token", "space-id", "region", "out-dir", "history", "verbose", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestGenerate_EndToEnd(t *testing.T) {
	dir := clitest.SetupTestProject(t, testSpace())

	stdout, _, err := executeRoot(t, dir, "generate", "-o", "markdown")
	require.NoError(t, err)
	clitest.AssertNoANSI(t, stdout)
	clitest.AssertValidMarkdown(t, stdout)
	assert.Contains(t, stdout, pipeline.DefaultContentFile)
	assert.Contains(t, stdout, "done: 2 components, 0 warnings")

	content, err := os.ReadFile(filepath.Join(dir, "types", pipeline.DefaultContentFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "type SbComponentTeaser = SbComponent<'teaser', {")
	assert.Contains(t, string(content), "headline: string")

	_, err = os.Stat(filepath.Join(dir, "types", pipeline.DefaultBaseFile))
	require.NoError(t, err)

	// A second run records another history row with the same content.
	stdout, _, err = executeRoot(t, dir, "generate", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Content is unchanged since the previous run.")

	stdout, _, err = executeRoot(t, dir, "history", "-o", "json")
	require.NoError(t, err)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "done", runs[0]["state"])
	assert.Equal(t, runs[0]["content_hash"], runs[1]["content_hash"])
}

func TestGenerate_JSON(t *testing.T) {
	dir := clitest.SetupTestProject(t, testSpace())

	stdout, _, err := executeRoot(t, dir, "generate", "-o", "json", "--type-prefix", "Block")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "done", res["state"])
	assert.InDelta(t, 2, res["components"], 0)

	content, err := os.ReadFile(filepath.Join(dir, "types", pipeline.DefaultContentFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "type BlockTeaser =")
}

func TestGenerate_NoFetchIsDegraded(t *testing.T) {
	dir := clitest.SetupTestProject(t, testSpace())

	_, stderr, err := executeRoot(t, dir, "generate", "--no-fetch", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stderr, "degraded")

	content, err := os.ReadFile(filepath.Join(dir, "types", pipeline.DefaultContentFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), pipeline.DegradedMarker)
}

func TestGenerate_DryRunWritesNothing(t *testing.T) {
	dir := clitest.SetupTestProject(t, testSpace())

	stdout, _, err := executeRoot(t, dir, "generate", "--dry-run", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "// "+pipeline.DefaultContentFile)
	assert.Contains(t, stdout, "SbComponentTeaser")

	_, err = os.Stat(filepath.Join(dir, "types"))
	assert.True(t, os.IsNotExist(err), "dry run must not create the output directory")
}

func TestInspect_JSON(t *testing.T) {
	dir := clitest.SetupTestProject(t, testSpace())

	stdout, _, err := executeRoot(t, dir, "inspect", "-o", "json")
	require.NoError(t, err)

	var comps []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &comps))
	require.Len(t, comps, 2)

	byName := map[string]map[string]any{}
	for _, c := range comps {
		byName[c["name"].(string)] = c
	}
	assert.Equal(t, "SbComponentTeaser", byName["teaser"]["type_name"])
	assert.Equal(t, "content type", byName["page"]["kind"])

	stdout, _, err = executeRoot(t, dir, "inspect", "teaser", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"type": "string"`)

	_, _, err = executeRoot(t, dir, "inspect", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `component "missing" not found`)
}

func TestHistory_Disabled(t *testing.T) {
	dir := clitest.SetupTestProject(t, testSpace())

	_, _, err := executeRoot(t, dir, "history", "--history", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")
}

func TestInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("type_prefix: 1-bad\n"), 0600))

	_, _, err := executeRoot(t, dir, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestVersionSkipsConfig(t *testing.T) {
	dir := t.TempDir()
	// An unreadable config must not matter to commands that do not load it.
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("storyblok: ["), 0600))

	stdout, _, err := executeRoot(t, dir, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sbtypegen v"+Version)
}

func TestDoctor_HealthyProject(t *testing.T) {
	dir := clitest.SetupTestProject(t, testSpace())

	stdout, _, err := executeRoot(t, dir, "doctor", "-o", "json")
	require.NoError(t, err)

	var out struct {
		HealthChecks []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"health_checks"`
		IssueCount int `json:"issue_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Zero(t, out.IssueCount)
	assert.Len(t, out.HealthChecks, 6)
}
