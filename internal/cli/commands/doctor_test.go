package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sbtypegen/internal/cli/config"
	clitest "github.com/leapstack-labs/sbtypegen/internal/cli/testutil"
	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

func TestCheckSpace(t *testing.T) {
	tests := []struct {
		name       string
		storyblok  config.StoryblokConfig
		wantStatus string
	}{
		{name: "space id", storyblok: config.StoryblokConfig{OAuthToken: "t", SpaceID: "1"}, wantStatus: checkPass},
		{name: "access token lookup", storyblok: config.StoryblokConfig{OAuthToken: "t", AccessToken: "a"}, wantStatus: checkPass},
		{name: "token without space", storyblok: config.StoryblokConfig{OAuthToken: "t"}, wantStatus: checkError},
		{name: "nothing configured", storyblok: config.StoryblokConfig{}, wantStatus: checkWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkSpace(&config.Config{Storyblok: tt.storyblok})
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.NotEmpty(t, got.Summary)
		})
	}
}

func TestCheckManagementToken(t *testing.T) {
	assert.Equal(t, checkPass, checkManagementToken(&config.Config{Storyblok: config.StoryblokConfig{OAuthToken: "t"}}).Status)

	missing := checkManagementToken(&config.Config{})
	assert.Equal(t, checkWarn, missing.Status)
	assert.Contains(t, missing.Details[0], "SBTYPEGEN_STORYBLOK__OAUTH_TOKEN")
}

func TestCheckOutDir(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, checkPass, checkOutDir(&config.Config{OutDir: dir + "/types"}).Status)
}

func TestCheckGeneration(t *testing.T) {
	tests := []struct {
		name        string
		res         *pipeline.Result
		err         error
		wantStatus  string
		wantDetails int
	}{
		{
			name:       "done",
			res:        &pipeline.Result{State: core.RunStateDone, Components: 3},
			wantStatus: checkPass,
		},
		{
			name: "done with warnings",
			res: &pipeline.Result{State: core.RunStateDone, Warnings: []core.Warning{
				{Kind: core.WarnEmptyDatasource, Component: "page", Field: "color", Message: "datasource has no entries"},
			}},
			wantStatus:  checkWarn,
			wantDetails: 1,
		},
		{
			name:       "degraded",
			res:        &pipeline.Result{State: core.RunStateDegraded},
			wantStatus: checkWarn,
		},
		{
			name:        "failed unit",
			res:         &pipeline.Result{State: core.RunStateFailed, UnitErrors: []string{"base: parse error"}},
			wantStatus:  checkError,
			wantDetails: 1,
		},
		{
			name:        "run error",
			err:         errors.New("boom"),
			wantStatus:  checkError,
			wantDetails: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkGeneration(tt.res, tt.err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Len(t, got.Details, tt.wantDetails)
		})
	}
}

func TestRenderDoctor(t *testing.T) {
	out := &DoctorOutput{
		HealthChecks: []HealthCheck{
			{ID: "config-file", Group: "configuration", Status: checkPass, Summary: "using sbtypegen.yaml"},
			{ID: "space", Group: "credentials", Status: checkError, Summary: "neither set"},
		},
		IssueCount: 1,
	}

	t.Run("markdown", func(t *testing.T) {
		tr := clitest.NewTestRendererMarkdown()
		require.NoError(t, renderDoctor(tr.Renderer, out))

		clitest.AssertValidMarkdown(t, tr.Output())
		assert.Contains(t, tr.Output(), "Configuration")
		assert.Contains(t, tr.Output(), "Credentials")
		assert.Contains(t, tr.Output(), "config-file")
		assert.Contains(t, tr.ErrorOutput(), "1 issue(s): 1 error(s), 0 warning(s)")
	})

	t.Run("json", func(t *testing.T) {
		tr := clitest.NewTestRendererJSON()
		require.NoError(t, renderDoctor(tr.Renderer, out))
		assert.Contains(t, tr.Output(), `"issue_count": 1`)
	})
}
