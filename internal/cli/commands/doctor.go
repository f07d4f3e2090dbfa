package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sbtypegen/internal/cli/config"
	"github.com/leapstack-labs/sbtypegen/internal/cli/output"
	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

// Health check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the project setup",
		Long: `Check that sbtypegen can generate declarations for this project.

The doctor command reports:
- Configuration (config file, output directory, history database)
- Credentials (management token, space id or access token)
- Generation (a dry run against the Storyblok space, with its warnings)

It exits with an error when any check fails.`,
		Example: `  # Run all checks
  sbtypegen doctor

  # Output as JSON
  sbtypegen doctor -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	HealthChecks []HealthCheck `json:"health_checks"`
	IssueCount   int           `json:"issue_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Summary string   `json:"summary"`
	Details []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	checks := []HealthCheck{
		checkConfigFile(),
		checkOutDir(cc.Cfg),
		checkHistory(cc),
		checkManagementToken(cc.Cfg),
		checkSpace(cc.Cfg),
	}

	pc := cc.Cfg.PipelineConfig()
	pc.Logger = cc.Logger
	pc.DryRun = true
	res, err := pipeline.New(pc).Run(cmd.Context())
	checks = append(checks, checkGeneration(res, err))

	sort.SliceStable(checks, func(i, j int) bool { return checks[i].Group < checks[j].Group })

	out := &DoctorOutput{HealthChecks: checks}
	for _, c := range checks {
		if c.Status != checkPass {
			out.IssueCount++
		}
	}

	if err := renderDoctor(cc.Renderer, out); err != nil {
		return err
	}
	if n := countStatus(checks, checkError); n > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", n)
	}
	return nil
}

func checkConfigFile() HealthCheck {
	c := HealthCheck{ID: "config-file", Group: "configuration", Status: checkPass}
	if path := config.GetConfigFileUsed(); path != "" {
		c.Summary = "using " + path
		return c
	}
	c.Status = checkWarn
	c.Summary = "no " + config.ConfigFileName + " found, using defaults and environment"
	c.Details = []string{"run 'sbtypegen init' to create one"}
	return c
}

func checkOutDir(cfg *config.Config) HealthCheck {
	c := HealthCheck{ID: "out-dir", Group: "configuration", Status: checkPass, Summary: cfg.OutDir + " is writable"}
	if err := os.MkdirAll(cfg.OutDir, 0o750); err != nil {
		c.Status = checkError
		c.Summary = "cannot create " + cfg.OutDir
		c.Details = []string{err.Error()}
		return c
	}
	f, err := os.CreateTemp(cfg.OutDir, ".doctor-*")
	if err != nil {
		c.Status = checkError
		c.Summary = "cannot write to " + cfg.OutDir
		c.Details = []string{err.Error()}
		return c
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return c
}

func checkHistory(cc *CommandContext) HealthCheck {
	c := HealthCheck{ID: "history", Group: "configuration", Status: checkPass}
	store, err := cc.OpenHistory()
	if err != nil {
		c.Status = checkError
		c.Summary = "cannot open " + cc.Cfg.HistoryPath
		c.Details = []string{err.Error()}
		return c
	}
	if store == nil {
		c.Summary = "disabled"
		return c
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(1)
	switch {
	case err != nil:
		c.Status = checkError
		c.Summary = "cannot read " + cc.Cfg.HistoryPath
		c.Details = []string{err.Error()}
	case len(runs) == 0:
		c.Summary = "no runs recorded yet"
	default:
		c.Summary = fmt.Sprintf("last run %s at %s", runs[0].State, runs[0].StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return c
}

func checkManagementToken(cfg *config.Config) HealthCheck {
	c := HealthCheck{ID: "management-token", Group: "credentials", Status: checkPass, Summary: "set"}
	if !cfg.HasManagementToken() {
		c.Status = checkWarn
		c.Summary = "not set, generate writes stub content types"
		c.Details = []string{"set storyblok.oauth_token or SBTYPEGEN_STORYBLOK__OAUTH_TOKEN"}
	}
	return c
}

func checkSpace(cfg *config.Config) HealthCheck {
	c := HealthCheck{ID: "space", Group: "credentials", Status: checkPass}
	switch {
	case cfg.Storyblok.SpaceID != "":
		c.Summary = "space " + cfg.Storyblok.SpaceID
	case cfg.Storyblok.AccessToken != "":
		c.Summary = "resolved through the access token"
	case cfg.HasManagementToken():
		c.Status = checkError
		c.Summary = "neither storyblok.space_id nor storyblok.access_token is set"
	default:
		c.Status = checkWarn
		c.Summary = "not configured"
	}
	return c
}

func checkGeneration(res *pipeline.Result, err error) HealthCheck {
	c := HealthCheck{ID: "generation", Group: "generation", Status: checkPass}
	if err != nil {
		c.Status = checkError
		c.Summary = "dry run failed"
		c.Details = []string{err.Error()}
		return c
	}

	c.Summary = fmt.Sprintf("%s, %d components", res.State, res.Components)
	for _, w := range res.Warnings {
		c.Details = append(c.Details, formatWarning(w))
	}
	c.Details = append(c.Details, res.UnitErrors...)

	switch {
	case res.State == core.RunStateFailed:
		c.Status = checkError
	case res.State == core.RunStateDegraded || len(res.Warnings) > 0:
		c.Status = checkWarn
	}
	return c
}

func countStatus(checks []HealthCheck, status string) int {
	n := 0
	for _, c := range checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	caser := cases.Title(language.English)
	r.Header(1, "sbtypegen doctor")

	group := ""
	for _, c := range out.HealthChecks {
		if c.Group != group {
			group = c.Group
			r.Println("")
			r.Header(2, caser.String(group))
		}
		status := "success"
		switch c.Status {
		case checkWarn:
			status = "warning"
		case checkError:
			status = "error"
		}
		r.StatusLine(c.ID, status, c.Summary)
		for _, d := range c.Details {
			r.Muted("      " + d)
		}
	}

	r.Println("")
	if out.IssueCount == 0 {
		r.Success("All checks passed")
		return nil
	}
	summary := fmt.Sprintf("%d issue(s): %d error(s), %d warning(s)", out.IssueCount,
		countStatus(out.HealthChecks, checkError), countStatus(out.HealthChecks, checkWarn))
	if countStatus(out.HealthChecks, checkError) > 0 {
		r.Error(summary)
	} else {
		r.Warning(summary)
	}
	return nil
}
