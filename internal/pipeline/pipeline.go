// Package pipeline sequences a generation run: fetch the schema, map and emit the
// content declarations, globalize them together with the base declarations and
// write both files.
//
// A run never fails because the schema is unavailable. Missing credentials, a
// failed fetch or a fatal generation error switch the run to degraded mode, which
// writes a stub content file so downstream type checking keeps working.
package pipeline

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/sbtypegen/internal/emitter"
	"github.com/leapstack-labs/sbtypegen/internal/globalize"
	"github.com/leapstack-labs/sbtypegen/internal/naming"
	"github.com/leapstack-labs/sbtypegen/internal/storyblok"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
	"github.com/leapstack-labs/sbtypegen/pkg/tsdecl"
)

// DefaultBaseTypes is the built-in base declaration unit used when no
// hand-authored base file is configured.
//
//go:embed storyblok.components.base.d.ts
var DefaultBaseTypes string

// Default output file names.
const (
	DefaultBaseFile    = "storyblok.components.base.d.ts"
	DefaultContentFile = "storyblok.components.content.d.ts"
)

// ErrFetchDisabled is the degraded reason when schema fetching is turned off.
var ErrFetchDisabled = errors.New("schema fetching is disabled")

// Config holds pipeline configuration.
type Config struct {
	Storyblok storyblok.Config

	// TypePrefix is prepended to generated component type names.
	TypePrefix   string
	ComponentTag string
	// BaseModule is the import specifier of the base declarations in the
	// module-scoped content file.
	BaseModule string

	// BaseTypesPath points at hand-authored base declarations; empty uses DefaultBaseTypes.
	BaseTypesPath string
	OutDir        string
	BaseFile      string
	ContentFile   string
	// ModuleFile, when set, also writes the module-scoped content unit.
	ModuleFile string

	FetchTypes bool
	Validate   bool
	// DryRun renders every output without touching the file system.
	DryRun bool

	// History records runs; nil disables recording.
	History core.HistoryStore
	Logger  *slog.Logger
}

// Result summarises a generation run.
type Result struct {
	RunID       string         `json:"run_id"`
	State       core.RunState  `json:"state"`
	Components  int            `json:"components"`
	Warnings    []core.Warning `json:"warnings"`
	Files       []FileResult   `json:"files"`
	ContentHash string         `json:"content_hash"`
	// Unchanged is set when the content equals the previous completed run's.
	Unchanged bool          `json:"unchanged"`
	Duration  time.Duration `json:"duration"`
	// UnitErrors holds failures confined to one output unit.
	UnitErrors  []string `json:"unit_errors,omitempty"`
	Transitions []State  `json:"-"`
	// Outputs holds the rendered files of a dry run, keyed by path.
	Outputs map[string]string `json:"-"`
}

// Pipeline runs generations. Runs are serialised; a Pipeline is safe for use by
// several goroutines.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	mu     sync.Mutex
}

// New creates a pipeline, filling unset file names with defaults.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.BaseFile == "" {
		cfg.BaseFile = DefaultBaseFile
	}
	if cfg.ContentFile == "" {
		cfg.ContentFile = DefaultContentFile
	}
	if cfg.ComponentTag == "" {
		cfg.ComponentTag = emitter.DefaultComponentTag
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// run is the state of one generation.
type run struct {
	p      *Pipeline
	logger *slog.Logger
	state  State
	diags  *core.Diagnostics
	result *Result
}

// Run performs one generation. The returned error is reserved for failures the
// pipeline cannot degrade from, such as an unwritable output directory.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := time.Now()
	id := uuid.NewString()
	r := &run{
		p:      p,
		logger: p.logger.With("run_id", id),
		diags:  &core.Diagnostics{},
		result: &Result{RunID: id, Transitions: []State{StateIdle}},
	}

	previous := p.recordStart(r, started)

	err := r.execute(ctx)
	r.result.Duration = time.Since(started)
	r.result.Warnings = r.diags.Warnings()
	if previous != nil && previous.ContentHash == r.result.ContentHash && r.result.ContentHash != "" {
		r.result.Unchanged = true
	}

	switch {
	case err != nil || len(r.result.UnitErrors) > 0:
		r.result.State = core.RunStateFailed
	case r.result.State == "":
		r.result.State = core.RunStateDone
	}

	p.recordEnd(r, err)
	r.logger.Info("generation finished",
		"state", r.result.State,
		"components", r.result.Components,
		"warnings", len(r.result.Warnings),
		"unchanged", r.result.Unchanged,
		"duration", r.result.Duration)
	return r.result, err
}

type output struct {
	file    string
	content string
}

func (r *run) transition(to State) {
	if !CanTransition(r.state, to) {
		// a programming error; keep going so the run still writes output
		r.logger.Error("invalid pipeline transition", "from", r.state, "to", to)
	}
	r.logger.Debug("pipeline state", "from", r.state, "to", to)
	r.state = to
	r.result.Transitions = append(r.result.Transitions, to)
}

func (r *run) execute(ctx context.Context) error {
	cfg := r.p.cfg

	base, reserved, baseErr := r.baseOutput()
	if baseErr != nil {
		r.logger.Error("base declarations could not be globalized", "error", baseErr)
		r.result.UnitErrors = append(r.result.UnitErrors, baseErr.Error())
	}

	r.transition(StateFetchingSchema)
	content, module, err := r.generate(ctx, reserved)
	if err != nil {
		content, module = r.degrade(err), ""
	}

	r.transition(StateWriting)
	r.result.ContentHash = contentHash(content)

	var outputs []output
	if baseErr == nil {
		outputs = append(outputs, output{cfg.BaseFile, base})
	}
	outputs = append(outputs, output{cfg.ContentFile, content})
	if cfg.ModuleFile != "" && module != "" {
		outputs = append(outputs, output{cfg.ModuleFile, module})
	}

	for _, out := range outputs {
		if err := r.write(out.file, out.content); err != nil {
			return err
		}
	}

	r.transition(StateDone)
	return nil
}

// generate runs the successful path and returns the globalized content and the
// module-scoped content unit. reserved holds the global names of the base unit.
func (r *run) generate(ctx context.Context, reserved []string) (string, string, error) {
	cfg := r.p.cfg

	if !cfg.FetchTypes {
		return "", "", ErrFetchDisabled
	}
	if cfg.Storyblok.OAuthToken == "" {
		return "", "", core.ErrMissingCredentials
	}

	clientCfg := cfg.Storyblok
	clientCfg.Logger = r.logger
	client, err := storyblok.NewClient(clientCfg)
	if err != nil {
		return "", "", err
	}

	client, err = client.BindSpace(ctx)
	if err != nil {
		return "", "", err
	}

	registry, err := client.Snapshot(ctx, r.diags)
	if err != nil {
		return "", "", err
	}
	r.result.Components = len(registry.Components)

	r.transition(StateMapping)
	em := emitter.New(emitter.Config{
		ComponentTag: cfg.ComponentTag,
		BaseModule:   cfg.BaseModule,
		Names:        naming.NewResolver(cfg.TypePrefix),
		Reserved:     reserved,
	})
	unit, err := em.Emit(registry, r.diags)
	if err != nil {
		return "", "", err
	}

	r.transition(StateEmitting)
	module := tsdecl.PrintUnit(unit)
	if cfg.Validate {
		for _, w := range Validate(module, cfg.ContentFile) {
			r.diags.Add(w)
		}
	}

	r.transition(StateTransforming)
	block, err := globalize.Transform(unit, globalize.Options{IgnoreImports: true, Logger: r.logger})
	if err != nil {
		return "", "", err
	}

	for _, w := range r.diags.Warnings() {
		r.logger.Warn(w.Message, "kind", w.Kind.String(), "component", w.Component, "field", w.Field)
	}
	return tsdecl.PrintGlobal(block), module, nil
}

// degrade switches the run to degraded mode and returns the stub content. Any
// warnings collected so far are replaced by a single degraded warning.
func (r *run) degrade(cause error) string {
	r.transition(StateDegraded)
	r.result.State = core.RunStateDegraded
	r.result.Components = 0

	reason := strings.Join(strings.Fields(cause.Error()), " ")
	r.diags = &core.Diagnostics{}
	r.diags.Add(core.Warning{Kind: core.WarnDegraded, Message: "wrote stub content types: " + reason})
	r.logger.Warn("schema unavailable, writing stub content types", "reason", reason)

	return tsdecl.PrintGlobal(stubBlock(r.p.cfg.ComponentTag, reason))
}

// baseOutput globalizes the base declarations and returns the printed unit with
// the names it declares globally.
func (r *run) baseOutput() (string, []string, error) {
	src, file := DefaultBaseTypes, DefaultBaseFile
	if path := r.p.cfg.BaseTypesPath; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("reading base declarations: %w", err)
		}
		src, file = string(data), path
	}

	u, err := tsdecl.Parse(src, file)
	if err != nil {
		return "", nil, err
	}
	block, err := globalize.Transform(u, globalize.Options{Logger: r.logger})
	if err != nil {
		return "", nil, err
	}
	return tsdecl.PrintGlobal(block), block.Names(), nil
}

func (r *run) write(file, content string) error {
	path := filepath.Join(r.p.cfg.OutDir, file)
	res := FileResult{Path: path, Bytes: len(content)}

	if r.p.cfg.DryRun {
		if r.result.Outputs == nil {
			r.result.Outputs = make(map[string]string)
		}
		r.result.Outputs[path] = content
		r.result.Files = append(r.result.Files, res)
		return nil
	}

	changed, err := writeIfChanged(path, content)
	if err != nil {
		return err
	}
	res.Changed = changed
	r.result.Files = append(r.result.Files, res)
	r.logger.Debug("wrote output", "path", path, "changed", changed, "bytes", len(content))
	return nil
}

// =============================================================================
// History
// =============================================================================

// recordStart registers the run and returns the previous completed run, if any.
func (p *Pipeline) recordStart(r *run, started time.Time) *core.Run {
	if p.cfg.History == nil {
		return nil
	}
	previous, err := p.cfg.History.LatestCompleted()
	if err != nil {
		r.logger.Warn("reading generation history failed", "error", err)
	}
	if p.cfg.DryRun {
		return previous
	}
	if _, err := p.cfg.History.CreateRun(r.result.RunID, started); err != nil {
		r.logger.Warn("recording generation run failed", "error", err)
	}
	return previous
}

func (p *Pipeline) recordEnd(r *run, runErr error) {
	if p.cfg.History == nil || p.cfg.DryRun {
		return
	}
	rec := &core.Run{
		ID:          r.result.RunID,
		State:       r.result.State,
		Components:  r.result.Components,
		Warnings:    len(r.result.Warnings),
		ContentHash: r.result.ContentHash,
	}
	switch {
	case runErr != nil:
		rec.Error = runErr.Error()
	case len(r.result.UnitErrors) > 0:
		rec.Error = strings.Join(r.result.UnitErrors, "; ")
	}
	if err := p.cfg.History.CompleteRun(rec); err != nil {
		r.logger.Warn("recording generation run failed", "error", err)
	}
}
