// Package webhook relays Storyblok publish webhooks to a static site build hook
// and, optionally, regenerates the content declarations.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8787"

const maxBodyBytes = 1 << 20

// Actions accepted in a webhook payload.
var Actions = []string{"published", "unpublished", "deleted", "moved"}

// Regenerator runs a generation. *pipeline.Pipeline satisfies it.
type Regenerator interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Config holds webhook relay configuration.
type Config struct {
	Addr string
	// Secret guards POST /webhook/{secret}. When set, the unguarded
	// POST /webhook route is rejected.
	Secret       string
	BuildHookURL string
	// Regenerator, when set, runs after every accepted webhook.
	Regenerator Regenerator
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Payload is the body Storyblok sends for story events.
type Payload struct {
	Text     string `json:"text"`
	Action   string `json:"action"`
	SpaceID  int64  `json:"space_id"`
	StoryID  int64  `json:"story_id"`
	FullSlug string `json:"full_slug"`
}

// Server is the webhook relay.
type Server struct {
	cfg     Config
	client  *http.Client
	logger  *slog.Logger
	trigger chan struct{}
}

// NewServer creates a relay.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// Handler returns the relay's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.logRequests,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/webhook", s.handleWebhook)
	r.Post("/webhook/{secret}", s.handleWebhook)

	return r
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting webhook relay", "addr", ln.Addr().String(), "regenerate", s.cfg.Regenerator != nil)

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Regenerator != nil {
		eg.Go(func() error {
			s.regenerateLoop(egctx)
			return nil
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down webhook relay...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(chi.URLParam(r, "secret")) {
		writeError(w, http.StatusForbidden, "Invalid secret")
		return
	}

	payload, err := decodePayload(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Debug("rejected webhook body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if s.cfg.BuildHookURL == "" {
		writeError(w, http.StatusInternalServerError, "Build hook URL not configured")
		return
	}

	hook, err := s.callBuildHook(r.Context())
	if err != nil {
		s.logger.Error("build hook failed", "error", err)
		writeError(w, http.StatusBadGateway, "Build hook failed")
		return
	}

	s.logger.Info("relayed webhook",
		"action", payload.Action,
		"story_id", payload.StoryID,
		"full_slug", payload.FullSlug)

	resp := map[string]any{
		"message":          "Success",
		"storyblokWebhook": payload,
		"buildHook":        hook,
	}
	if s.queueRegeneration() {
		resp["regeneration"] = "queued"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) authorized(secret string) bool {
	if s.cfg.Secret == "" {
		return secret == ""
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.Secret)) == 1
}

// decodePayload reads and validates a webhook body. Unknown keys are ignored.
func decodePayload(r io.Reader) (*Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	var missing []string
	for _, key := range []string{"text", "action", "space_id", "story_id", "full_slug"} {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	p := &Payload{}
	fields := []struct {
		key string
		dst any
	}{
		{"text", &p.Text},
		{"action", &p.Action},
		{"space_id", &p.SpaceID},
		{"story_id", &p.StoryID},
		{"full_slug", &p.FullSlug},
	}
	for _, f := range fields {
		if err := json.Unmarshal(raw[f.key], f.dst); err != nil {
			return nil, fmt.Errorf("%s: wrong type", f.key)
		}
	}

	if !slices.Contains(Actions, p.Action) {
		return nil, fmt.Errorf("action %q is not one of %s", p.Action, strings.Join(Actions, ", "))
	}
	return p, nil
}

// callBuildHook triggers the build and returns the hook's response text.
func (s *Server) callBuildHook(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BuildHookURL, http.NoBody)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("build hook answered status %d", resp.StatusCode)
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text, nil
	}
	return "Success", nil
}

// =============================================================================
// Regeneration
// =============================================================================

// queueRegeneration schedules a run. Requests arriving while one is pending
// collapse into it.
func (s *Server) queueRegeneration() bool {
	if s.cfg.Regenerator == nil {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
	return true
}

func (s *Server) regenerateLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			res, err := s.cfg.Regenerator.Run(ctx)
			if err != nil {
				s.logger.Error("regeneration failed", "error", err)
				continue
			}
			s.logger.Info("regenerated content types",
				"state", res.State,
				"components", res.Components,
				"unchanged", res.Unchanged)
		}
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		// the route pattern keeps the secret out of the log
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"statusCode": status, "statusMessage": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
