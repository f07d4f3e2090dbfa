package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sbtypegen/internal/pipeline"
	"github.com/leapstack-labs/sbtypegen/internal/testutil"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

const validBody = `{"text": "The user published the story Home", "action": "published", "space_id": 1, "story_id": 42, "full_slug": "home", "user_id": 7}`

type buildHook struct {
	calls atomic.Int32
	srv   *httptest.Server
}

func newBuildHook(t *testing.T, status int, body string) *buildHook {
	t.Helper()
	h := &buildHook{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		h.calls.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestHandleWebhook(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		path       string
		body       string
		wantStatus int
		wantMsg    string
		wantCalls  int32
	}{
		{name: "secret route", secret: "s3cret", path: "/webhook/s3cret", body: validBody, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "open route without secret", path: "/webhook", body: validBody, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "wrong secret", secret: "s3cret", path: "/webhook/nope", body: validBody, wantStatus: http.StatusForbidden, wantMsg: "Invalid secret"},
		{name: "open route with secret configured", secret: "s3cret", path: "/webhook", body: validBody, wantStatus: http.StatusForbidden, wantMsg: "Invalid secret"},
		{name: "secret route without secret configured", path: "/webhook/anything", body: validBody, wantStatus: http.StatusForbidden, wantMsg: "Invalid secret"},
		{name: "malformed json", path: "/webhook", body: `{"text":`, wantStatus: http.StatusBadRequest, wantMsg: "malformed JSON"},
		{name: "missing fields", path: "/webhook", body: `{"text": "x", "action": "published"}`, wantStatus: http.StatusBadRequest, wantMsg: "missing space_id, story_id, full_slug"},
		{name: "unknown action", path: "/webhook", body: strings.Replace(validBody, `"published"`, `"archived"`, 1), wantStatus: http.StatusBadRequest, wantMsg: `action "archived"`},
		{name: "wrong type", path: "/webhook", body: strings.Replace(validBody, `"story_id": 42`, `"story_id": "42"`, 1), wantStatus: http.StatusBadRequest, wantMsg: "story_id: wrong type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook := newBuildHook(t, http.StatusOK, `{"ok": true}`)
			s := NewServer(Config{Secret: tt.secret, BuildHookURL: hook.srv.URL, Logger: testutil.NewTestLogger(t)})

			rec, body := post(t, s.Handler(), tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, hook.calls.Load())
			if tt.wantMsg != "" {
				assert.Contains(t, body["statusMessage"], tt.wantMsg)
			}
		})
	}
}

func TestHandleWebhook_SuccessBody(t *testing.T) {
	hook := newBuildHook(t, http.StatusOK, "")
	s := NewServer(Config{BuildHookURL: hook.srv.URL})

	rec, body := post(t, s.Handler(), "/webhook", validBody)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Success", body["message"])
	assert.Equal(t, "Success", body["buildHook"])
	assert.NotContains(t, body, "regeneration")
	assert.Equal(t, map[string]any{
		"text":      "The user published the story Home",
		"action":    "published",
		"space_id":  float64(1),
		"story_id":  float64(42),
		"full_slug": "home",
	}, body["storyblokWebhook"])
}

func TestHandleWebhook_BuildHookErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := NewServer(Config{})
		rec, body := post(t, s.Handler(), "/webhook", validBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Build hook URL not configured", body["statusMessage"])
	})

	t.Run("hook fails", func(t *testing.T) {
		hook := newBuildHook(t, http.StatusServiceUnavailable, "down")
		s := NewServer(Config{BuildHookURL: hook.srv.URL})
		rec, _ := post(t, s.Handler(), "/webhook", validBody)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, int32(1), hook.calls.Load())
	})
}

func TestHealthz(t *testing.T) {
	s := NewServer(Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type fakeRegenerator struct {
	runs chan struct{}
}

func (f *fakeRegenerator) Run(_ context.Context) (*pipeline.Result, error) {
	f.runs <- struct{}{}
	return &pipeline.Result{State: core.RunStateDone}, nil
}

func TestServeListener_Regenerates(t *testing.T) {
	hook := newBuildHook(t, http.StatusOK, "")
	regen := &fakeRegenerator{runs: make(chan struct{}, 4)}
	s := NewServer(Config{BuildHookURL: hook.srv.URL, Regenerator: regen, Logger: testutil.NewTestLogger(t)})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	url := fmt.Sprintf("http://%s/webhook", ln.Addr().String())
	resp, err := http.Post(url, "application/json", strings.NewReader(validBody)) //nolint:noctx
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "queued", body["regeneration"])

	select {
	case <-regen.runs:
	case <-time.After(5 * time.Second):
		t.Fatal("regeneration did not run")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestQueueRegeneration_Coalesces(t *testing.T) {
	s := NewServer(Config{Regenerator: &fakeRegenerator{}})
	for range 5 {
		assert.True(t, s.queueRegeneration())
	}
	assert.Len(t, s.trigger, 1)

	assert.False(t, NewServer(Config{}).queueRegeneration())
}
