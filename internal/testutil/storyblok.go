package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// FakeDatasource is a datasource served by FakeSpace.
type FakeDatasource struct {
	ID      int
	Slug    string
	Name    string
	Entries []string // entry values; names mirror values
	// Fail makes the entries endpoint of this datasource answer 500.
	Fail bool
}

// FakeSpace is an in-memory Storyblok space served over HTTP. It implements the
// management endpoints used by the schema client and the `cdn/spaces/me` lookup.
type FakeSpace struct {
	SpaceID     int
	OAuthToken  string
	AccessToken string

	// Components holds raw component records as returned by the management API.
	Components  []json.RawMessage
	Groups      []json.RawMessage
	Datasources []FakeDatasource

	// ComponentsStatus forces a status code on the components endpoint when non-zero.
	ComponentsStatus int
	// PageSize is the page size used for datasource pagination; zero honours per_page.
	PageSize int

	mu       sync.Mutex
	requests map[string]int
}

// NewFakeSpace returns an empty space with id 1 and fixed tokens.
func NewFakeSpace() *FakeSpace {
	return &FakeSpace{
		SpaceID:     1,
		OAuthToken:  "oauth-token",
		AccessToken: "access-token",
		requests:    make(map[string]int),
	}
}

// AddComponent adds a component built from its name, nestable flag and a schema
// given as a JSON object literal.
func (f *FakeSpace) AddComponent(name string, nestable bool, schema string) {
	f.AddComponentJSON(fmt.Sprintf(`{"id": %d, "name": %q, "is_nestable": %t, "is_root": %t, "schema": %s}`,
		len(f.Components)+1, name, nestable, !nestable, schema))
}

// AddComponentJSON adds a raw component record.
func (f *FakeSpace) AddComponentJSON(raw string) {
	f.Components = append(f.Components, json.RawMessage(raw))
}

// Start serves the space until the test ends and returns the base URL.
func (f *FakeSpace) Start(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(f.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// Requests returns how many requests hit the named route
// ("components", "datasources", "datasource_entries", "space").
func (f *FakeSpace) Requests(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[route]
}

// Handler returns the HTTP handler of the fake API.
func (f *FakeSpace) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/v1/spaces/{space}", func(r chi.Router) {
		r.Use(f.requireOAuth)
		r.Get("/components", f.handleComponents)
		r.Get("/datasources", f.handleDatasources)
		r.Get("/datasource_entries", f.handleEntries)
	})
	r.Get("/v2/cdn/spaces/me", f.handleSpace)

	return r
}

func (f *FakeSpace) count(route string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requests == nil {
		f.requests = make(map[string]int)
	}
	f.requests[route]++
}

func (f *FakeSpace) requireOAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != f.OAuthToken {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if chi.URLParam(r, "space") != strconv.Itoa(f.SpaceID) {
			http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeSpace) handleComponents(w http.ResponseWriter, _ *http.Request) {
	f.count("components")
	if f.ComponentsStatus != 0 {
		http.Error(w, `{"error":"forced"}`, f.ComponentsStatus)
		return
	}

	components := f.Components
	if components == nil {
		components = []json.RawMessage{}
	}
	groups := f.Groups
	if groups == nil {
		groups = []json.RawMessage{}
	}
	writeJSON(w, map[string]any{"components": components, "component_groups": groups})
}

func (f *FakeSpace) handleDatasources(w http.ResponseWriter, r *http.Request) {
	f.count("datasources")

	items := make([]map[string]any, 0, len(f.Datasources))
	for _, ds := range f.Datasources {
		items = append(items, map[string]any{"id": ds.ID, "slug": ds.Slug, "name": ds.Name})
	}
	page := f.page(w, r, len(items))
	writeJSON(w, map[string]any{"datasources": items[page.start:page.end]})
}

func (f *FakeSpace) handleEntries(w http.ResponseWriter, r *http.Request) {
	f.count("datasource_entries")

	id, _ := strconv.Atoi(r.URL.Query().Get("datasource_id"))
	for _, ds := range f.Datasources {
		if ds.ID != id {
			continue
		}
		if ds.Fail {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		items := make([]map[string]any, 0, len(ds.Entries))
		for i, v := range ds.Entries {
			items = append(items, map[string]any{"id": i + 1, "name": v, "value": v})
		}
		page := f.page(w, r, len(items))
		writeJSON(w, map[string]any{"datasource_entries": items[page.start:page.end]})
		return
	}
	http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
}

func (f *FakeSpace) handleSpace(w http.ResponseWriter, r *http.Request) {
	f.count("space")
	if r.URL.Query().Get("token") != f.AccessToken {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{"space": map[string]any{
		"id":             f.SpaceID,
		"name":           "Fake space",
		"domain":         "https://example.com/",
		"language_codes": []string{"de"},
	}})
}

type pageBounds struct{ start, end int }

// page applies page/per_page and sets the Total header.
func (f *FakeSpace) page(w http.ResponseWriter, r *http.Request, total int) pageBounds {
	size := f.PageSize
	if size <= 0 {
		size, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	}
	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if n < 1 {
		n = 1
	}
	if size <= 0 {
		size = total
	}

	w.Header().Set("Total", strconv.Itoa(total))
	start := min((n-1)*size, total)
	return pageBounds{start: start, end: min(start+size, total)}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
