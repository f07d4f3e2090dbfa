// Package storyblok is the schema client for the Storyblok management API.
//
// A Client is short-lived: the pipeline creates one per generation run, and its
// response cache lives and dies with it.
package storyblok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

// ErrMissingSpace is returned by management calls when no space id is known.
var ErrMissingSpace = errors.New("storyblok space id is not configured")

const (
	defaultCacheSize = 256
	defaultTimeout   = 30 * time.Second
	// perPage is the page size requested from paginated endpoints.
	perPage = 100
	// maxErrorBody bounds how much of an error response ends up in a FetchError.
	maxErrorBody = 512
)

// Config holds the client configuration.
type Config struct {
	// OAuthToken is the personal access token for the management API.
	OAuthToken string
	// AccessToken is the content delivery token, used for the space lookup.
	AccessToken string
	SpaceID     string
	Region      Region
	// BaseURL replaces the region hosts for both APIs (tests, proxies).
	BaseURL    string
	HTTPClient *http.Client
	// CacheSize bounds the per-run response cache.
	CacheSize int
	// Concurrency limits parallel datasource entry fetches; zero means one request
	// per datasource, all at once.
	Concurrency int
	Logger      *slog.Logger
}

// Client fetches the component and datasource registries of one space.
type Client struct {
	http        *http.Client
	oauthToken  string
	accessToken string
	spaceID     string
	mapiBase    string
	cdnBase     string
	concurrency int
	cache       *lru.Cache[string, cachedResponse]
	logger      *slog.Logger
}

type cachedResponse struct {
	body  []byte
	total int
}

// NewClient creates a client for the configured region.
func NewClient(cfg Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = RegionEU
	}
	if !region.Valid() {
		return nil, fmt.Errorf("unknown storyblok region %q", region)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, cachedResponse](size)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mapiBase, cdnBase := region.ManagementURL(), region.ContentURL()
	if cfg.BaseURL != "" {
		base := strings.TrimRight(cfg.BaseURL, "/")
		mapiBase, cdnBase = base+"/v1", base+"/v2"
	}

	return &Client{
		http:        httpClient,
		oauthToken:  cfg.OAuthToken,
		accessToken: cfg.AccessToken,
		spaceID:     cfg.SpaceID,
		mapiBase:    mapiBase,
		cdnBase:     cdnBase,
		concurrency: cfg.Concurrency,
		cache:       cache,
		logger:      logger,
	}, nil
}

// ForSpace returns a client bound to another space. The response cache is shared.
func (c *Client) ForSpace(spaceID string) *Client {
	clone := *c
	clone.spaceID = spaceID
	return &clone
}

// SpaceID returns the space the client is bound to.
func (c *Client) SpaceID() string {
	return c.spaceID
}

// =============================================================================
// Management API
// =============================================================================

type componentsResponse struct {
	Components      []core.Component      `json:"components"`
	ComponentGroups []core.ComponentGroup `json:"component_groups"`
}

type datasourcesResponse struct {
	Datasources []core.Datasource `json:"datasources"`
}

type datasourceEntriesResponse struct {
	DatasourceEntries []core.DatasourceEntry `json:"datasource_entries"`
}

// FetchComponents returns every component of the space together with the
// component groups (folders) delivered in the same response.
func (c *Client) FetchComponents(ctx context.Context) ([]core.Component, []core.ComponentGroup, error) {
	endpoint, err := c.spaceURL("components", nil)
	if err != nil {
		return nil, nil, err
	}

	var resp componentsResponse
	if _, err := c.getJSON(ctx, "components", endpoint, true, &resp); err != nil {
		return nil, nil, err
	}

	c.logger.Debug("fetched components", "components", len(resp.Components), "groups", len(resp.ComponentGroups))
	return resp.Components, resp.ComponentGroups, nil
}

// FetchDatasources returns every datasource of the space, following pagination.
func (c *Client) FetchDatasources(ctx context.Context) ([]core.Datasource, error) {
	var all []core.Datasource
	err := c.paginate(ctx, "datasources", nil, func(body []byte) (int, error) {
		var resp datasourcesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return 0, err
		}
		all = append(all, resp.Datasources...)
		return len(resp.Datasources), nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched datasources", "count", len(all))
	return all, nil
}

// FetchDatasourceEntries returns the entries of one datasource, following pagination.
func (c *Client) FetchDatasourceEntries(ctx context.Context, datasourceID int) ([]core.DatasourceEntry, error) {
	params := url.Values{"datasource_id": {strconv.Itoa(datasourceID)}}

	all := []core.DatasourceEntry{}
	err := c.paginate(ctx, "datasource_entries", params, func(body []byte) (int, error) {
		var resp datasourceEntriesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return 0, err
		}
		for _, e := range resp.DatasourceEntries {
			e.DatasourceID = datasourceID
			all = append(all, e)
		}
		return len(resp.DatasourceEntries), nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// paginate walks the pages of a list endpoint. page decodes one body and returns
// the number of items it held.
func (c *Client) paginate(ctx context.Context, op string, params url.Values, page func(body []byte) (int, error)) error {
	seen := 0
	for n := 1; ; n++ {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(n))
		q.Set("per_page", strconv.Itoa(perPage))

		endpoint, err := c.spaceURL(op, q)
		if err != nil {
			return err
		}

		resp, err := c.get(ctx, op, endpoint, true)
		if err != nil {
			return err
		}
		count, err := page(resp.body)
		if err != nil {
			return &core.FetchError{Op: op, URL: endpoint, Err: fmt.Errorf("decoding response: %w", err)}
		}
		seen += count

		switch {
		case count == 0:
			return nil
		case resp.total > 0 && seen >= resp.total:
			return nil
		case resp.total == 0 && count < perPage:
			// without a Total header a short page is the last one
			return nil
		}
	}
}

func (c *Client) spaceURL(path string, q url.Values) (string, error) {
	if c.spaceID == "" {
		return "", ErrMissingSpace
	}
	u := c.mapiBase + "/spaces/" + url.PathEscape(c.spaceID) + "/" + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u, nil
}

// =============================================================================
// Content delivery API
// =============================================================================

// Space is the subset of `cdn/spaces/me` the generator uses.
type Space struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Domain        string   `json:"domain"`
	LanguageCodes []string `json:"language_codes"`
}

// ResolveSpace looks up the space that owns the access token.
func (c *Client) ResolveSpace(ctx context.Context) (*Space, error) {
	if c.accessToken == "" {
		return nil, core.ErrMissingCredentials
	}

	q := url.Values{"token": {c.accessToken}, "version": {"published"}}
	endpoint := c.cdnBase + "/cdn/spaces/me?" + q.Encode()

	var resp struct {
		Space Space `json:"space"`
	}
	if _, err := c.getJSON(ctx, "space", endpoint, false, &resp); err != nil {
		return nil, err
	}
	if resp.Space.ID == 0 {
		return nil, &core.FetchError{Op: "space", URL: redact(endpoint), Err: errors.New("response has no space id")}
	}

	c.logger.Debug("resolved space", "space_id", resp.Space.ID, "languages", resp.Space.LanguageCodes)
	return &resp.Space, nil
}

// BindSpace returns c when it already has a space, otherwise a client bound to
// the space resolved from the access token.
func (c *Client) BindSpace(ctx context.Context) (*Client, error) {
	if c.spaceID != "" {
		return c, nil
	}
	space, err := c.ResolveSpace(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving space: %w", err)
	}
	c.logger.Info("resolved space", "space_id", space.ID, "name", space.Name)
	return c.ForSpace(strconv.Itoa(space.ID)), nil
}

// =============================================================================
// Transport
// =============================================================================

func (c *Client) getJSON(ctx context.Context, op, endpoint string, management bool, out any) (cachedResponse, error) {
	resp, err := c.get(ctx, op, endpoint, management)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return resp, &core.FetchError{Op: op, URL: redact(endpoint), Err: fmt.Errorf("decoding response: %w", err)}
	}
	return resp, nil
}

// get performs a GET request, serving repeated requests from the response cache.
func (c *Client) get(ctx context.Context, op, endpoint string, management bool) (cachedResponse, error) {
	if cached, ok := c.cache.Get(endpoint); ok {
		return cached, nil
	}

	if management && c.oauthToken == "" {
		return cachedResponse{}, core.ErrMissingCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return cachedResponse{}, &core.FetchError{Op: op, URL: redact(endpoint), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if management {
		req.Header.Set("Authorization", c.oauthToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return cachedResponse{}, &core.FetchError{Op: op, URL: redact(endpoint), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return cachedResponse{}, &core.FetchError{
			Op:         op,
			URL:        redact(endpoint),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(excerpt))),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cachedResponse{}, &core.FetchError{Op: op, URL: redact(endpoint), Err: fmt.Errorf("reading response: %w", err)}
	}

	total, _ := strconv.Atoi(resp.Header.Get("Total"))
	result := cachedResponse{body: body, total: total}
	c.cache.Add(endpoint, result)

	c.logger.Debug("storyblok request", "op", op, "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start))
	return result, nil
}

// redact removes tokens from URLs that end up in errors and logs.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
