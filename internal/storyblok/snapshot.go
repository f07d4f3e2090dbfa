package storyblok

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

// Snapshot fetches the full registry of the space.
//
// Failing to list components or datasources is fatal. Entries are fetched with one
// request per datasource after the list is known; a datasource whose entries fail
// degrades to an empty set and a WarnFetch warning without cancelling the others.
func (c *Client) Snapshot(ctx context.Context, diags *core.Diagnostics) (*core.Registry, error) {
	components, groups, err := c.FetchComponents(ctx)
	if err != nil {
		return nil, err
	}

	datasources, err := c.FetchDatasources(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([][]core.DatasourceEntry, len(datasources))
	failures := make([]error, len(datasources))

	// Entry failures are recorded per datasource and never cancel siblings.
	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, ds := range datasources {
		g.Go(func() error {
			list, err := c.FetchDatasourceEntries(ctx, ds.ID)
			if err != nil {
				failures[i] = err
				entries[i] = []core.DatasourceEntry{}
				return nil
			}
			entries[i] = list
			return nil
		})
	}
	_ = g.Wait()

	bySlug := make(map[string][]core.DatasourceEntry, len(datasources))
	for i, ds := range datasources {
		bySlug[ds.Slug] = entries[i]
		if failures[i] != nil {
			c.logger.Warn("datasource entries unavailable", "datasource", ds.Slug, "error", failures[i])
			if diags != nil {
				diags.Add(core.Warning{
					Kind:    core.WarnFetch,
					Message: fmt.Sprintf("entries of datasource %q could not be fetched: %v", ds.Slug, failures[i]),
				})
			}
		}
	}

	c.logger.Info("fetched schema registry",
		"space_id", c.spaceID,
		"components", len(components),
		"groups", len(groups),
		"datasources", len(datasources))

	return core.NewRegistry(components, groups, datasources, bySlug), nil
}
