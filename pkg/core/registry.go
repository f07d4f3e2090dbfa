package core

import "sort"

// Registry is a read-only snapshot of a space's schema, fetched once per generation run.
// The type compiler only reads from it; nothing mutates a Registry after NewRegistry.
type Registry struct {
	// Components are sorted by name.
	Components  []Component
	Groups      []ComponentGroup
	Datasources []Datasource
	// Entries holds the datasource entries keyed by datasource slug.
	// A slug that failed to fetch maps to an empty slice.
	Entries map[string][]DatasourceEntry

	byName map[string]int
}

// NewRegistry builds a snapshot. Inputs are copied; components are ordered by name so
// every consumer iterates them deterministically.
func NewRegistry(components []Component, groups []ComponentGroup, datasources []Datasource, entries map[string][]DatasourceEntry) *Registry {
	r := &Registry{
		Components:  append([]Component(nil), components...),
		Groups:      append([]ComponentGroup(nil), groups...),
		Datasources: append([]Datasource(nil), datasources...),
		Entries:     make(map[string][]DatasourceEntry, len(entries)),
		byName:      make(map[string]int, len(components)),
	}

	sort.SliceStable(r.Components, func(i, j int) bool {
		return r.Components[i].Name < r.Components[j].Name
	})
	for i := range r.Components {
		if _, dup := r.byName[r.Components[i].Name]; !dup {
			r.byName[r.Components[i].Name] = i
		}
	}

	sort.SliceStable(r.Groups, func(i, j int) bool { return r.Groups[i].Name < r.Groups[j].Name })
	sort.SliceStable(r.Datasources, func(i, j int) bool { return r.Datasources[i].Slug < r.Datasources[j].Slug })

	for slug, list := range entries {
		r.Entries[slug] = append([]DatasourceEntry(nil), list...)
	}

	return r
}

// Component returns the component with the given name.
func (r *Registry) Component(name string) (*Component, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return &r.Components[i], true
}

// HasDatasource reports whether the slug names a fetched datasource.
func (r *Registry) HasDatasource(slug string) bool {
	_, ok := r.Entries[slug]
	return ok
}

// DatasourceValues returns the entry values of a datasource in fetch order.
// It returns nil when the slug is unknown or the datasource has no entries.
func (r *Registry) DatasourceValues(slug string) []string {
	list := r.Entries[slug]
	if len(list) == 0 {
		return nil
	}
	values := make([]string, 0, len(list))
	for _, e := range list {
		values = append(values, e.Value)
	}
	return values
}

// GroupDescendants returns the given group UUIDs plus the UUIDs of every group nested
// below them. Parent cycles in the fetched data terminate instead of looping.
func (r *Registry) GroupDescendants(uuids ...string) map[string]bool {
	children := make(map[string][]string, len(r.Groups))
	for _, g := range r.Groups {
		if g.ParentUUID != "" {
			children[g.ParentUUID] = append(children[g.ParentUUID], g.UUID)
		}
	}

	seen := make(map[string]bool, len(uuids))
	queue := append([]string(nil), uuids...)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		queue = append(queue, children[u]...)
	}
	return seen
}
