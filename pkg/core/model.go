package core

import "sort"

// ComponentGroup is a folder in the component registry.
// Groups nest through ParentUUID and are only used to resolve group restrictions.
type ComponentGroup struct {
	ID         int
	Name       string
	UUID       string
	ParentID   int
	ParentUUID string
}

// Component is a named, schema-defined content block type.
type Component struct {
	ID          int
	Name        string
	DisplayName string
	// IsNestable distinguishes reusable blocks from top-level content types.
	IsNestable bool
	IsRoot     bool
	GroupUUID  string
	// TagIDs is sorted and free of duplicates.
	TagIDs []int
	// Fields are ordered by schema position, then by name.
	Fields []FieldSchema
}

// HasTag reports whether the component carries the given internal tag.
func (c *Component) HasTag(id int) bool {
	i := sort.SearchInts(c.TagIDs, id)
	return i < len(c.TagIDs) && c.TagIDs[i] == id
}

// IsContentType reports whether the component can be used as a standalone story.
func (c *Component) IsContentType() bool {
	return !c.IsNestable
}

// sortFields orders fields by position, falling back to name for equal positions.
func sortFields(fields []FieldSchema) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Pos != fields[j].Pos {
			return fields[i].Pos < fields[j].Pos
		}
		return fields[i].Name < fields[j].Name
	})
}

// normalizeTags sorts and deduplicates tag ids in place.
func normalizeTags(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	sort.Ints(ids)
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
