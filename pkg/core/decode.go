package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Wire shapes of the management API. Decoding is lenient: unknown field types and
// unexpected scalar encodings never fail a registry fetch.

type wireTag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type wireComponent struct {
	ID                 int                        `json:"id"`
	Name               string                     `json:"name"`
	DisplayName        *string                    `json:"display_name"`
	IsRoot             bool                       `json:"is_root"`
	IsNestable         bool                       `json:"is_nestable"`
	ComponentGroupUUID *string                    `json:"component_group_uuid"`
	Schema             map[string]json.RawMessage `json:"schema"`
	InternalTagsList   []wireTag                  `json:"internal_tags_list"`
	InternalTagIDs     []json.Number              `json:"internal_tag_ids"`
}

type wireOption struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type wireField struct {
	Type                    string        `json:"type"`
	Pos                     int           `json:"pos"`
	Required                bool          `json:"required"`
	DisplayName             string        `json:"display_name"`
	Source                  string        `json:"source"`
	DatasourceSlug          string        `json:"datasource_slug"`
	Options                 []wireOption  `json:"options"`
	RestrictComponents      bool          `json:"restrict_components"`
	RestrictType            string        `json:"restrict_type"`
	ComponentWhitelist      []string      `json:"component_whitelist"`
	ComponentGroupWhitelist []string      `json:"component_group_whitelist"`
	ComponentTagWhitelist   []json.Number `json:"component_tag_whitelist"`
}

type wireGroup struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	UUID       string  `json:"uuid"`
	ParentID   *int    `json:"parent_id"`
	ParentUUID *string `json:"parent_uuid"`
}

// UnmarshalJSON decodes a component record of the management API.
func (c *Component) UnmarshalJSON(data []byte) error {
	var w wireComponent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding component: %w", err)
	}

	*c = Component{
		ID:         w.ID,
		Name:       w.Name,
		IsRoot:     w.IsRoot,
		IsNestable: w.IsNestable,
	}
	if w.DisplayName != nil {
		c.DisplayName = *w.DisplayName
	}
	if w.ComponentGroupUUID != nil {
		c.GroupUUID = *w.ComponentGroupUUID
	}

	var tags []int
	for _, t := range w.InternalTagsList {
		tags = append(tags, t.ID)
	}
	for _, n := range w.InternalTagIDs {
		if id, err := n.Int64(); err == nil {
			tags = append(tags, int(id))
		}
	}
	c.TagIDs = normalizeTags(tags)

	c.Fields = make([]FieldSchema, 0, len(w.Schema))
	for name, raw := range w.Schema {
		var f FieldSchema
		if err := json.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("decoding field %s.%s: %w", w.Name, name, err)
		}
		f.Name = name
		c.Fields = append(c.Fields, f)
	}
	sortFields(c.Fields)

	return nil
}

// UnmarshalJSON decodes a single schema field, discriminated by its "type" tag.
func (f *FieldSchema) UnmarshalJSON(data []byte) error {
	var w wireField
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*f = FieldSchema{
		Kind:        ParseFieldKind(w.Type),
		RawType:     w.Type,
		Pos:         w.Pos,
		Required:    w.Required,
		DisplayName: w.DisplayName,
	}

	switch f.Kind {
	case FieldOption, FieldOptions:
		if w.Source != "self" {
			f.DatasourceSlug = strings.TrimSpace(w.DatasourceSlug)
		}
		for _, o := range w.Options {
			f.Options = append(f.Options, OptionValue{Name: o.Name, Value: scalarString(o.Value)})
		}
	case FieldBlocks:
		f.Restriction = decodeRestriction(&w)
	}

	return nil
}

// UnmarshalJSON decodes a component group (folder).
func (g *ComponentGroup) UnmarshalJSON(data []byte) error {
	var w wireGroup
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding component group: %w", err)
	}
	*g = ComponentGroup{ID: w.ID, Name: w.Name, UUID: w.UUID}
	if w.ParentID != nil {
		g.ParentID = *w.ParentID
	}
	if w.ParentUUID != nil {
		g.ParentUUID = *w.ParentUUID
	}
	return nil
}

func decodeRestriction(w *wireField) Restriction {
	if !w.RestrictComponents {
		return Restriction{Mode: RestrictNone}
	}

	switch w.RestrictType {
	case "groups":
		return Restriction{Mode: RestrictGroup, Groups: append([]string(nil), w.ComponentGroupWhitelist...)}
	case "tags":
		tags := make([]int, 0, len(w.ComponentTagWhitelist))
		for _, n := range w.ComponentTagWhitelist {
			if id, err := n.Int64(); err == nil {
				tags = append(tags, int(id))
			}
		}
		return Restriction{Mode: RestrictTag, Tags: tags}
	default:
		// "" is the whitelist mode; unknown modes keep the whitelist as the narrowest known policy.
		return Restriction{Mode: RestrictWhitelist, Components: append([]string(nil), w.ComponentWhitelist...)}
	}
}

// scalarString renders a JSON scalar as the string the CMS would deliver.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
