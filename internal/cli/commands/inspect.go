package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sbtypegen/internal/cli/output"
	"github.com/leapstack-labs/sbtypegen/internal/naming"
	"github.com/leapstack-labs/sbtypegen/internal/storyblok"
	"github.com/leapstack-labs/sbtypegen/internal/typemap"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
	"github.com/leapstack-labs/sbtypegen/pkg/tsdecl"
)

// ComponentInfo is one row of the inspect listing.
type ComponentInfo struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	Kind     string `json:"kind"`
	Group    string `json:"group,omitempty"`
	Fields   int    `json:"fields"`
}

// FieldInfo is one row of the inspect detail view.
type FieldInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Type string `json:"type,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [component]",
		Short: "Show the components of the Storyblok space",
		Long: `Fetch the component schema and list every component with its generated
type name. With a component name, list its fields and their TypeScript types.`,
		Example: `  # List all components
  sbtypegen inspect

  # Show the fields of one component
  sbtypegen inspect page

  # Machine-readable listing
  sbtypegen inspect -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args)
		},
	}
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if !cc.Cfg.HasManagementToken() {
		return fmt.Errorf("%w: set storyblok.oauth_token or SBTYPEGEN_STORYBLOK__OAUTH_TOKEN", core.ErrMissingCredentials)
	}

	clientCfg := cc.Cfg.StoryblokClientConfig()
	clientCfg.Logger = cc.Logger
	client, err := storyblok.NewClient(clientCfg)
	if err != nil {
		return err
	}
	client, err = client.BindSpace(cmd.Context())
	if err != nil {
		return err
	}

	diags := &core.Diagnostics{}
	registry, err := client.Snapshot(cmd.Context(), diags)
	if err != nil {
		return err
	}
	for _, w := range diags.Warnings() {
		cc.Renderer.Warning(formatWarning(w))
	}

	names := naming.NewResolver(cc.Cfg.TypePrefix)
	if len(args) == 1 {
		comp, ok := registry.Component(args[0])
		if !ok {
			return fmt.Errorf("component %q not found in space %s", args[0], client.SpaceID())
		}
		return renderFields(cc.Renderer, comp, describeFields(registry, names, comp))
	}
	return renderComponents(cc.Renderer, describeComponents(registry, names))
}

// describeComponents lists the registry's components in name order.
func describeComponents(reg *core.Registry, names *naming.Resolver) []ComponentInfo {
	groups := make(map[string]string, len(reg.Groups))
	for _, g := range reg.Groups {
		groups[g.UUID] = g.Name
	}

	infos := make([]ComponentInfo, 0, len(reg.Components))
	for i := range reg.Components {
		c := &reg.Components[i]
		kind := "nestable"
		if c.IsContentType() {
			kind = "content type"
		}
		infos = append(infos, ComponentInfo{
			Name:     c.Name,
			TypeName: names.TypeName(c.Name),
			Kind:     kind,
			Group:    groups[c.GroupUUID],
			Fields:   len(c.Fields),
		})
	}
	return infos
}

// describeFields maps every field of a component. Fields without a property
// keep an empty type.
func describeFields(reg *core.Registry, names *naming.Resolver, comp *core.Component) []FieldInfo {
	mapper := typemap.New(reg, names, &core.Diagnostics{})
	infos := make([]FieldInfo, 0, len(comp.Fields))
	for _, f := range comp.Fields {
		info := FieldInfo{Name: f.Name, Kind: f.Kind.String()}
		if expr, ok := mapper.MapField(comp.Name, f); ok {
			info.Type = tsdecl.FormatType(expr)
		}
		infos = append(infos, info)
	}
	return infos
}

func renderComponents(r *output.Renderer, infos []ComponentInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(2, fmt.Sprintf("Components (%d)", len(infos)))
	rows := make([][]string, 0, len(infos))
	for _, c := range infos {
		rows = append(rows, []string{c.Name, c.TypeName, c.Kind, c.Group, strconv.Itoa(c.Fields)})
	}
	r.Table([]string{"Component", "Type", "Kind", "Group", "Fields"}, rows)
	return nil
}

func renderFields(r *output.Renderer, comp *core.Component, infos []FieldInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(2, comp.Name)
	rows := make([][]string, 0, len(infos))
	for _, f := range infos {
		typ := f.Type
		if typ == "" {
			typ = "(no property)"
		}
		rows = append(rows, []string{f.Name, f.Kind, typ})
	}
	r.Table([]string{"Field", "Kind", "TypeScript"}, rows)
	return nil
}
