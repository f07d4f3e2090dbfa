package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sbtypegen/internal/naming"
	"github.com/leapstack-labs/sbtypegen/pkg/core"
)

func imageAndPage() *core.Registry {
	return core.NewRegistry([]core.Component{
		{
			Name: "page",
			Fields: []core.FieldSchema{
				{Name: "body", Kind: core.FieldBlocks},
				{Name: "tab", Kind: core.FieldSection},
			},
		},
		{
			Name:       "image",
			IsNestable: true,
			Fields:     []core.FieldSchema{{Name: "image", Kind: core.FieldAsset}},
		},
	}, nil, nil, nil)
}

const imageAndPageOutput = `import type { SbComponent, SbImage } from './storyblok.components.base'

export type SbComponentNames =
  | 'image'
  | 'page'

export type SbComponents =
  | SbComponentImage
  | SbComponentPage

export type SbNestableComponentNames = 'image'

export type SbNestableComponents = SbComponentImage

export type SbContentTypeComponentNames = 'page'

export type SbContentTypeComponents = SbComponentPage

export type SbComponentImage = SbComponent<'image', {
  image: SbImage
}>

export type SbComponentPage = SbComponent<'page', {
  body: (SbComponentImage | SbComponentPage)[]
}>
`

func TestRender_ImageAndPage(t *testing.T) {
	var diags core.Diagnostics
	got, err := New(Config{}).Render(imageAndPage(), &diags)
	require.NoError(t, err)
	assert.Equal(t, imageAndPageOutput, got)
	assert.Zero(t, diags.Len())
}

func TestRender_Idempotent(t *testing.T) {
	e := New(Config{})
	first, err := e.Render(imageAndPage(), nil)
	require.NoError(t, err)

	for range 5 {
		again, err := e.Render(imageAndPage(), nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRender_EmptyRegistry(t *testing.T) {
	got, err := New(Config{}).Render(core.NewRegistry(nil, nil, nil, nil), nil)
	require.NoError(t, err)

	assert.Equal(t, `import type { SbComponent } from './storyblok.components.base'

export type SbComponentNames = never

export type SbComponents = never

export type SbNestableComponentNames = never

export type SbNestableComponents = never

export type SbContentTypeComponentNames = never

export type SbContentTypeComponents = never
`, got)
}

func TestRender_CustomConfig(t *testing.T) {
	reg := core.NewRegistry([]core.Component{
		{Name: "hero", Fields: []core.FieldSchema{{Name: "data-id", Kind: core.FieldText}}},
		{Name: "empty"},
	}, nil, nil, nil)

	e := New(Config{ComponentTag: "Block", BaseModule: "~/types/base", Names: naming.NewResolver("Cms")})
	got, err := e.Render(reg, nil)
	require.NoError(t, err)

	assert.Contains(t, got, "import type { Block } from '~/types/base'\n")
	assert.Contains(t, got, "export type CmsHero = Block<'hero', {\n  'data-id': string\n}>\n")
	assert.Contains(t, got, "export type CmsEmpty = Block<'empty', {}>\n")
	assert.Contains(t, got, "export type SbContentTypeComponents =\n  | CmsEmpty\n  | CmsHero\n")
}

func TestEmit_FieldOrderFollowsSchema(t *testing.T) {
	reg := core.NewRegistry([]core.Component{{
		Name: "teaser",
		Fields: []core.FieldSchema{
			{Name: "title", Kind: core.FieldText},
			{Name: "active", Kind: core.FieldBoolean},
			{Name: "link", Kind: core.FieldMultiLink},
		},
	}}, nil, nil, nil)

	unit, err := New(Config{}).Emit(reg, nil)
	require.NoError(t, err)

	decl, ok := unit.Declaration("SbComponentTeaser")
	require.True(t, ok)
	assert.True(t, decl.Exported)
	assert.Equal(t, "type SbComponentTeaser = SbComponent<'teaser', {\n  title: string\n  active: boolean\n  link: SbLink\n}>", decl.Body)

	require.Len(t, unit.Imports, 1)
	assert.True(t, unit.Imports[0].TypeOnly)
	var imported []string
	for _, s := range unit.Imports[0].Specs {
		imported = append(imported, s.Name)
	}
	assert.Equal(t, []string{"SbComponent", "SbLink"}, imported)
}

func TestEmit_Collisions(t *testing.T) {
	tests := []struct {
		name       string
		components []string
		prefix     string
		reserved   []string
		wantName   string
	}{
		{
			name:       "component resolves to an index union name",
			components: []string{"names"},
			wantName:   "SbComponentNames",
		},
		{
			name:       "two components resolve to the same name",
			components: []string{"link_internal", "link-internal"},
			wantName:   "SbComponentLinkInternal",
		},
		{
			name:       "component shadows an imported base type",
			components: []string{"image", "gallery"},
			prefix:     "Sb",
			wantName:   "SbImage",
		},
		{
			name:       "component shadows a base declaration",
			components: []string{"type"},
			reserved:   []string{"SbComponentType", "SbComponent", "SbImage"},
			wantName:   "SbComponentType",
		},
		{
			name:       "component shadows a base type the unit does not import",
			components: []string{"link"},
			prefix:     "Sb",
			reserved:   []string{"SbLink", "SbImage"},
			wantName:   "SbLink",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var components []core.Component
			for _, name := range tt.components {
				components = append(components, core.Component{
					Name:   name,
					Fields: []core.FieldSchema{{Name: "pic", Kind: core.FieldAsset}},
				})
			}

			em := New(Config{Names: naming.NewResolver(tt.prefix), Reserved: tt.reserved})
			_, err := em.Emit(core.NewRegistry(components, nil, nil, nil), nil)
			var collision *core.NameCollisionError
			require.ErrorAs(t, err, &collision)
			assert.Equal(t, tt.wantName, collision.Name)
			assert.Len(t, collision.Sources, 2)
		})
	}
}

func TestEmit_ImportedBaseNamesAreNotCollisions(t *testing.T) {
	reg := core.NewRegistry([]core.Component{
		{Name: "image", Fields: []core.FieldSchema{{Name: "pic", Kind: core.FieldAsset}}},
	}, nil, nil, nil)

	em := New(Config{Reserved: []string{"SbComponent", "SbImage", "SbImage", "SbLink"}})
	unit, err := em.Emit(reg, nil)
	require.NoError(t, err)
	_, ok := unit.Declaration("SbComponentImage")
	assert.True(t, ok)
}

func TestEmit_WarningsReachDiagnostics(t *testing.T) {
	reg := core.NewRegistry([]core.Component{{
		Name: "page",
		Fields: []core.FieldSchema{
			{Name: "geo", Kind: core.FieldUnknown, RawType: "plugin"},
			{Name: "color", Kind: core.FieldOption, DatasourceSlug: "colors"},
		},
	}}, nil, nil, nil)

	var diags core.Diagnostics
	got, err := New(Config{}).Render(reg, &diags)
	require.NoError(t, err)

	assert.Contains(t, got, "  geo: unknown\n  color: string\n")
	warnings := diags.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, core.WarnUnknownField, warnings[0].Kind)
	assert.Equal(t, core.WarnEmptyDatasource, warnings[1].Kind)
}
