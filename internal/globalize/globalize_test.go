package globalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sbtypegen/internal/testutil"
	"github.com/leapstack-labs/sbtypegen/pkg/tsdecl"
)

const baseTypes = `import type { ISbComponentType, ISbStoryData, ISbLinkURLObject } from 'storyblok-js-client'

export type SbComponentType = ISbComponentType
export type SbStoryData = ISbStoryData

/** An image asset. */
export type SbImage = {
  id: number
  alt: string
}

export interface ISbStory<Content = SbComponentType<string>> {
  links: (SbStoryData<Content> | ISbLinkURLObject)[]
}

export type SbComponent<
  Name extends string,
  Options extends Record<string, unknown>
> = SbComponentType<Name> & Options
`

func TestTransformSource_BaseTypes(t *testing.T) {
	got, err := TransformSource(baseTypes, "storyblok.components.base.d.ts", Options{})
	require.NoError(t, err)

	want := `import type { ISbLinkURLObject } from 'storyblok-js-client'

declare global {
  export type {
    ISbComponentType as SbComponentType,
    ISbStoryData as SbStoryData,
  } from 'storyblok-js-client'

  /** An image asset. */
  type SbImage = {
    id: number
    alt: string
  }

  interface ISbStory<Content = SbComponentType<string>> {
    links: (SbStoryData<Content> | ISbLinkURLObject)[]
  }

  type SbComponent<
    Name extends string,
    Options extends Record<string, unknown>
  > = SbComponentType<Name> & Options
}
`
	assert.Equal(t, want, got)
}

func TestTransformSource_ReexportOnly(t *testing.T) {
	got, err := TransformSource(`export { X as Y } from "mod"`, "", Options{})
	require.NoError(t, err)

	assert.Equal(t, "export {}\n\ndeclare global {\n  export type {\n    X as Y,\n  } from 'mod'\n}\n", got)
	assert.NotContains(t, got, "import")
	assert.Equal(t, 1, strings.Count(got, "'mod'"))
}

func TestTransformSource_ContentWithoutImports(t *testing.T) {
	content := `export type SbComponentNames = 'page'

export type SbComponentPage = SbComponent<'page', {
  title: string
}>
`
	for _, opts := range []Options{{}, {IgnoreImports: true}} {
		got, err := TransformSource(content, "content.d.ts", opts)
		require.NoError(t, err)
		assert.Equal(t, `export {}

declare global {
  type SbComponentNames = 'page'

  type SbComponentPage = SbComponent<'page', {
    title: string
  }>
}
`, got)
	}
}

func TestTransformSource_KeepsTrailingComments(t *testing.T) {
	content := `export type SbRegion = 'eu' | 'us' // regions we deploy to
export type SbLocale = string
`
	got, err := TransformSource(content, "", Options{})
	require.NoError(t, err)
	assert.Equal(t, `export {}

declare global {
  type SbRegion = 'eu' | 'us' // regions we deploy to

  type SbLocale = string
}
`, got)
}

func TestTransformSource_WarnsAboutDroppedStatements(t *testing.T) {
	content := `namespace N {
  export type Z = string
}
export const version = 1
export type After = N.Z
`
	logger, logs := testutil.NewCaptureLogger()

	got, err := TransformSource(content, "base.d.ts", Options{Logger: logger})
	require.NoError(t, err)
	assert.Contains(t, got, "  type After = N.Z\n")
	assert.NotContains(t, got, "namespace")

	out := logs.String()
	assert.Equal(t, 2, strings.Count(out, "statement dropped from global declarations"))
	assert.Contains(t, out, "keyword=namespace pos=base.d.ts:1:1")
	assert.Contains(t, out, "keyword=export pos=base.d.ts:4:1")
	assert.Contains(t, out, `statement="namespace N {"`)
}

func TestTransformSource_IgnoreImports(t *testing.T) {
	content := `import type { SbComponent, SbImage } from './storyblok.components.base'

export type SbComponentImage = SbComponent<'image', {
  image: SbImage
}>
`
	got, err := TransformSource(content, "", Options{IgnoreImports: true})
	require.NoError(t, err)
	assert.NotContains(t, got, "import")
	assert.True(t, strings.HasPrefix(got, "export {}\n"))

	kept, err := TransformSource(content, "", Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(kept, "import type { SbComponent, SbImage } from './storyblok.components.base'\n\ndeclare global {\n"))
}

func TestTransform_Exports(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []*tsdecl.Export
	}{
		{
			name:  "local export of an import",
			input: "import { A as B } from 'm'\nexport { B as C }\n",
			want:  []*tsdecl.Export{{Module: "m", TypeOnly: true, Specs: []tsdecl.ExportSpec{{Name: "A", Alias: "C"}}}},
		},
		{
			name:  "default import",
			input: "import Client from 'client'\nexport { Client }\n",
			want:  []*tsdecl.Export{{Module: "client", TypeOnly: true, Specs: []tsdecl.ExportSpec{{Name: "default", Alias: "Client"}}}},
		},
		{
			name:  "grouped by module in order of appearance",
			input: "export { a } from 'x'\nexport { b } from 'y'\nexport { c as d } from 'x'\n",
			want: []*tsdecl.Export{
				{Module: "x", TypeOnly: true, Specs: []tsdecl.ExportSpec{{Name: "a", Alias: "a"}, {Name: "c", Alias: "d"}}},
				{Module: "y", TypeOnly: true, Specs: []tsdecl.ExportSpec{{Name: "b", Alias: "b"}}},
			},
		},
		{
			name:  "duplicate re-export collapses",
			input: "export { a } from 'x'\nexport type { a } from 'x'\n",
			want:  []*tsdecl.Export{{Module: "x", TypeOnly: true, Specs: []tsdecl.ExportSpec{{Name: "a", Alias: "a"}}}},
		},
		{
			name:  "exported local declaration",
			input: "type A = string\nexport { A }\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := tsdecl.Parse(tt.input, "")
			require.NoError(t, err)

			block, err := Transform(u, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, block.Exports)
		})
	}
}

func TestTransform_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    Options
		wantMsg string
	}{
		{
			name:    "unresolvable local export",
			input:   "export { Missing as M }",
			wantMsg: "M: export has no declaration or import",
		},
		{
			name:    "import ignored",
			input:   "import { A } from 'm'\nexport { A }\n",
			opts:    Options{IgnoreImports: true},
			wantMsg: "A: export has no declaration or import",
		},
		{
			name:    "star export",
			input:   "export * from 'm'",
			wantMsg: `export * from "m"`,
		},
		{
			name:    "namespace import",
			input:   "import * as NS from 'm'\nexport { NS }\n",
			wantMsg: "namespace import",
		},
		{
			name:    "alias from two modules",
			input:   "export { A } from 'x'\nexport { A } from 'y'\n",
			wantMsg: `exported from both "x" and "y"`,
		},
		{
			name:    "alias shadows declaration",
			input:   "export { A } from 'x'\ntype A = string\n",
			wantMsg: "clashes with a declaration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := tsdecl.Parse(tt.input, "unit.d.ts")
			require.NoError(t, err)

			_, err = Transform(u, tt.opts)
			var transformErr *TransformError
			require.ErrorAs(t, err, &transformErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.True(t, strings.HasPrefix(err.Error(), "unit.d.ts:"), err.Error())
		})
	}
}

func TestTransformSource_ParseError(t *testing.T) {
	_, err := TransformSource("export type A =", "broken.d.ts", Options{})
	var parseErr *tsdecl.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestTransformSource_Idempotent(t *testing.T) {
	first, err := TransformSource(baseTypes, "", Options{})
	require.NoError(t, err)
	second, err := TransformSource(baseTypes, "", Options{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
