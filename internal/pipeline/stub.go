package pipeline

import (
	"github.com/leapstack-labs/sbtypegen/internal/emitter"
	"github.com/leapstack-labs/sbtypegen/pkg/tsdecl"
)

// DegradedMarker heads the stub content file written when the schema could not
// be loaded.
const DegradedMarker = "Types couldn't be loaded from the Storyblok management API."

// stubBlock builds the content declarations used in degraded mode. The index
// unions stay declared, widened to any component, so code referencing them
// still compiles.
func stubBlock(componentTag, reason string) *tsdecl.GlobalBlock {
	anyComponent := &tsdecl.Ref{
		Name: componentTag,
		Args: []tsdecl.TypeExpr{
			tsdecl.String,
			&tsdecl.Ref{Name: "Record", Args: []tsdecl.TypeExpr{tsdecl.String, tsdecl.Unknown}},
		},
	}

	block := &tsdecl.GlobalBlock{Header: []string{DegradedMarker}}
	if reason != "" {
		block.Header = append(block.Header, "Reason: "+reason)
	}
	for _, pair := range [][2]string{
		{emitter.AllNames, emitter.AllTypes},
		{emitter.NestableNames, emitter.NestableTypes},
		{emitter.ContentTypeNames, emitter.ContentTypeTypes},
	} {
		block.Declarations = append(block.Declarations,
			tsdecl.NewTypeAlias(pair[0], tsdecl.String, false),
			tsdecl.NewTypeAlias(pair[1], anyComponent, false),
		)
	}
	return block
}
