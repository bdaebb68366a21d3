package pointnet

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
)

// GeneSpace maps the fixed per-gene coordinates [batch, InK, points] into a learned
// gene space [batch, OutK, points].
type GeneSpace struct {
	InK    int
	OutK   int
	Hidden int
}

// Embed returns the gene-space channels for coords.
func (s GeneSpace) Embed(ctx *context.Context, coords *Node) *Node {
	mustChannels("gene_space", coords, s.InK)
	h := pointwiseBlock(ctx.In("conv1"), coords, s.Hidden)
	return pointwise(ctx.In("conv3"), h, s.OutK)
}

// Forward implements Module: inputs are {coords}, outputs {embedding}.
func (s GeneSpace) Forward(ctx *context.Context, inputs []*Node) []*Node {
	return []*Node{s.Embed(ctx, inputs[0])}
}
