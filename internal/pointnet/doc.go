// Package pointnet implements the point-cloud network that classifies tumor types
// from gene-expression profiles.
//
// Every gene is a point: its channels are the expression value of the sample plus
// a learned "gene space" embedding of the gene's fixed coordinates. Per-point
// tensors are laid out as [batch, channels, points] throughout, and the point axis
// is only collapsed by the final pooling step of the FeatureExtractor.
//
// The components are built as gomlx computation graphs. Learned parameters live in
// the *context.Context passed to each component, under a scope owned by that
// component, so two instances of the same component never share weights:
//
//	cls, err := pointnet.NewClassifier(cfg)
//	...
//	exec := context.NewExec(backend, ctx, func(ctx *context.Context, expression, coords *Node) []*Node {
//		pred := cls.Classify(ctx, expression, coords)
//		return []*Node{pred.Logits}
//	})
//
// Shape violations detected while building a graph panic with a *ShapeMismatchError,
// following gomlx's convention for graph construction errors. Callers at a runtime
// boundary recover them with exceptions.TryCatch[error].
package pointnet
