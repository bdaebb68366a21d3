package pointnet

import (
	"fmt"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/pkg/errors"
)

// Features is the output of a FeatureExtractor. Transforms of disabled stages are nil.
type Features struct {
	// Embedding is [batch, GlobalFeatureWidth] for OutputGlobal and
	// [batch, GlobalFeatureWidth+PointFeatureWidth, points] for OutputPerPoint.
	Embedding *Node
	// InputTransform is the spatial alignment, [batch, inputDim, inputDim].
	InputTransform *Node
	// FeatureTransform is the feature alignment, [batch, PointFeatureWidth, PointFeatureWidth].
	FeatureTransform *Node
	// Aux is the AlignmentAlpha scalar, [batch, 1].
	Aux *Node
}

// FeatureExtractor turns per-point inputs [batch, inputDim, points] into a sample
// embedding, optionally aligning the input and the mid-level features first.
type FeatureExtractor struct {
	inputDim int
	cfg      Config
	pooling  Pooling

	alpha     *AlignmentAlpha
	spatial   *AlignmentBeta
	feature   *AlignmentBeta
	attention *AttentionPooling
}

// NewFeatureExtractor validates cfg and resolves which stages are enabled.
func NewFeatureExtractor(inputDim int, cfg Config) (*FeatureExtractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if inputDim <= 0 {
		return nil, errors.Errorf("pointnet: input dimension must be > 0 (got %d)", inputDim)
	}
	pooling, err := cfg.Pooling()
	if err != nil {
		return nil, err
	}
	f := &FeatureExtractor{inputDim: inputDim, cfg: cfg, pooling: pooling}
	if cfg.UseAlignmentAlpha {
		f.alpha = &AlignmentAlpha{K: inputDim}
	}
	if cfg.UseAlignmentBeta {
		f.spatial = &AlignmentBeta{K: inputDim}
	}
	if cfg.UseFeatureAlignment {
		f.feature = &AlignmentBeta{K: PointFeatureWidth}
	}
	if pooling == PoolingAttention {
		f.attention = &AttentionPooling{
			InputDim: GlobalFeatureWidth,
			Hidden1:  cfg.AttentionHidden[0],
			Hidden2:  cfg.AttentionHidden[1],
		}
	}
	return f, nil
}

// InputDim is the channel width the extractor accepts.
func (f *FeatureExtractor) InputDim() int { return f.inputDim }

// Pooling is the resolved pooling strategy.
func (f *FeatureExtractor) Pooling() Pooling { return f.pooling }

// OutputWidth is the channel width of Features.Embedding.
func (f *FeatureExtractor) OutputWidth() int {
	if f.cfg.OutputMode == OutputPerPoint {
		return GlobalFeatureWidth + PointFeatureWidth
	}
	return GlobalFeatureWidth
}

// Extract builds the feature pipeline for x [batch, inputDim, points].
func (f *FeatureExtractor) Extract(ctx *context.Context, x *Node) Features {
	mustChannels("feature_extractor", x, f.inputDim)
	var out Features
	batchSize, numPoints := x.Shape().Dim(0), x.Shape().Dim(2)

	if f.alpha != nil {
		var transform *Node
		transform, out.Aux = f.alpha.Transform(ctx.In("snet"), x)
		x = applyTransform(x, transform)
	}
	x = pointwiseBlock(ctx.In("conv0"), x, f.inputDim)

	if f.spatial != nil {
		out.InputTransform = f.spatial.Transform(ctx.In("input_transform"), x)
		x = blendTransform(x, out.InputTransform, f.cfg.SpatialBlend)
	}
	x = pointwiseBlock(ctx.In("conv1"), x, PointFeatureWidth)

	if f.feature != nil {
		out.FeatureTransform = f.feature.Transform(ctx.In("feature_transform"), x)
		x = blendTransform(x, out.FeatureTransform, f.cfg.FeatureBlend)
	}
	pointFeat := x
	x = pointwiseBlock(ctx.In("conv2"), x, GlobalFeatureWidth)

	var global *Node
	switch f.pooling {
	case PoolingAttention:
		weights := f.attention.Weights(ctx.In("attention"), x)
		global = f.attention.Pool(x, weights)
	case PoolingEncoder:
		global = f.encode(ctx.In("encoder"), x)
	case PoolingMax:
		global = ReduceMax(x, 2)
	default:
		panic(fmt.Sprintf("pointnet: unknown pooling %s", f.pooling))
	}
	global.AssertDims(batchSize, GlobalFeatureWidth)

	if f.cfg.OutputMode == OutputGlobal {
		out.Embedding = global
		return out
	}
	tiled := BroadcastToDims(Reshape(global, batchSize, GlobalFeatureWidth, 1), batchSize, GlobalFeatureWidth, numPoints)
	out.Embedding = Concatenate([]*Node{tiled, pointFeat}, 1)
	return out
}

// encode projects every point to a single channel and reads the whole profile with
// dense layers. It needs the number of points fixed at NumGenes.
func (f *FeatureExtractor) encode(ctx *context.Context, x *Node) *Node {
	mustPoints("dense_encoder", x, f.cfg.NumGenes)
	batchSize := x.Shape().Dim(0)
	x = pointwise(ctx.In("conv_end"), x, 1)
	x = batchNorm(ctx.In("bn_end"), x, 1)
	x = activations.Relu(x)
	x = Reshape(x, batchSize, f.cfg.NumGenes)
	for i, width := range f.cfg.EncoderHidden {
		x = layers.Dense(ctx.Inf("encoder%d", i+1), x, true, width)
		x = activations.Relu(x)
	}
	return layers.Dense(ctx.In("fc1"), x, true, GlobalFeatureWidth)
}

// Forward implements Module: inputs are {x}, outputs
// {embedding, input transform, feature transform, aux}.
func (f *FeatureExtractor) Forward(ctx *context.Context, inputs []*Node) []*Node {
	out := f.Extract(ctx, inputs[0])
	return []*Node{out.Embedding, out.InputTransform, out.FeatureTransform, out.Aux}
}
