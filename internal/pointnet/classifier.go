package pointnet

import (
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
)

// Prediction is the output of a Classifier: raw logits plus whatever the enabled
// alignment stages produced, for regularization. Absent outputs are nil.
type Prediction struct {
	Logits           *Node
	InputTransform   *Node
	FeatureTransform *Node
	Aux              *Node
}

// Classifier predicts the tumor class of each sample from its expression profile
// and the per-gene coordinates.
type Classifier struct {
	cfg       Config
	geneSpace GeneSpace
	feat      *FeatureExtractor
}

// NewClassifier builds a Classifier. The extractor input is the expression channel
// plus the GeneSpaceDim gene-space channels; cfg.OutputMode is ignored (always global).
func NewClassifier(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	featCfg := cfg
	featCfg.OutputMode = OutputGlobal
	feat, err := NewFeatureExtractor(cfg.GeneSpaceDim+1, featCfg)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		cfg:       cfg,
		geneSpace: GeneSpace{InK: cfg.GeneIdxDim, OutK: cfg.GeneSpaceDim, Hidden: cfg.GeneSpaceHidden},
		feat:      feat,
	}, nil
}

// Config returns the resolved configuration.
func (c *Classifier) Config() Config { return c.cfg }

// Classify takes expression [batch, points] and coords [batch, GeneIdxDim, points]
// and returns logits [batch, NumClasses]. No output nonlinearity is applied.
func (c *Classifier) Classify(ctx *context.Context, expression, coords *Node) Prediction {
	mustRank("classifier", expression, 2)
	mustChannels("classifier", coords, c.cfg.GeneIdxDim)
	if coords.Shape().Dim(0) != expression.Shape().Dim(0) {
		panic(&ShapeMismatchError{Stage: "classifier", Axis: "batch",
			Expected: expression.Shape().Dim(0), Actual: coords.Shape().Dim(0)})
	}
	mustPoints("classifier", coords, expression.Shape().Dim(1))

	geneSpace := c.geneSpace.Embed(ctx.In("gene_space"), coords)
	x := Concatenate([]*Node{ExpandAxes(expression, 1), geneSpace}, 1)
	feat := c.feat.Extract(ctx.In("feat"), x)

	h := layers.Dense(ctx.In("fc1"), feat.Embedding, true, headHidden)
	h = layers.DropoutStatic(ctx, h, c.cfg.HeadDropout)
	h = batchNorm(ctx.In("bn1"), h, -1)
	h = activations.Relu(h)
	logits := layers.Dense(ctx.In("fc3"), h, true, c.cfg.NumClasses)
	return Prediction{
		Logits:           logits,
		InputTransform:   feat.InputTransform,
		FeatureTransform: feat.FeatureTransform,
		Aux:              feat.Aux,
	}
}

// Forward implements Module: inputs are {expression, coords}, outputs
// {logits, input transform, feature transform, aux}.
func (c *Classifier) Forward(ctx *context.Context, inputs []*Node) []*Node {
	p := c.Classify(ctx, inputs[0], inputs[1])
	return []*Node{p.Logits, p.InputTransform, p.FeatureTransform, p.Aux}
}

// DenseClassifier labels every point: it returns per-point log-probabilities
// [batch, points, NumClasses].
type DenseClassifier struct {
	cfg  Config
	feat *FeatureExtractor
}

// NewDenseClassifier builds a DenseClassifier over raw inputs of cfg.InputDim channels.
func NewDenseClassifier(cfg Config) (*DenseClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	featCfg := cfg
	featCfg.OutputMode = OutputPerPoint
	feat, err := NewFeatureExtractor(cfg.InputDim, featCfg)
	if err != nil {
		return nil, err
	}
	return &DenseClassifier{cfg: cfg, feat: feat}, nil
}

// Config returns the resolved configuration.
func (d *DenseClassifier) Config() Config { return d.cfg }

// Label returns log-probabilities [batch, points, NumClasses] for x [batch, InputDim, points].
func (d *DenseClassifier) Label(ctx *context.Context, x *Node) Prediction {
	feat := d.feat.Extract(ctx.In("feat"), x)
	h := feat.Embedding
	mustChannels("dense_classifier", h, d.feat.OutputWidth())
	for i, width := range d.cfg.DenseHeadWidths {
		h = pointwiseBlock(ctx.Inf("head%d", i+1), h, width)
	}
	h = pointwise(ctx.In("head_out"), h, d.cfg.NumClasses)
	h = Transpose(h, 1, 2)
	return Prediction{
		Logits:           LogSoftmax(h, -1),
		InputTransform:   feat.InputTransform,
		FeatureTransform: feat.FeatureTransform,
		Aux:              feat.Aux,
	}
}

// Forward implements Module: inputs are {x}, outputs
// {log-probabilities, input transform, feature transform, aux}.
func (d *DenseClassifier) Forward(ctx *context.Context, inputs []*Node) []*Node {
	p := d.Label(ctx, inputs[0])
	return []*Node{p.Logits, p.InputTransform, p.FeatureTransform, p.Aux}
}
