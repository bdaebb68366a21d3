package model

import (
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"gpnet/internal/pointnet"
)

// PointNet classifies whole samples. Every sample is the expression of the same
// genes, which share one fixed coordinate embedding.
type PointNet struct {
	cfg        pointnet.Config
	classifier *pointnet.Classifier
	// coords is [GeneIdxDim][genes].
	coords [][]float32
	exec   *context.Exec
}

// NewPointNet builds the classifier for genes laid out at geneCoords
// ([gene][GeneIdxDim]). A nil backend selects the default one.
func NewPointNet(b backends.Backend, cfg pointnet.Config, geneCoords [][]float64) (*PointNet, error) {
	if len(geneCoords) == 0 {
		return nil, errors.New("model: no gene coordinates")
	}
	if cfg.GeneIdxDim == 0 {
		cfg.GeneIdxDim = len(geneCoords[0])
	}
	classifier, err := pointnet.NewClassifier(cfg)
	if err != nil {
		return nil, errors.WithMessage(err, "model: pointnet")
	}
	cfg = classifier.Config()
	for _, c := range geneCoords {
		if len(c) != cfg.GeneIdxDim {
			return nil, errors.WithStack(&pointnet.ShapeMismatchError{
				Stage: "gene coordinates", Axis: "channels", Expected: cfg.GeneIdxDim, Actual: len(c)})
		}
	}
	if cfg.UseDenseEncoder && cfg.NumGenes != len(geneCoords) {
		return nil, errors.WithStack(&pointnet.ShapeMismatchError{
			Stage: "gene coordinates", Axis: "points", Expected: cfg.NumGenes, Actual: len(geneCoords)})
	}

	b, err = defaultBackend(b)
	if err != nil {
		return nil, err
	}
	m := &PointNet{cfg: cfg, classifier: classifier, coords: transposeCoords(geneCoords)}
	m.exec = context.NewExec(b, newContext(), func(ctx *context.Context, expression, coords *Node) []*Node {
		return predictionOutputs(classifier.Classify(ctx, expression, coords))
	})
	klog.V(1).Infof("model: pointnet genes=%d coords=%d classes=%d", len(geneCoords), cfg.GeneIdxDim, cfg.NumClasses)
	return m, nil
}

// NumClasses implements Model.
func (m *PointNet) NumClasses() int { return m.cfg.NumClasses }

// Forward implements Model. Each input row holds one expression value per gene.
func (m *PointNet) Forward(batch Batch) (*Output, error) {
	if err := checkBatch(batch, len(m.coords[0]), m.cfg.NumClasses); err != nil {
		return nil, err
	}
	coords := make([][][]float32, batch.Size())
	for i := range coords {
		coords[i] = m.coords
	}
	outputs, err := call(m.exec, batch.Inputs, coords)
	if err != nil {
		return nil, err
	}
	out := &Output{Logits: outputs[0].Value().([][]float32)}
	decodeAlignment(m.cfg, outputs[1:], out)
	return out, nil
}

// DensePointNet labels every gene of every sample. Its per-point input is the
// expression value followed by the gene coordinates.
type DensePointNet struct {
	cfg        pointnet.Config
	classifier *pointnet.DenseClassifier
	coords     [][]float32
	exec       *context.Exec
}

// NewDensePointNet builds a per-point classifier. cfg.InputDim is derived from the
// coordinate width when unset.
func NewDensePointNet(b backends.Backend, cfg pointnet.Config, geneCoords [][]float64) (*DensePointNet, error) {
	if len(geneCoords) == 0 {
		return nil, errors.New("model: no gene coordinates")
	}
	width := len(geneCoords[0])
	if cfg.InputDim == 0 {
		cfg.InputDim = width + 1
	}
	if cfg.InputDim != width+1 {
		return nil, errors.WithStack(&pointnet.ShapeMismatchError{
			Stage: "gene coordinates", Axis: "channels", Expected: cfg.InputDim - 1, Actual: width})
	}
	classifier, err := pointnet.NewDenseClassifier(cfg)
	if err != nil {
		return nil, errors.WithMessage(err, "model: dense pointnet")
	}
	cfg = classifier.Config()
	b, err = defaultBackend(b)
	if err != nil {
		return nil, err
	}
	m := &DensePointNet{cfg: cfg, classifier: classifier, coords: transposeCoords(geneCoords)}
	m.exec = context.NewExec(b, newContext(), func(ctx *context.Context, expression, coords *Node) []*Node {
		x := Concatenate([]*Node{ExpandAxes(expression, 1), coords}, 1)
		return predictionOutputs(classifier.Label(ctx, x))
	})
	return m, nil
}

// NumClasses implements Model.
func (m *DensePointNet) NumClasses() int { return m.cfg.NumClasses }

// Forward implements Model; the result is in Output.LogProbs.
func (m *DensePointNet) Forward(batch Batch) (*Output, error) {
	if err := checkBatch(batch, len(m.coords[0]), m.cfg.NumClasses); err != nil {
		return nil, err
	}
	coords := make([][][]float32, batch.Size())
	for i := range coords {
		coords[i] = m.coords
	}
	outputs, err := call(m.exec, batch.Inputs, coords)
	if err != nil {
		return nil, err
	}
	out := &Output{LogProbs: outputs[0].Value().([][][]float32)}
	decodeAlignment(m.cfg, outputs[1:], out)
	return out, nil
}

// predictionOutputs flattens p into exec outputs: the prediction, then each present
// alignment output followed by its penalty.
func predictionOutputs(p pointnet.Prediction) []*Node {
	outputs := []*Node{p.Logits}
	if p.InputTransform != nil {
		outputs = append(outputs, p.InputTransform, pointnet.OrthogonalityLoss(p.InputTransform))
	}
	if p.FeatureTransform != nil {
		outputs = append(outputs, p.FeatureTransform, pointnet.OrthogonalityLoss(p.FeatureTransform))
	}
	if p.Aux != nil {
		outputs = append(outputs, p.Aux, pointnet.NormalizationLoss(p.Aux))
	}
	return outputs
}

// decodeAlignment reads what predictionOutputs appended after the prediction.
func decodeAlignment(cfg pointnet.Config, outputs []*tensors.Tensor, out *Output) {
	next := func() (*tensors.Tensor, float64) {
		t, penalty := outputs[0], float64(tensors.ToScalar[float32](outputs[1]))
		outputs = outputs[2:]
		return t, penalty
	}
	if cfg.UseAlignmentBeta {
		t, p := next()
		out.InputTransform, out.Penalties.InputOrthogonality = t.Value().([][][]float32), p
	}
	if cfg.UseFeatureAlignment {
		t, p := next()
		out.FeatureTransform, out.Penalties.FeatureOrthogonality = t.Value().([][][]float32), p
	}
	if cfg.UseAlignmentAlpha {
		t, p := next()
		out.Aux, out.Penalties.Normalization = t.Value().([][]float32), p
	}
}
