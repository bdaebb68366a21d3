package pointnet

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fixed widths of the per-point pipeline.
const (
	// PointFeatureWidth is the width of the mid-level per-point features ("pointfeat").
	PointFeatureWidth = 16
	// GlobalFeatureWidth is the width of the pooled sample embedding.
	GlobalFeatureWidth = 32

	alignHidden = 16
	headHidden  = 16
)

// OutputMode selects what the FeatureExtractor returns.
type OutputMode int

const (
	// OutputGlobal returns one [batch, GlobalFeatureWidth] embedding per sample.
	OutputGlobal OutputMode = iota
	// OutputPerPoint returns the global embedding broadcast to every point and
	// concatenated with the point features: [batch, GlobalFeatureWidth+PointFeatureWidth, points].
	OutputPerPoint
)

func (m OutputMode) String() string {
	switch m {
	case OutputGlobal:
		return "global"
	case OutputPerPoint:
		return "per-point"
	}
	return fmt.Sprintf("OutputMode(%d)", int(m))
}

// Pooling is the strategy that collapses per-point features into a sample embedding.
type Pooling int

const (
	PoolingMax Pooling = iota
	PoolingAttention
	PoolingEncoder
)

func (p Pooling) String() string {
	switch p {
	case PoolingMax:
		return "max"
	case PoolingAttention:
		return "attention"
	case PoolingEncoder:
		return "encoder"
	}
	return fmt.Sprintf("Pooling(%d)", int(p))
}

// Config holds the structural choices of the network. It is resolved once, when a
// component is constructed; zero widths and dimensions select the defaults of
// DefaultConfig. SpatialBlend, FeatureBlend and HeadDropout are used as given, so 0
// disables them; start from DefaultConfig for the reference values.
type Config struct {
	// GeneIdxDim is the width of the fixed per-gene coordinate embedding.
	GeneIdxDim int
	// GeneSpaceDim is the width of the learned gene-space embedding.
	GeneSpaceDim int
	NumClasses   int
	// NumGenes is the number of points; only required by the dense encoder pooling.
	NumGenes int
	// InputDim is the raw channel width fed to a DenseClassifier.
	InputDim int

	UseAlignmentAlpha   bool
	UseAlignmentBeta    bool
	UseFeatureAlignment bool
	UseAttentionPooling bool
	UseDenseEncoder     bool
	OutputMode          OutputMode

	// SpatialBlend and FeatureBlend weight the aligned value that is added back to
	// the untransformed one after the spatial and feature alignments.
	SpatialBlend float64
	FeatureBlend float64
	HeadDropout  float64

	GeneSpaceHidden int
	EncoderHidden   []int
	AttentionHidden [2]int
	DenseHeadWidths []int
}

// DefaultConfig returns the configuration used by the reference experiments:
// no alignment, dense encoder pooling.
func DefaultConfig() Config {
	return Config{
		GeneIdxDim:      2,
		GeneSpaceDim:    3,
		NumClasses:      10,
		InputDim:        4,
		UseDenseEncoder: true,
		OutputMode:      OutputGlobal,
		SpatialBlend:    0.01,
		FeatureBlend:    0.0001,
		HeadDropout:     0.3,
		GeneSpaceHidden: 64,
		EncoderHidden:   []int{500, 300},
		AttentionHidden: [2]int{16, 16},
		DenseHeadWidths: []int{512, 256, 128},
	}
}

// Validate fills zero fields with defaults and rejects invalid combinations.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("pointnet: config is nil")
	}
	def := DefaultConfig()
	if c.GeneIdxDim == 0 {
		c.GeneIdxDim = def.GeneIdxDim
	}
	if c.GeneSpaceDim == 0 {
		c.GeneSpaceDim = def.GeneSpaceDim
	}
	if c.NumClasses == 0 {
		c.NumClasses = def.NumClasses
	}
	if c.InputDim == 0 {
		c.InputDim = def.InputDim
	}
	if c.GeneSpaceHidden == 0 {
		c.GeneSpaceHidden = def.GeneSpaceHidden
	}
	if len(c.EncoderHidden) == 0 {
		c.EncoderHidden = def.EncoderHidden
	}
	if c.AttentionHidden == [2]int{} {
		c.AttentionHidden = def.AttentionHidden
	}
	if len(c.DenseHeadWidths) == 0 {
		c.DenseHeadWidths = def.DenseHeadWidths
	}

	for _, dim := range []struct {
		name  string
		value int
	}{
		{"gene_idx_dim", c.GeneIdxDim},
		{"gene_space_dim", c.GeneSpaceDim},
		{"num_classes", c.NumClasses},
		{"input_dim", c.InputDim},
		{"gene_space_hidden", c.GeneSpaceHidden},
		{"attention_hidden", min(c.AttentionHidden[0], c.AttentionHidden[1])},
	} {
		if dim.value <= 0 {
			return errors.Errorf("pointnet: %s must be > 0 (got %d)", dim.name, dim.value)
		}
	}
	for _, w := range append(append([]int(nil), c.EncoderHidden...), c.DenseHeadWidths...) {
		if w <= 0 {
			return errors.Errorf("pointnet: hidden widths must be > 0 (got %v / %v)", c.EncoderHidden, c.DenseHeadWidths)
		}
	}
	if c.SpatialBlend < 0 || c.FeatureBlend < 0 {
		return errors.Errorf("pointnet: blend weights must be >= 0 (got %g, %g)", c.SpatialBlend, c.FeatureBlend)
	}
	if c.HeadDropout < 0 || c.HeadDropout >= 1 {
		return errors.Errorf("pointnet: head_dropout must be in [0, 1) (got %g)", c.HeadDropout)
	}
	if c.OutputMode != OutputGlobal && c.OutputMode != OutputPerPoint {
		return errors.Errorf("pointnet: unknown output mode %s", c.OutputMode)
	}
	pooling, err := c.Pooling()
	if err != nil {
		return err
	}
	if pooling == PoolingEncoder && c.NumGenes <= 0 {
		return errors.Errorf("pointnet: dense encoder pooling needs num_genes > 0 (got %d)", c.NumGenes)
	}
	return nil
}

// Pooling resolves the pooling flags into exactly one strategy.
func (c Config) Pooling() (Pooling, error) {
	switch {
	case c.UseAttentionPooling && c.UseDenseEncoder:
		return 0, ErrConfigurationConflict
	case c.UseAttentionPooling:
		return PoolingAttention, nil
	case c.UseDenseEncoder:
		return PoolingEncoder, nil
	}
	return PoolingMax, nil
}
