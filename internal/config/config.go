package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"gpnet/internal/dataset"
	"gpnet/internal/heatmap"
	"gpnet/internal/pointnet"
)

// Mode selects the classifier a run drives.
type Mode string

const (
	ModePointNet Mode = "pointnet"
	ModeDense    Mode = "dense"
	ModeHeatmap  Mode = "heatmap"
	ModeFNN      Mode = "fnn"
)

// Config captures the runtime knobs for an inference run.
type Config struct {
	Data    Data    `toml:"data"`
	Model   Model   `toml:"model"`
	Heatmap Heatmap `toml:"heatmap"`
	Run     Run     `toml:"run"`
}

// Data locates the expression matrices.
type Data struct {
	// Path is a matrix file or a directory of matrices.
	Path        string                 `toml:"path"`
	Coordinates dataset.CoordinateKind `toml:"coordinates"`
}

// Model mirrors pointnet.Config. Zero widths keep the network defaults; the blend
// weights and head_dropout start at the network defaults and may be set to 0.
type Model struct {
	Mode Mode `toml:"mode"`
	// NumClasses defaults to the number of classes in the data.
	NumClasses   int `toml:"num_classes"`
	GeneSpaceDim int `toml:"gene_space_dim"`

	UseAlignmentAlpha   bool `toml:"use_alignment_alpha"`
	UseAlignmentBeta    bool `toml:"use_alignment_beta"`
	UseFeatureAlignment bool `toml:"use_feature_alignment"`
	UseAttentionPooling bool `toml:"use_attention_pooling"`
	UseDenseEncoder     bool `toml:"use_dense_encoder"`

	SpatialBlend    float64 `toml:"spatial_blend"`
	FeatureBlend    float64 `toml:"feature_blend"`
	HeadDropout     float64 `toml:"head_dropout"`
	GeneSpaceHidden int     `toml:"gene_space_hidden"`
	EncoderHidden   []int   `toml:"encoder_hidden"`
	AttentionHidden []int   `toml:"attention_hidden"`
	DenseHeadWidths []int   `toml:"dense_head_widths"`
}

// Heatmap configures rendering for the heatmap mode.
type Heatmap struct {
	Rows    int `toml:"rows"`
	Cols    int `toml:"cols"`
	Workers int `toml:"workers"`
}

// Run holds the loop knobs.
type Run struct {
	Steps      int   `toml:"steps"`
	BatchSize  int   `toml:"batch_size"`
	NumWorkers int   `toml:"num_workers"`
	Seed       int64 `toml:"seed"`
	LogEvery   int   `toml:"log_every"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataPath   string
	Mode       string
	Steps      int
	BatchSize  int
	NumWorkers int
	Seed       int64
	LogEvery   int
}

// Default returns a config with every optional field set.
func Default() *Config {
	net := pointnet.DefaultConfig()
	return &Config{
		Data: Data{Coordinates: dataset.CoordinatesGrid},
		Model: Model{
			Mode:         ModePointNet,
			SpatialBlend: net.SpatialBlend,
			FeatureBlend: net.FeatureBlend,
			HeadDropout:  net.HeadDropout,
		},
		Heatmap: Heatmap{Rows: heatmap.DefaultLayout.Rows, Cols: heatmap.DefaultLayout.Cols, Workers: 4},
		Run:     Run{Steps: 100, BatchSize: 8, NumWorkers: 4, Seed: 42, LogEvery: 10},
	}
}

// Load reads and validates a Config from TOML. Keys the file sets override Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("parse config: unknown keys %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataPath != "" {
		c.Data.Path = o.DataPath
	}
	if o.Mode != "" {
		c.Model.Mode = Mode(o.Mode)
	}
	if o.Steps > 0 {
		c.Run.Steps = o.Steps
	}
	if o.BatchSize > 0 {
		c.Run.BatchSize = o.BatchSize
	}
	if o.NumWorkers > 0 {
		c.Run.NumWorkers = o.NumWorkers
	}
	if o.Seed != 0 {
		c.Run.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.Run.LogEvery = o.LogEvery
	}
}

// Validate verifies the config is runnable. The network structure is checked by
// resolving it with a placeholder gene count.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data.Path == "" {
		return errors.New("data.path must be set")
	}
	switch c.Model.Mode {
	case ModePointNet, ModeDense, ModeHeatmap, ModeFNN:
	default:
		return errors.Errorf("model.mode must be one of pointnet, dense, heatmap, fnn (got %q)", c.Model.Mode)
	}
	if c.Data.Coordinates == "" {
		c.Data.Coordinates = dataset.CoordinatesGrid
	}
	if c.Data.Coordinates.Dim() == 0 {
		return errors.Errorf("data.coordinates must be grid, index or augmented (got %q)", c.Data.Coordinates)
	}
	if c.Run.Steps <= 0 {
		return errors.Errorf("run.steps must be > 0 (got %d)", c.Run.Steps)
	}
	if c.Run.BatchSize <= 0 {
		return errors.Errorf("run.batch_size must be > 0 (got %d)", c.Run.BatchSize)
	}
	if c.Run.NumWorkers <= 0 {
		return errors.Errorf("run.num_workers must be > 0 (got %d)", c.Run.NumWorkers)
	}
	if c.Run.LogEvery <= 0 {
		c.Run.LogEvery = 50
	}
	if c.Model.Mode == ModeHeatmap && (c.Heatmap.Rows <= 0 || c.Heatmap.Cols <= 0) {
		return errors.Errorf("heatmap.rows and heatmap.cols must be > 0 (got %dx%d)", c.Heatmap.Rows, c.Heatmap.Cols)
	}
	if len(c.Model.AttentionHidden) != 0 && len(c.Model.AttentionHidden) != 2 {
		return errors.Errorf("model.attention_hidden needs 2 widths (got %d)", len(c.Model.AttentionHidden))
	}
	if c.Model.NumClasses < 0 {
		return errors.Errorf("model.num_classes must be >= 0 (got %d)", c.Model.NumClasses)
	}

	if c.Model.Mode == ModePointNet || c.Model.Mode == ModeDense {
		net := c.PointNet(1, 2)
		if err := net.Validate(); err != nil {
			return errors.WithMessage(err, "model")
		}
		if _, err := net.Pooling(); err != nil {
			return errors.WithMessage(err, "model")
		}
	}
	return nil
}

// PointNet maps the model section onto a network config for numGenes genes. A
// configured class count wins over numClasses.
func (c *Config) PointNet(numGenes, numClasses int) pointnet.Config {
	m := c.Model
	if m.NumClasses > 0 {
		numClasses = m.NumClasses
	}
	cfg := pointnet.Config{
		GeneIdxDim:          c.Data.Coordinates.Dim(),
		GeneSpaceDim:        m.GeneSpaceDim,
		NumClasses:          numClasses,
		UseAlignmentAlpha:   m.UseAlignmentAlpha,
		UseAlignmentBeta:    m.UseAlignmentBeta,
		UseFeatureAlignment: m.UseFeatureAlignment,
		UseAttentionPooling: m.UseAttentionPooling,
		UseDenseEncoder:     m.UseDenseEncoder,
		SpatialBlend:        m.SpatialBlend,
		FeatureBlend:        m.FeatureBlend,
		HeadDropout:         m.HeadDropout,
		GeneSpaceHidden:     m.GeneSpaceHidden,
		EncoderHidden:       m.EncoderHidden,
		DenseHeadWidths:     m.DenseHeadWidths,
	}
	if m.UseDenseEncoder {
		cfg.NumGenes = numGenes
	}
	if len(m.AttentionHidden) == 2 {
		cfg.AttentionHidden = [2]int{m.AttentionHidden[0], m.AttentionHidden[1]}
	}
	if c.Model.Mode == ModeDense {
		cfg.InputDim = c.Data.Coordinates.Dim() + 1
		cfg.OutputMode = pointnet.OutputPerPoint
	}
	return cfg
}
