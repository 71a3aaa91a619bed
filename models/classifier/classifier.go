package classifier

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-windet/detector"
	"github.com/nvr-ai/go-windet/inference"
	"github.com/nvr-ai/go-windet/inference/providers"
)

// Config represents the configuration of an ONNX classifier.
type Config struct {
	// ModelPath is the path to the .onnx file.
	ModelPath string `json:"model_path" yaml:"model_path"`

	// MetadataPath is the path to the metadata JSON, see Metadata.
	MetadataPath string `json:"metadata_path" yaml:"metadata_path"`

	// Normalization maps pixels into the input tensor.
	Normalization inference.Normalization `json:"normalization" yaml:"normalization"`

	// TopK is the number of predictions returned by Classify.
	TopK int `json:"top_k" yaml:"top_k"`
}

// DefaultConfig returns inception normalization and top-3 predictions.
func DefaultConfig() Config {
	return Config{
		Normalization: inference.NormalizeInception,
		TopK:          3,
	}
}

// Validate checks the paths, normalization and TopK.
func (c Config) Validate() error {
	switch {
	case c.ModelPath == "":
		return errors.New("model_path is required")
	case c.MetadataPath == "":
		return errors.New("metadata_path is required")
	case !c.Normalization.Valid():
		return errors.Errorf("unknown normalization %q", c.Normalization)
	case c.TopK < 1:
		return errors.New("top_k must be at least 1")
	}
	return nil
}

// runner executes a model on its bound input tensor.
type runner interface {
	Run() error
	Close() error
}

// Classifier ranks image crops with an ONNX model.
//
// Input and output tensors are shared between calls, so Classify serializes model
// runs. It is safe for concurrent use.
type Classifier struct {
	mu       sync.Mutex
	session  runner
	input    inference.Tensor
	output   inference.Tensor
	meta     Metadata
	spec     inference.InputSpec
	outShape []int
	topK     int
	logger   *zap.Logger
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New loads the metadata, creates the ONNX session and returns a ready Classifier.
//
// Arguments:
//   - config: The classifier configuration.
//   - onnx: The onnxruntime provider configuration.
//   - opts: Optional settings.
//
// Returns:
//   - *Classifier: The classifier. Close releases the native session.
//   - error: An error if the configuration, metadata or model is invalid.
func New(config Config, onnx providers.Config, opts ...Option) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid classifier config")
	}
	meta, err := LoadMetadata(config.MetadataPath)
	if err != nil {
		return nil, err
	}

	session, err := providers.NewSession(onnx, providers.NewSessionArgs{
		ModelPath:   config.ModelPath,
		InputName:   meta.InputName,
		OutputName:  meta.OutputName,
		InputShape:  meta.InputShape,
		OutputShape: meta.OutputShape,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load model %s", config.ModelPath)
	}

	c := newClassifier(session, session.Input, session.Output, meta, config, opts...)
	c.logger.Info("classifier loaded",
		zap.String("model", config.ModelPath),
		zap.Int64s("input_shape", meta.InputShape),
		zap.Int("classes", len(meta.Classes)),
		zap.String("backend", string(onnx.Backend)),
	)
	return c, nil
}

func newClassifier(session runner, input, output inference.Tensor, meta Metadata, config Config, opts ...Option) *Classifier {
	w, h := meta.inputSize()
	outShape := make([]int, len(meta.OutputShape))
	for i, d := range meta.OutputShape {
		outShape[i] = int(d)
	}

	c := &Classifier{
		session:  session,
		input:    input,
		output:   output,
		meta:     meta,
		outShape: outShape,
		topK:     config.TopK,
		logger:   zap.NewNop(),
		spec: inference.InputSpec{
			Width:         w,
			Height:        h,
			Layout:        meta.Layout,
			Normalization: config.Normalization,
			Filter:        resize.Bilinear,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Metadata returns the model metadata.
func (c *Classifier) Metadata() Metadata {
	return c.meta
}

// InputSize returns the model input size in pixels.
func (c *Classifier) InputSize() image.Point {
	return image.Pt(c.spec.Width, c.spec.Height)
}

// Classify resizes img to the model input, runs the model and returns the TopK
// predictions, highest confidence first.
func (c *Classifier) Classify(ctx context.Context, img image.Image) ([]detector.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, errors.New("classifier is closed")
	}

	start := time.Now()
	if err := inference.PrepareInput(img, c.spec, c.input); err != nil {
		return nil, err
	}
	if err := c.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	predictions, err := Rank(c.output.GetData(), c.outShape, c.meta.Classes, c.topK, c.meta.Softmax)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("classified",
		zap.String("label", predictions[0].Label),
		zap.Float32("confidence", predictions[0].Confidence),
		zap.Duration("elapsed", time.Since(start)),
	)
	return predictions, nil
}

// Close releases the native session. Classify fails afterwards.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
