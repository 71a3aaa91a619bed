// Package detector - Multi-scale sliding-window object localization on top of an
// image classifier.
//
// A Detector walks an image pyramid, classifies every full window of every level,
// keeps windows whose top-1 confidence beats the detection threshold and removes
// overlapping boxes with Non-Maximum Suppression:
//
//	pyramid -> sliding window -> classifier -> threshold -> candidates -> NMS
package detector

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-windet/images"
	"github.com/nvr-ai/go-windet/models/postprocess"
	"github.com/nvr-ai/go-windet/profiler"
)

// Prediction is one ranked output of a classifier.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Classifier labels a fixed-size image crop.
//
// Classify returns predictions ordered by descending confidence. The detector only
// uses the first one. Implementations used with Config.Workers > 1 must be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) ([]Prediction, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, img image.Image) ([]Prediction, error)

// Classify calls f(ctx, img).
func (f ClassifierFunc) Classify(ctx context.Context, img image.Image) ([]Prediction, error) {
	return f(ctx, img)
}

// Option customizes a Detector.
type Option func(*Detector)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithProfiler records classifier and per-level timings plus window counters.
func WithProfiler(p *profiler.Profiler) Option {
	return func(d *Detector) {
		d.profiler = p
	}
}

// WithFilter sets the resampling filter used to build the pyramid. The default is
// resize.Bilinear.
func WithFilter(filter resize.InterpolationFunction) Option {
	return func(d *Detector) {
		d.filter = filter
	}
}

// Detector localizes objects by classifying windows of an image pyramid.
//
// A Detector holds no per-image state; Detect may be called concurrently if the
// classifier allows it.
type Detector struct {
	classifier Classifier
	config     Config
	logger     *zap.Logger
	profiler   *profiler.Profiler
	filter     resize.InterpolationFunction
}

// New creates a Detector.
//
// Arguments:
//   - classifier: The classifier consulted for every window.
//   - config: The detector configuration.
//   - opts: Optional settings.
//
// Returns:
//   - *Detector: The detector.
//   - error: A *ConfigurationError if classifier is nil or config is invalid.
func New(classifier Classifier, config Config, opts ...Option) (*Detector, error) {
	if classifier == nil {
		return nil, &ConfigurationError{Field: "classifier", Reason: "must not be nil"}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Geometry == "" {
		config.Geometry = GeometryReference
	}
	if config.NMS.Method == "" {
		config.NMS.Method = postprocess.NMSBottomEdge
	}

	d := &Detector{
		classifier: classifier,
		config:     config,
		logger:     zap.NewNop(),
		filter:     resize.Bilinear,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d, nil
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.config
}

// Detect localizes objects in img.
//
// Boxes are in img's pixel space relative to img.Bounds().Min. An image smaller than
// the window yields an empty result without consulting the classifier.
//
// Arguments:
//   - ctx: Cancels the scan between windows.
//   - img: The image to scan.
//
// Returns:
//   - []postprocess.Result: The boxes kept by NMS in pick order, never nil on success.
//   - error: A *ClassificationError if any classifier call fails, or the context error.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]postprocess.Result, error) {
	if img == nil {
		return nil, errors.New("detector: nil image")
	}

	start := time.Now()
	size := d.config.WindowSize()
	bounds := img.Bounds()
	if bounds.Dx() < size.X || bounds.Dy() < size.Y {
		d.logger.Warn("image smaller than the detection window, nothing to scan",
			zap.Int("width", bounds.Dx()),
			zap.Int("height", bounds.Dy()),
			zap.Int("window_width", size.X),
			zap.Int("window_height", size.Y),
		)
		return []postprocess.Result{}, nil
	}

	var (
		candidates []postprocess.Result
		levels     int
		windows    int
	)
	for level := range images.Pyramid(img, d.config.PyramidScale, size, d.filter) {
		levelStart := time.Now()

		found, classified, err := d.scanLevel(ctx, level, bounds)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
		levels++
		windows += classified

		d.logger.Debug("scanned pyramid level",
			zap.Int("level", level.Index),
			zap.Float64("scale", level.Scale),
			zap.Int("width", level.Image.Bounds().Dx()),
			zap.Int("height", level.Image.Bounds().Dy()),
			zap.Int("windows", classified),
			zap.Int("candidates", len(found)),
		)
		if d.profiler != nil {
			d.profiler.RecordDuration("level", time.Since(levelStart))
		}
	}

	kept := postprocess.ApplyNMS(candidates, d.config.NMS)

	if d.profiler != nil {
		d.profiler.RecordMetric("windows", float64(windows))
		d.profiler.RecordMetric("candidates", float64(len(candidates)))
		d.profiler.RecordMetric("detections", float64(len(kept)))
		d.profiler.RecordDuration("detect", time.Since(start))
	}
	d.logger.Info("detection finished",
		zap.Int("levels", levels),
		zap.Int("windows", windows),
		zap.Int("candidates", len(candidates)),
		zap.Int("detections", len(kept)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return kept, nil
}

// scanLevel classifies every full window of one pyramid level.
//
// Returns the candidates in window order and the number of classified windows.
func (d *Detector) scanLevel(ctx context.Context, level images.Level, bounds image.Rectangle) ([]postprocess.Result, int, error) {
	size := d.config.WindowSize()

	if d.config.Workers <= 1 {
		var found []postprocess.Result
		classified := 0
		for win := range images.SlidingWindow(level.Image, d.config.StepSize, size) {
			if !win.Full(size) {
				continue
			}
			classified++
			result, err := d.evaluate(ctx, level, win, bounds)
			if err != nil {
				return nil, classified, err
			}
			if result != nil {
				found = append(found, *result)
			}
		}
		return found, classified, nil
	}

	var wins []images.Window
	for win := range images.SlidingWindow(level.Image, d.config.StepSize, size) {
		if win.Full(size) {
			wins = append(wins, win)
		}
	}

	// Results are stored by window index so the candidate order matches the
	// sequential scan.
	results := make([]*postprocess.Result, len(wins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Workers)
	for i, win := range wins {
		g.Go(func() error {
			result, err := d.evaluate(gctx, level, win, bounds)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, len(wins), err
	}

	var found []postprocess.Result
	for _, result := range results {
		if result != nil {
			found = append(found, *result)
		}
	}
	return found, len(wins), nil
}

// evaluate classifies one window and returns a candidate when its top-1 prediction
// passes the detection threshold.
func (d *Detector) evaluate(ctx context.Context, level images.Level, win images.Window, bounds image.Rectangle) (*postprocess.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "detection cancelled")
	}

	var done func()
	if d.profiler != nil {
		done = d.profiler.StartOperation("classify")
	}
	predictions, err := d.classifier.Classify(ctx, win.Image)
	if done != nil {
		done()
	}

	if err != nil {
		return nil, &ClassificationError{Level: level.Index, X: win.X, Y: win.Y, Err: err}
	}
	if len(predictions) == 0 {
		return nil, &ClassificationError{
			Level: level.Index, X: win.X, Y: win.Y,
			Err: errors.New("classifier returned no predictions"),
		}
	}

	top := predictions[0]
	conf := float64(top.Confidence)
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return nil, &ClassificationError{
			Level: level.Index, X: win.X, Y: win.Y,
			Err: errors.Errorf("confidence %v outside [0, 1]", top.Confidence),
		}
	}
	if top.Confidence <= d.config.DetectionThreshold {
		return nil, nil
	}

	return &postprocess.Result{
		Box:   d.mapBox(level, win, bounds),
		Label: top.Label,
		Score: top.Confidence,
		Level: level.Index,
	}, nil
}

// mapBox converts a window found on level into original-image coordinates.
func (d *Detector) mapBox(level images.Level, win images.Window, bounds image.Rectangle) images.Rect {
	size := d.config.WindowSize()

	var box images.Rect
	switch d.config.Geometry {
	case GeometryScaled:
		s := level.Scale
		box = images.Rect{
			X1: int(float64(win.X) * s),
			Y1: int(float64(win.Y) * s),
			X2: int(float64(win.X+size.X) * s),
			Y2: int(float64(win.Y+size.Y) * s),
		}
	default:
		// Only the extent grows with the level; the corner stays in level coordinates.
		factor := math.Pow(d.config.PyramidScale, float64(level.Index))
		box = images.Rect{
			X1: win.X,
			Y1: win.Y,
			X2: win.X + int(float64(size.X)*factor),
			Y2: win.Y + int(float64(size.Y)*factor),
		}
	}

	// X2,Y2 name the last covered pixel, so the far edge stops at width-1, height-1.
	return box.Clamp(image.Rect(0, 0, bounds.Dx()-1, bounds.Dy()-1))
}
