package main

import (
	"encoding/json"
	"image"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-windet/config"
	"github.com/nvr-ai/go-windet/detector"
	"github.com/nvr-ai/go-windet/images"
	"github.com/nvr-ai/go-windet/inference/providers"
	"github.com/nvr-ai/go-windet/models/classifier"
	"github.com/nvr-ai/go-windet/models/postprocess"
	"github.com/nvr-ai/go-windet/profiler"
	"github.com/nvr-ai/go-windet/render"
	"github.com/nvr-ai/go-windet/util"
)

// report is the JSON printed for one detected image.
type report struct {
	Image      string               `json:"image"`
	Output     string               `json:"output,omitempty"`
	Detections []postprocess.Result `json:"detections"`
}

// classes is the JSON printed by classify, {"classes":[{"<label>":"<confidence>"}]}.
type classes []detector.Prediction

func (p classes) MarshalJSON() ([]byte, error) {
	entries := make([]map[string]string, len(p))
	for i, pred := range p {
		entries[i] = map[string]string{
			pred.Label: strconv.FormatFloat(float64(pred.Confidence), 'f', -1, 32),
		}
	}
	return json.Marshal(struct {
		Classes []map[string]string `json:"classes"`
	}{entries})
}

// loadConfig reads the optional config file and applies command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	if c.IsSet(flagModel) {
		cfg.Classifier.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagMetadata) {
		cfg.Classifier.MetadataPath = c.String(flagMetadata)
	}
	if c.IsSet(flagORTLib) {
		cfg.ONNX.SharedLibraryPath = c.String(flagORTLib)
	}
	if c.IsSet(flagBackend) {
		cfg.ONNX.Backend = providers.ProviderBackend(c.String(flagBackend))
	}
	if c.IsSet(flagTop) {
		cfg.Classifier.TopK = c.Int(flagTop)
	}

	d := &cfg.Detector
	if c.IsSet(flagWidth) {
		d.WindowWidth = c.Int(flagWidth)
	}
	if c.IsSet(flagHeight) {
		d.WindowHeight = c.Int(flagHeight)
	}
	if c.IsSet(flagStep) {
		d.StepSize = c.Int(flagStep)
	}
	if c.IsSet(flagScale) {
		d.PyramidScale = c.Float64(flagScale)
	}
	if c.IsSet(flagThreshold) {
		d.DetectionThreshold = float32(c.Float64(flagThreshold))
	}
	if c.IsSet(flagOverlap) {
		d.NMS.Threshold = float32(c.Float64(flagOverlap))
	}
	if c.IsSet(flagGeometry) {
		d.Geometry = detector.Geometry(c.String(flagGeometry))
	}
	if c.IsSet(flagWorkers) {
		d.Workers = c.Int(flagWorkers)
	}
	if c.IsSet(flagOutputDir) {
		cfg.Render.OutputDir = c.String(flagOutputDir)
	}

	if err := d.Validate(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.ONNX.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newClassifier(cfg config.Config, logger *zap.Logger) (*classifier.Classifier, error) {
	return classifier.New(cfg.Classifier, cfg.ONNX, classifier.WithLogger(logger.Named("classifier")))
}

func runClassify(c *cli.Context, logger *zap.Logger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	img, err := images.Load(c.String(flagImage))
	if err != nil {
		return err
	}

	cls, err := newClassifier(cfg, logger)
	if err != nil {
		return err
	}
	defer cls.Close()

	predictions, err := cls.Classify(c.Context, img)
	if err != nil {
		return errors.Wrap(err, "classification failed")
	}
	return writeJSON(c.App.Writer, classes(predictions))
}

// pipeline bundles what detect and batch share.
type pipeline struct {
	cfg      config.Config
	detector *detector.Detector
	profiler *profiler.Profiler
	logger   *zap.Logger
	render   bool
}

func newPipeline(c *cli.Context, oracle detector.Classifier, cfg config.Config, logger *zap.Logger) (*pipeline, error) {
	p := profiler.New(1000)
	det, err := detector.New(oracle, cfg.Detector,
		detector.WithLogger(logger.Named("detector")),
		detector.WithProfiler(p),
	)
	if err != nil {
		return nil, err
	}
	return &pipeline{
		cfg:      cfg,
		detector: det,
		profiler: p,
		logger:   logger,
		render:   !c.Bool(flagNoRender),
	}, nil
}

func (p *pipeline) run(c *cli.Context, path string, img image.Image) (report, error) {
	results, err := p.detector.Detect(c.Context, img)
	if err != nil {
		return report{}, errors.Wrapf(err, "detection failed for %s", path)
	}

	rep := report{Image: path, Detections: results}
	if p.render {
		out, err := render.Overlay(img, path, results, p.cfg.Render)
		if err != nil {
			return report{}, err
		}
		rep.Output = out
	}
	return rep, nil
}

func runDetect(c *cli.Context, logger *zap.Logger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	path := c.String(flagImage)
	img, err := images.Load(path)
	if err != nil {
		return err
	}

	cls, err := newClassifier(cfg, logger)
	if err != nil {
		return err
	}
	defer cls.Close()

	p, err := newPipeline(c, cls, cfg, logger)
	if err != nil {
		return err
	}
	rep, err := p.run(c, path, img)
	if err != nil {
		return err
	}
	p.profiler.Report(logger)
	return writeJSON(c.App.Writer, rep)
}

func runBatch(c *cli.Context, logger *zap.Logger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	files, err := util.LoadDirectoryImageFiles(c.String(flagDir))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("no images found", zap.String("dir", c.String(flagDir)))
		return nil
	}

	cls, err := newClassifier(cfg, logger)
	if err != nil {
		return err
	}
	defer cls.Close()

	p, err := newPipeline(c, cls, cfg, logger)
	if err != nil {
		return err
	}

	failed, err := p.runFiles(c, files)
	if err != nil {
		return err
	}

	p.profiler.Report(logger)
	logger.Info("batch finished", zap.Int("images", len(files)), zap.Int("failed", failed))
	return nil
}

// runFiles detects every loaded file in order and prints one report per image.
// Files that do not decode are logged and counted.
func (p *pipeline) runFiles(c *cli.Context, files []util.ImageFile) (int, error) {
	failed := 0
	for _, f := range files {
		if err := c.Context.Err(); err != nil {
			return failed, err
		}
		img, err := images.Decode(f.Data, f.Format)
		if err != nil {
			p.logger.Error("skipping unreadable image", zap.String("path", f.Path), zap.Error(err))
			failed++
			continue
		}
		rep, err := p.run(c, f.Path, img)
		if err != nil {
			return failed, err
		}
		if err := writeJSON(c.App.Writer, rep); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// writeJSON prints v as one JSON line.
func writeJSON(w io.Writer, v any) error {
	return errors.Wrap(json.NewEncoder(w).Encode(v), "failed to write output")
}
