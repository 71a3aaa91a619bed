// Package config - YAML configuration of the detection pipeline.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-windet/detector"
	"github.com/nvr-ai/go-windet/inference/providers"
	"github.com/nvr-ai/go-windet/models/classifier"
	"github.com/nvr-ai/go-windet/render"
)

// Config is the root document of a windet YAML file.
//
// Example:
//
//	detector:
//	  window_width: 200
//	  window_height: 200
//	  step_size: 60
//	  pyramid_scale: 1.3
//	  detection_threshold: 0.9
//	  nms:
//	    method: bottom-edge
//	    threshold: 0.2
//	classifier:
//	  model_path: models/inception_v3.onnx
//	  metadata_path: models/inception_v3.json
//	onnx:
//	  backend: cpu
type Config struct {
	Detector   detector.Config   `json:"detector" yaml:"detector"`
	Classifier classifier.Config `json:"classifier" yaml:"classifier"`
	Render     render.Options    `json:"render" yaml:"render"`
	ONNX       providers.Config  `json:"onnx" yaml:"onnx"`
}

// Default returns the defaults of every section.
func Default() Config {
	return Config{
		Detector:   detector.DefaultConfig(),
		Classifier: classifier.DefaultConfig(),
		Render:     render.DefaultOptions(),
		ONNX:       providers.DefaultConfig(),
	}
}

// Load reads a YAML file on top of Default. Keys missing from the file keep their
// default values; unknown keys are rejected.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - Config: The merged configuration.
//   - error: An error if the file cannot be read or parsed, or fails validation.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML bytes on top of Default and validates the detector and ONNX
// sections. The classifier section is validated when a classifier is created.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}

	if err := cfg.Detector.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.ONNX.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
