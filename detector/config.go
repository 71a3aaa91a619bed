// Package detector - Configuration for multi-scale window detection.
package detector

import (
	"image"

	"github.com/nvr-ai/go-windet/models/postprocess"
)

// Geometry selects how a window found on a pyramid level is mapped back to
// original-image coordinates.
type Geometry string

const (
	// GeometryReference keeps the window's top-left corner as found on its level and
	// grows only the bottom-right extent by PyramidScale^level. This reproduces the
	// boxes of the reference pipeline.
	GeometryReference Geometry = "reference"
	// GeometryScaled maps the whole window, origin included, by the level's actual
	// cumulative scale factor.
	GeometryScaled Geometry = "scaled"
)

// Defaults from the reference pipeline.
const (
	DefaultWindowWidth        = 200
	DefaultWindowHeight       = 200
	DefaultStepSize           = 60
	DefaultPyramidScale       = 1.3
	DefaultDetectionThreshold = 0.90
)

// Config represents the configuration of a window Detector.
type Config struct {
	// WindowWidth is the width of every classified window in pixels.
	WindowWidth int `json:"window_width" yaml:"window_width"`

	// WindowHeight is the height of every classified window in pixels.
	WindowHeight int `json:"window_height" yaml:"window_height"`

	// StepSize is the stride between windows along both axes.
	StepSize int `json:"step_size" yaml:"step_size"`

	// PyramidScale is the downscale factor between pyramid levels, > 1.
	PyramidScale float64 `json:"pyramid_scale" yaml:"pyramid_scale"`

	// DetectionThreshold keeps windows whose top-1 confidence is strictly greater.
	DetectionThreshold float32 `json:"detection_threshold" yaml:"detection_threshold"`

	// NMS controls suppression of overlapping candidates.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms"`

	// Geometry selects the box mapping, empty means GeometryReference.
	Geometry Geometry `json:"geometry" yaml:"geometry"`

	// Workers is the number of windows classified concurrently on one level.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the reference pipeline settings: 200x200 windows every 60
// pixels, a 1.3 pyramid, a 0.90 threshold and bottom-edge NMS at 0.2.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// cfg := DefaultConfig()
// cfg.StepSize = 32
// d, err := New(classifier, cfg)
func DefaultConfig() Config {
	return Config{
		WindowWidth:        DefaultWindowWidth,
		WindowHeight:       DefaultWindowHeight,
		StepSize:           DefaultStepSize,
		PyramidScale:       DefaultPyramidScale,
		DetectionThreshold: DefaultDetectionThreshold,
		NMS:                postprocess.DefaultNMSConfig(),
		Geometry:           GeometryReference,
		Workers:            1,
	}
}

// WindowSize returns the window dimensions as a point (X = width, Y = height).
func (c Config) WindowSize() image.Point {
	return image.Pt(c.WindowWidth, c.WindowHeight)
}

// Validate checks every field and returns the first problem as a *ConfigurationError.
func (c Config) Validate() error {
	switch {
	case c.WindowWidth <= 0:
		return &ConfigurationError{Field: "window_width", Reason: "must be positive"}
	case c.WindowHeight <= 0:
		return &ConfigurationError{Field: "window_height", Reason: "must be positive"}
	case c.StepSize <= 0:
		return &ConfigurationError{Field: "step_size", Reason: "must be positive"}
	case c.PyramidScale <= 1:
		return &ConfigurationError{Field: "pyramid_scale", Reason: "must be greater than 1"}
	case c.DetectionThreshold < 0 || c.DetectionThreshold > 1:
		return &ConfigurationError{Field: "detection_threshold", Reason: "must be within [0, 1]"}
	case c.NMS.Threshold < 0:
		return &ConfigurationError{Field: "nms.threshold", Reason: "must not be negative"}
	case c.NMS.Method != "" && c.NMS.Method != postprocess.NMSBottomEdge && c.NMS.Method != postprocess.NMSIoU:
		return &ConfigurationError{Field: "nms.method", Reason: "unknown method " + string(c.NMS.Method)}
	case c.Geometry != "" && c.Geometry != GeometryReference && c.Geometry != GeometryScaled:
		return &ConfigurationError{Field: "geometry", Reason: "unknown geometry " + string(c.Geometry)}
	case c.Workers < 1:
		return &ConfigurationError{Field: "workers", Reason: "must be at least 1"}
	}
	return nil
}
