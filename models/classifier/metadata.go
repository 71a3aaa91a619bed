// Package classifier - ONNX image classifier used as the window oracle.
package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-windet/inference"
)

// Metadata describes a classifier model exported next to its .onnx file.
//
// Example model_metadata.json:
//
//	{
//	  "input_shape": [1, 299, 299, 3],
//	  "output_shape": [1, 1000],
//	  "classes": ["tench", "goldfish", "..."],
//	  "image_size": 299,
//	  "input_name": "input_1",
//	  "output_name": "predictions",
//	  "softmax": false
//	}
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	// InputName defaults to "input".
	InputName string `json:"input_name,omitempty"`
	// OutputName defaults to "output".
	OutputName string `json:"output_name,omitempty"`
	// Layout is "chw" or "hwc"; inferred from InputShape when empty.
	Layout inference.Layout `json:"layout,omitempty"`
	// Softmax applies a softmax to raw logits before ranking.
	Softmax bool `json:"softmax,omitempty"`
}

// LoadMetadata reads and validates a metadata file.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "failed to read metadata")
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to parse metadata")
	}
	if err := meta.normalize(); err != nil {
		return Metadata{}, errors.Wrapf(err, "invalid metadata %s", path)
	}
	return meta, nil
}

// normalize fills defaults and checks shapes against the class list.
func (m *Metadata) normalize() error {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}

	if len(m.InputShape) != 4 {
		return errors.Errorf("input_shape must have 4 dimensions, got %v", m.InputShape)
	}
	if m.Layout == "" {
		switch {
		case m.InputShape[1] == 3:
			m.Layout = inference.LayoutCHW
		case m.InputShape[3] == 3:
			m.Layout = inference.LayoutHWC
		default:
			return errors.Errorf("cannot infer channel layout from %v", m.InputShape)
		}
	}
	if m.Layout != inference.LayoutCHW && m.Layout != inference.LayoutHWC {
		return errors.Errorf("unknown layout %q", m.Layout)
	}
	for _, d := range m.InputShape {
		if d <= 0 {
			return errors.Errorf("input_shape must be static, got %v", m.InputShape)
		}
	}

	outputs := int64(1)
	for _, d := range m.OutputShape {
		if d <= 0 {
			return errors.Errorf("output_shape must be static, got %v", m.OutputShape)
		}
		outputs *= d
	}
	if len(m.OutputShape) == 0 {
		return errors.New("output_shape is required")
	}
	if len(m.Classes) == 0 {
		m.Classes = make([]string, outputs)
		for i := range m.Classes {
			m.Classes[i] = fmt.Sprintf("class_%d", i)
		}
	}
	if int64(len(m.Classes)) != outputs {
		return errors.Errorf("%d classes for %d outputs", len(m.Classes), outputs)
	}

	w, h := m.inputSize()
	if m.ImageSize != 0 && (m.ImageSize != w || m.ImageSize != h) {
		return errors.Errorf("image_size %d does not match input_shape %v", m.ImageSize, m.InputShape)
	}
	return nil
}

// inputSize returns the width and height of the model input.
func (m Metadata) inputSize() (int, int) {
	if m.Layout == inference.LayoutHWC {
		return int(m.InputShape[2]), int(m.InputShape[1])
	}
	return int(m.InputShape[3]), int(m.InputShape[2])
}
