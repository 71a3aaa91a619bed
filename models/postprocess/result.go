// Package postprocess - Postprocessing utilities for window detections.
package postprocess

import (
	"encoding/json"
	"math"

	"github.com/nvr-ai/go-windet/images"
)

// Result represents a single detection result, a window whose top-1 prediction
// passed the detection threshold.
type Result struct {
	// The bounding box of the result in original-image pixels.
	Box images.Rect
	// The predicted label of the result.
	Label string
	// The confidence score of the result, in [0, 1].
	Score float32
	// The pyramid level the window was found on.
	Level int
}

// Boxes returns the boxes of results as a parallel slice.
func Boxes(results []Result) []images.Rect {
	boxes := make([]images.Rect, len(results))
	for i, r := range results {
		boxes[i] = r.Box
	}
	return boxes
}

// Scores returns the scores of results as a parallel slice.
func Scores(results []Result) []float32 {
	scores := make([]float32, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	return scores
}

// RoundScore rounds a confidence to three decimals for reporting.
func RoundScore(score float32) float64 {
	return math.Round(float64(score)*1000) / 1000
}

// MarshalJSON encodes the result as {"<label>": [x1, y1, x2, y2, score]}.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][5]float64{
		r.Label: {
			float64(r.Box.X1),
			float64(r.Box.Y1),
			float64(r.Box.X2),
			float64(r.Box.Y2),
			RoundScore(r.Score),
		},
	})
}
