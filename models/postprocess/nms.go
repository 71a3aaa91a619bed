// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-windet/images"
)

// NMSMethod selects the suppression policy.
type NMSMethod string

const (
	// NMSBottomEdge orders boxes by their bottom edge and measures overlap against the
	// suppressed box's own area. This is the default.
	NMSBottomEdge NMSMethod = "bottom-edge"
	// NMSIoU orders boxes by descending score and suppresses on IoU.
	NMSIoU NMSMethod = "iou"
)

// DefaultOverlapThreshold is the overlap above which a box is suppressed.
const DefaultOverlapThreshold = 0.2

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Suppression policy, empty means NMSBottomEdge.
	Method NMSMethod `json:"method" yaml:"method"`
	// Overlap threshold for suppression.
	Threshold float32 `json:"threshold" yaml:"threshold"`
	// If true, suppress only within the same label.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// DefaultNMSConfig returns bottom-edge suppression at DefaultOverlapThreshold.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{
		Method:    NMSBottomEdge,
		Threshold: DefaultOverlapThreshold,
	}
}

// SuppressIndices runs bottom-edge greedy suppression and returns the kept indices.
//
// Boxes are ordered by ascending Y2. The box with the largest remaining Y2 is kept,
// then every other remaining box j whose intersection with it covers more than
// overlapThreshold of area(j) is dropped, until no box remains. Areas count pixels
// inclusively, (x2-x1+1)*(y2-y1+1). The confidence of a box never influences the
// choice; scores is accepted only to keep the signature parallel to SuppressIoUIndices.
//
// Arguments:
//   - boxes: Candidate boxes.
//   - scores: Scores parallel to boxes (unused).
//   - overlapThreshold: A box is dropped when its overlap ratio exceeds this value.
//
// Returns:
//   - []int: Kept indices in pick order, largest Y2 first. Empty input yields an
//     empty, non-nil slice.
func SuppressIndices(boxes []images.Rect, scores []float32, overlapThreshold float32) []int {
	return suppressBottomEdge(boxes, overlapThreshold, nil)
}

// SuppressIoUIndices runs score-ordered greedy IoU suppression and returns the kept
// indices, highest score first. Ties keep their input order.
func SuppressIoUIndices(boxes []images.Rect, scores []float32, iouThreshold float32) []int {
	return suppressIoU(boxes, scores, iouThreshold, nil)
}

// ApplyNMS filters overlapping detections using Non-Maximum Suppression.
//
// Arguments:
//   - results: Candidate detections in collection order.
//   - config: NMS configuration.
//
// Returns:
//   - Kept detections in pick order. If no detections are provided, returns an empty slice.
func ApplyNMS(results []Result, config NMSConfig) []Result {
	var sameGroup func(i, j int) bool
	if config.ClassAware {
		sameGroup = func(i, j int) bool {
			return results[i].Label == results[j].Label
		}
	}

	boxes := Boxes(results)
	var keep []int
	switch config.Method {
	case NMSIoU:
		keep = suppressIoU(boxes, Scores(results), config.Threshold, sameGroup)
	default:
		keep = suppressBottomEdge(boxes, config.Threshold, sameGroup)
	}

	filtered := make([]Result, 0, len(keep))
	for _, i := range keep {
		filtered = append(filtered, results[i])
	}
	return filtered
}

func suppressBottomEdge(boxes []images.Rect, threshold float32, sameGroup func(i, j int) bool) []int {
	pick := make([]int, 0, len(boxes))
	if len(boxes) == 0 {
		return pick
	}

	idxs := make([]int, len(boxes))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return boxes[idxs[a]].Y2 < boxes[idxs[b]].Y2
	})

	for len(idxs) > 0 {
		last := len(idxs) - 1
		i := idxs[last]
		pick = append(pick, i)

		// Filter in place; the write position never passes the read position.
		remaining := idxs[:0]
		for _, j := range idxs[:last] {
			if (sameGroup == nil || sameGroup(i, j)) && boxes[i].OverlapRatio(boxes[j]) > threshold {
				continue
			}
			remaining = append(remaining, j)
		}
		idxs = remaining
	}

	return pick
}

func suppressIoU(boxes []images.Rect, scores []float32, threshold float32, sameGroup func(i, j int) bool) []int {
	n := min(len(boxes), len(scores))
	pick := make([]int, 0, n)
	if n == 0 {
		return pick
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	used := make([]bool, n)
	for oi, i := range order {
		if used[i] {
			continue
		}
		pick = append(pick, i)
		used[i] = true

		for _, j := range order[oi+1:] {
			if used[j] {
				continue
			}
			if sameGroup != nil && !sameGroup(i, j) {
				continue
			}
			if images.CalculateIoU(boxes[i], boxes[j]) > threshold {
				used[j] = true
			}
		}
	}

	return pick
}
