// Package images - Image geometry, pyramids and window scanning.
package images

import "image"

// Rect is a lightweight bounding box given by its corners.
//
// Window boxes follow the discrete-pixel convention: X2,Y2 name the last covered
// pixel, so the inclusive helpers (InclusiveArea, OverlapRatio) count both edges.
// CalculateIoU treats X2,Y2 as exclusive like image.Rectangle.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// RectFromImage converts an image.Rectangle into a Rect.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// ToImage converts the Rect into a canonical image.Rectangle.
func (r Rect) ToImage() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2).Canon()
}

// Width returns X2-X1.
func (r Rect) Width() int {
	return r.X2 - r.X1
}

// Height returns Y2-Y1.
func (r Rect) Height() int {
	return r.Y2 - r.Y1
}

// InclusiveArea returns (X2-X1+1)*(Y2-Y1+1), counting the pixels on both edges.
//
// Returns:
//   - int: The inclusive area, or 0 for an inverted rectangle.
func (r Rect) InclusiveArea() int {
	w := r.X2 - r.X1 + 1
	h := r.Y2 - r.Y1 + 1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// InclusiveIntersection returns the inclusive pixel area shared by r and o.
func (r Rect) InclusiveIntersection(o Rect) int {
	w := min(r.X2, o.X2) - max(r.X1, o.X1) + 1
	h := min(r.Y2, o.Y2) - max(r.Y1, o.Y1) + 1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// OverlapRatio returns the share of ref covered by r: intersection / area(ref).
//
// The metric is asymmetric; the denominator is always the area of ref.
//
// Arguments:
//   - r (receiver Rect): The box doing the covering.
//   - ref (Rect): The box whose own area is the denominator.
//
// Returns:
//   - float32: A value between 0.0 and 1.0, or 0 when ref has no area.
//
// Example Usage:
// ```go
//
//	kept := Rect{X1: 0, Y1: 0, X2: 9, Y2: 9}   // 100 px
//	other := Rect{X1: 5, Y1: 0, X2: 14, Y2: 9} // 100 px, 50 shared
//	kept.OverlapRatio(other)                   // 0.5
//
// ```
func (r Rect) OverlapRatio(ref Rect) float32 {
	area := ref.InclusiveArea()
	if area == 0 {
		return 0
	}
	return float32(r.InclusiveIntersection(ref)) / float32(area)
}

// Clamp limits every coordinate to [bounds.Min, bounds.Max].
func (r Rect) Clamp(bounds image.Rectangle) Rect {
	clamp := func(v, lo, hi int) int {
		return max(lo, min(v, hi))
	}
	return Rect{
		X1: clamp(r.X1, bounds.Min.X, bounds.Max.X),
		Y1: clamp(r.Y1, bounds.Min.Y, bounds.Max.Y),
		X2: clamp(r.X2, bounds.Min.X, bounds.Max.X),
		Y2: clamp(r.Y2, bounds.Min.Y, bounds.Max.Y),
	}
}

// CalculateIoU returns the Intersection over Union of two rectangles.
//
//	IoU = Area of Intersection / Area of Union
//
// 1.0 means the rectangles are identical, 0.0 means they do not overlap.
// X2,Y2 are treated as exclusive. Used by the confidence-ordered NMS variant.
//
// Example Usage:
// ```go
//
//	rect1 := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	rect2 := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	CalculateIoU(rect1, rect2) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	// Non-overlapping rectangles have zero or negative extent.
	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
	areaR := (r.X2 - r.X1) * (r.Y2 - r.Y1)
	areaO := (o.X2 - o.X1) * (o.Y2 - o.Y1)
	unionArea := areaR + areaO - interArea

	return float32(interArea) / float32(unionArea)
}
