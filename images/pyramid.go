package images

import (
	"image"
	"iter"

	"github.com/nfnt/resize"
)

// Level is one image of a pyramid.
type Level struct {
	// Index is the position in the pyramid; 0 is the original image.
	Index int
	// Image is the pixel data of this level.
	Image image.Image
	// Scale is the cumulative downscale ratio of this level relative to level 0
	// (original width / level width). Level 0 has Scale 1.0.
	Scale float64
}

// Pyramid lazily yields progressively smaller copies of img.
//
// Level 0 is img itself. Every further level divides the previous width by scale and
// recomputes the height to keep the aspect ratio, resampling with filter. The sequence
// ends as soon as the next level would be narrower than minSize.X or shorter than
// minSize.Y, so an input already below minSize yields only itself. A scale <= 1 also
// yields only level 0 because the sequence could never shrink.
//
// Arguments:
//   - img: The original image.
//   - scale: The downscale factor per step, > 1.
//   - minSize: The smallest width and height a level may have.
//   - filter: The resampling filter, e.g. resize.Bilinear.
//
// Returns:
//   - iter.Seq[Level]: A single-pass sequence; call Pyramid again to restart.
//
// @example
//
//	for level := range images.Pyramid(img, 1.3, image.Pt(200, 200), resize.Bilinear) {
//		fmt.Println(level.Index, level.Image.Bounds().Dx())
//	}
func Pyramid(img image.Image, scale float64, minSize image.Point, filter resize.InterpolationFunction) iter.Seq[Level] {
	return func(yield func(Level) bool) {
		if img == nil {
			return
		}
		origW := img.Bounds().Dx()
		if !yield(Level{Index: 0, Image: img, Scale: 1.0}) {
			return
		}
		if scale <= 1 {
			return
		}

		current := img
		for index := 1; ; index++ {
			w := current.Bounds().Dx()
			h := current.Bounds().Dy()
			if w < minSize.X || h < minSize.Y {
				return
			}

			newW := int(float64(w) / scale)
			newH := int(float64(h) * float64(newW) / float64(w))
			if newW < 1 || newH < 1 || newW < minSize.X || newH < minSize.Y {
				return
			}

			current = resize.Resize(uint(newW), uint(newH), current, filter)
			if !yield(Level{Index: index, Image: current, Scale: float64(origW) / float64(newW)}) {
				return
			}
		}
	}
}
