package images

import (
	"image"
	"image/draw"
	"iter"
)

// Window is one crop proposed by SlidingWindow.
type Window struct {
	// X, Y is the top-left corner in the scanned image's local coordinates.
	X, Y int
	// Width, Height is the size of the extracted crop. Crops at the right and bottom
	// edges are clipped and may be smaller than the requested window size.
	Width, Height int
	// Image is the crop itself.
	Image image.Image
}

// Full reports whether the crop has exactly the requested size.
func (w Window) Full(size image.Point) bool {
	return w.Width == size.X && w.Height == size.Y
}

// Rect returns the window's box in local coordinates with exclusive X2,Y2.
func (w Window) Rect() Rect {
	return Rect{X1: w.X, Y1: w.Y, X2: w.X + w.Width, Y2: w.Y + w.Height}
}

// SlidingWindow lazily yields crops of img on a step grid, row by row.
//
// Top-left corners run over 0 <= y < height and 0 <= x < width in increments of step,
// so ceil(height/step) * ceil(width/step) windows are produced. Windows near the right
// and bottom edges are clipped to the image; callers that need a fixed size filter
// them with Window.Full. A step or size below 1 produces nothing.
//
// Arguments:
//   - img: The image to scan.
//   - step: The stride in pixels along both axes.
//   - size: The requested window width (X) and height (Y).
//
// Returns:
//   - iter.Seq[Window]: A single-pass sequence of windows.
func SlidingWindow(img image.Image, step int, size image.Point) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		if img == nil || step < 1 || size.X < 1 || size.Y < 1 {
			return
		}
		b := img.Bounds()
		for y := 0; y < b.Dy(); y += step {
			for x := 0; x < b.Dx(); x += step {
				r := image.Rect(x, y, x+size.X, y+size.Y).Add(b.Min).Intersect(b)
				win := Window{
					X:      x,
					Y:      y,
					Width:  r.Dx(),
					Height: r.Dy(),
					Image:  Crop(img, r),
				}
				if !yield(win) {
					return
				}
			}
		}
	}
}

// subImager is implemented by the standard library image types.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop returns the part of img inside r, given in img's own coordinate space.
//
// The standard image types share pixel memory with img; other implementations are
// copied into a new RGBA anchored at the origin.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}
