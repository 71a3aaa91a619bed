package images

import (
	"fmt"
	"image"
	"testing"

	"github.com/nfnt/resize"
)

// Benchmarks for the pyramid and window scan at common camera resolutions with the
// default 200x200 window.

var benchmarkResolutions = []struct {
	name          string
	width, height int
}{
	{"VGA", 640, 480},
	{"HD", 1280, 720},
	{"FullHD", 1920, 1080},
}

// BenchmarkPyramid measures resampling every level down to the window size.
func BenchmarkPyramid(b *testing.B) {
	for _, res := range benchmarkResolutions {
		img := image.NewRGBA(image.Rect(0, 0, res.width, res.height))
		b.Run(res.name, func(b *testing.B) {
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				for range Pyramid(img, 1.3, image.Pt(200, 200), resize.Bilinear) {
				}
			}
		})
	}
}

// BenchmarkSlidingWindow measures cropping on a single level; crops share pixels with
// the source so the cost is dominated by the iterator.
func BenchmarkSlidingWindow(b *testing.B) {
	for _, step := range []int{30, 60, 120} {
		img := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
		b.Run(fmt.Sprintf("step=%d", step), func(b *testing.B) {
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				n := 0
				for range SlidingWindow(img, step, image.Pt(200, 200)) {
					n++
				}
				_ = n
			}
		})
	}
}
