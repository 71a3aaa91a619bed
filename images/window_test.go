package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func TestSlidingWindow_Coverage(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		step   int
		size   image.Point
	}{
		{"Exact fit", 100, 100, 10, image.Pt(10, 10)},
		{"Uneven", 103, 47, 10, image.Pt(20, 20)},
		{"Step larger than image", 30, 30, 60, image.Pt(20, 20)},
		{"Rectangular window", 640, 480, 60, image.Pt(200, 100)},
		{"Step of one", 9, 7, 1, image.Pt(3, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := newTestImage(tt.width, tt.height)

			count := 0
			full := 0
			for win := range SlidingWindow(img, tt.step, tt.size) {
				count++
				assert.Equal(t, 0, win.X%tt.step)
				assert.Equal(t, 0, win.Y%tt.step)
				assert.Equal(t, win.Width, win.Image.Bounds().Dx())
				assert.Equal(t, win.Height, win.Image.Bounds().Dy())
				assert.LessOrEqual(t, win.X+win.Width, tt.width)
				assert.LessOrEqual(t, win.Y+win.Height, tt.height)
				if win.Full(tt.size) {
					full++
				}
			}

			assert.Equal(t, ceilDiv(tt.height, tt.step)*ceilDiv(tt.width, tt.step), count)

			fullX := 0
			for x := 0; x+tt.size.X <= tt.width; x += tt.step {
				fullX++
			}
			fullY := 0
			for y := 0; y+tt.size.Y <= tt.height; y += tt.step {
				fullY++
			}
			assert.Equal(t, fullX*fullY, full)
		})
	}
}

func TestSlidingWindow_RowMajorOrder(t *testing.T) {
	img := newTestImage(30, 20)

	var got []image.Point
	for win := range SlidingWindow(img, 10, image.Pt(10, 10)) {
		got = append(got, image.Pt(win.X, win.Y))
	}

	assert.Equal(t, []image.Point{
		{0, 0}, {10, 0}, {20, 0},
		{0, 10}, {10, 10}, {20, 10},
	}, got)
}

func TestSlidingWindow_CropPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(2, 2, color.RGBA{R: 255, A: 255})

	for win := range SlidingWindow(img, 2, image.Pt(2, 2)) {
		if win.X != 2 || win.Y != 2 {
			continue
		}
		b := win.Image.Bounds()
		r, _, _, _ := win.Image.At(b.Min.X, b.Min.Y).RGBA()
		assert.Equal(t, uint32(0xffff), r, "top-left of the crop must be the source pixel at (2,2)")
	}
}

func TestSlidingWindow_OffsetBounds(t *testing.T) {
	base := newTestImage(50, 50)
	sub := base.SubImage(image.Rect(10, 10, 40, 40))

	count := 0
	for win := range SlidingWindow(sub, 15, image.Pt(15, 15)) {
		count++
		require.True(t, win.Full(image.Pt(15, 15)))
		assert.Equal(t, image.Pt(10+win.X, 10+win.Y), win.Image.Bounds().Min)
	}
	assert.Equal(t, 4, count)
}

func TestSlidingWindow_InvalidArguments(t *testing.T) {
	img := newTestImage(10, 10)

	for range SlidingWindow(img, 0, image.Pt(5, 5)) {
		t.Fatal("zero step must not yield")
	}
	for range SlidingWindow(img, 5, image.Pt(0, 5)) {
		t.Fatal("zero width must not yield")
	}
	for range SlidingWindow(nil, 5, image.Pt(5, 5)) {
		t.Fatal("nil image must not yield")
	}
}

// plainImage hides SubImage so Crop has to copy.
type plainImage struct {
	image.Image
}

func TestCrop_CopiesWithoutSubImage(t *testing.T) {
	src := newTestImage(20, 20)
	crop := Crop(plainImage{src}, image.Rect(5, 5, 15, 12))

	assert.Equal(t, image.Rect(0, 0, 10, 7), crop.Bounds())
	assert.Equal(t, src.At(5, 5), crop.At(0, 0))
	assert.Equal(t, src.At(14, 11), crop.At(9, 6))
}

func TestWindowRect(t *testing.T) {
	win := Window{X: 10, Y: 20, Width: 30, Height: 40}
	assert.Equal(t, Rect{10, 20, 40, 60}, win.Rect())
	assert.True(t, win.Full(image.Pt(30, 40)))
	assert.False(t, win.Full(image.Pt(40, 30)))
}
