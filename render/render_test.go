package render

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-windet/images"
	"github.com/nvr-ai/go-windet/models/postprocess"
)

func TestOutputPath(t *testing.T) {
	opts := DefaultOptions()

	tests := []struct {
		name  string
		input string
		dir   string
		want  string
	}{
		{"Next to input", "/data/cats/tabby.png", "", "/data/cats/tabby_wsliding.jpg"},
		{"Dotted directory", "/data/v1.2/cat.jpeg", "", "/data/v1.2/cat_wsliding.jpg"},
		{"Output directory", "/data/cats/tabby.png", "/tmp/out", "/tmp/out/tabby_wsliding.jpg"},
		{"No extension", "photo", "", "photo_wsliding.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := opts
			o.OutputDir = tt.dir
			assert.Equal(t, filepath.FromSlash(tt.want), OutputPath(filepath.FromSlash(tt.input), o))
		})
	}
}

func TestCaption(t *testing.T) {
	assert.Equal(t, "0.93: tabby", Caption(postprocess.Result{Label: "tabby", Score: 0.93}))
	assert.Equal(t, "0.988: tabby", Caption(postprocess.Result{Label: "tabby", Score: 0.98765}))
	assert.Equal(t, "1: tabby", Caption(postprocess.Result{Label: "tabby", Score: 1}))
}

func TestOverlay(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.Thickness = 6
	results := []postprocess.Result{{Box: images.Rect{X1: 10, Y1: 10, X2: 60, Y2: 50}, Label: "cat", Score: 0.95}}

	path, err := Overlay(src, "/in/cat.png", results, opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.OutputDir, "cat_wsliding.jpg"), path)

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	require.False(t, mat.Empty())
	assert.Equal(t, 80, mat.Rows())
	assert.Equal(t, 120, mat.Cols())

	// The left edge of the box is green in BGR.
	px := mat.GetVecbAt(30, 10)
	assert.Less(t, int(px[0]), 100)
	assert.Greater(t, int(px[1]), 200)
	assert.Less(t, int(px[2]), 100)

	// Far from the box the image stays white.
	assert.Greater(t, int(mat.GetVecbAt(75, 110)[0]), 200)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, color.RGBA{G: 255, A: 255}, opts.Color)
	assert.Equal(t, 2, opts.Thickness)
	assert.Equal(t, "_wsliding", opts.Suffix)
}
