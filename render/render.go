// Package render - Draws detections on the source image and writes the overlay artifact.
package render

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-windet/images"
	"github.com/nvr-ai/go-windet/models/postprocess"
)

// Options controls how detections are drawn.
type Options struct {
	// Suffix is appended to the input file's base name.
	Suffix string `json:"suffix" yaml:"suffix"`
	// OutputDir receives the overlay, empty means next to the input image.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// Color of boxes and captions.
	Color color.RGBA `json:"color" yaml:"color"`
	// Thickness of the box outline in pixels.
	Thickness int `json:"thickness" yaml:"thickness"`
	// FontScale of the caption.
	FontScale float64 `json:"font_scale" yaml:"font_scale"`
}

// DefaultOptions returns green boxes, two pixels wide, with 0.8 captions written to
// "<name>_wsliding.jpg".
func DefaultOptions() Options {
	return Options{
		Suffix:    "_wsliding",
		Color:     color.RGBA{R: 0, G: 255, B: 0, A: 255},
		Thickness: 2,
		FontScale: 0.8,
	}
}

// OutputPath returns where the overlay for imagePath is written:
// <dir>/<base without extension><suffix>.jpg.
func OutputPath(imagePath string, opts Options) string {
	dir := opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(imagePath)
	}
	base := filepath.Base(imagePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+opts.Suffix+".jpg")
}

// Caption returns "<confidence>: <label>" with the confidence rounded to three decimals.
func Caption(r postprocess.Result) string {
	return strconv.FormatFloat(postprocess.RoundScore(r.Score), 'f', -1, 64) + ": " + r.Label
}

// Draw paints every result on mat in place.
func Draw(mat *gocv.Mat, results []postprocess.Result, opts Options) {
	for _, r := range results {
		gocv.Rectangle(mat, r.Box.ToImage(), opts.Color, opts.Thickness)
		gocv.PutText(mat, Caption(r), image.Pt(r.Box.X1, r.Box.Y1+20),
			gocv.FontHersheySimplex, opts.FontScale, opts.Color, 1)
	}
}

// Overlay draws results on a copy of img and writes it as JPEG next to imagePath.
//
// Arguments:
//   - img: The original image the results refer to.
//   - imagePath: The path img was loaded from, used to name the artifact.
//   - results: The detections to draw.
//   - opts: Drawing options.
//
// Returns:
//   - string: The path of the written overlay.
//   - error: An error if conversion or writing fails.
func Overlay(img image.Image, imagePath string, results []postprocess.Result, opts Options) (string, error) {
	// ImageToMatRGB produces BGR channel order, which IMWrite expects.
	mat, err := gocv.ImageToMatRGB(images.ToRGBA(img))
	if err != nil {
		return "", errors.Wrap(err, "failed to convert image")
	}
	defer mat.Close()

	Draw(&mat, results, opts)

	path := OutputPath(imagePath, opts)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}
	if !gocv.IMWrite(path, mat) {
		return "", errors.Errorf("failed to write overlay %s", path)
	}
	return path, nil
}
