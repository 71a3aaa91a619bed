// Package inference - Classifier input preparation.
package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Normalization defines how 8-bit pixel values are mapped into the input tensor.
type Normalization string

const (
	// NormalizeInception scales pixel values to [-1, 1] with x/127.5 - 1.
	NormalizeInception Normalization = "inception"
	// NormalizeUnit scales pixel values to [0, 1].
	NormalizeUnit Normalization = "unit"
	// NormalizeImageNet applies the ImageNet mean and std per channel after scaling to [0, 1].
	NormalizeImageNet Normalization = "imagenet"
)

var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Valid reports whether n names a known normalization.
func (n Normalization) Valid() bool {
	switch n {
	case NormalizeInception, NormalizeUnit, NormalizeImageNet:
		return true
	}
	return false
}

func (n Normalization) apply(channel int, v uint32) float32 {
	x := float32(v >> 8)
	switch n {
	case NormalizeUnit:
		return x / 255.0
	case NormalizeImageNet:
		return (x/255.0 - imageNetMean[channel]) / imageNetStd[channel]
	default:
		return x/127.5 - 1.0
	}
}

// Layout is the order of the channel axis in the tensor.
type Layout string

const (
	// LayoutCHW stores all red values, then green, then blue ([1, 3, H, W]).
	LayoutCHW Layout = "chw"
	// LayoutHWC interleaves channels per pixel ([1, H, W, 3]).
	LayoutHWC Layout = "hwc"
)

// InputSpec describes the image input of a classifier.
type InputSpec struct {
	Width         int
	Height        int
	Layout        Layout
	Normalization Normalization
	Filter        resize.InterpolationFunction
}

// Size returns the number of float32 values one image occupies.
func (s InputSpec) Size() int {
	return 3 * s.Width * s.Height
}

// Fill resizes img to the spec's dimensions and writes the normalized RGB values
// into dst.
//
// Arguments:
//   - img: The image to convert. Any origin is accepted.
//   - spec: Target size, layout and normalization.
//   - dst: Destination buffer, at least spec.Size() values long.
//
// Returns:
//   - error: An error if the spec is invalid or dst is too small.
func Fill(img image.Image, spec InputSpec, dst []float32) error {
	if img == nil {
		return errors.New("nil image")
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return errors.Errorf("invalid input size %dx%d", spec.Width, spec.Height)
	}
	if len(dst) < spec.Size() {
		return errors.Errorf("destination holds %d floats, needs %d", len(dst), spec.Size())
	}

	b := img.Bounds()
	if b.Dx() != spec.Width || b.Dy() != spec.Height {
		img = resize.Resize(uint(spec.Width), uint(spec.Height), img, spec.Filter)
		b = img.Bounds()
	}

	plane := spec.Width * spec.Height
	i := 0
	for y := 0; y < spec.Height; y++ {
		for x := 0; x < spec.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			rv := spec.Normalization.apply(0, r)
			gv := spec.Normalization.apply(1, g)
			bv := spec.Normalization.apply(2, bl)
			if spec.Layout == LayoutHWC {
				dst[i*3] = rv
				dst[i*3+1] = gv
				dst[i*3+2] = bv
			} else {
				dst[i] = rv
				dst[plane+i] = gv
				dst[2*plane+i] = bv
			}
			i++
		}
	}
	return nil
}

// Tensor is a float32 buffer backed by native memory, such as *ort.Tensor[float32].
type Tensor interface {
	GetData() []float32
}

var _ Tensor = (*ort.Tensor[float32])(nil)

// PrepareInput writes img into an ONNX input tensor.
//
// Arguments:
//   - img: The image to prepare.
//   - spec: Target size, layout and normalization.
//   - dst: The destination tensor to populate.
//
// Returns:
//   - error: An error if the input preparation fails.
func PrepareInput(img image.Image, spec InputSpec, dst Tensor) error {
	if dst == nil {
		return errors.New("prepare input: nil tensor")
	}
	return errors.Wrap(Fill(img, spec, dst.GetData()), "prepare input")
}
