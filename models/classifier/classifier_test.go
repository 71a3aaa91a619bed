package classifier

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-windet/detector"
	"github.com/nvr-ai/go-windet/inference"
)

// buffer stands in for a native tensor.
type buffer []float32

func (b buffer) GetData() []float32 { return b }

// fakeRunner scores "red" with the mean of the first channel plane and "other" with
// its complement, in unit normalization.
type fakeRunner struct {
	input  buffer
	output buffer
	plane  int
	runs   int
	err    error
	closed bool
}

func (f *fakeRunner) Run() error {
	if f.err != nil {
		return f.err
	}
	f.runs++
	var sum float32
	for _, v := range f.input[:f.plane] {
		sum += v
	}
	mean := sum / float32(f.plane)
	f.output[0] = 1 - mean
	f.output[1] = mean
	f.output[2] = 0
	return nil
}

func (f *fakeRunner) Close() error {
	f.closed = true
	return nil
}

func testMetadata() Metadata {
	return Metadata{
		InputShape:  []int64{1, 3, 8, 8},
		OutputShape: []int64{1, 3},
		Classes:     []string{"other", "red", "never"},
		InputName:   "input",
		OutputName:  "output",
		Layout:      inference.LayoutCHW,
	}
}

func newTestClassifier(topK int) (*Classifier, *fakeRunner) {
	meta := testMetadata()
	run := &fakeRunner{
		input:  make(buffer, 3*8*8),
		output: make(buffer, 3),
		plane:  64,
	}
	cfg := DefaultConfig()
	cfg.Normalization = inference.NormalizeUnit
	cfg.TopK = topK
	return newClassifier(run, run.input, run.output, meta, cfg), run
}

func fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestClassify_RanksPredictions(t *testing.T) {
	c, run := newTestClassifier(2)

	predictions, err := c.Classify(context.Background(), fill(32, 32, color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, "red", predictions[0].Label)
	assert.InDelta(t, 1.0, predictions[0].Confidence, 0.01)
	assert.Equal(t, "other", predictions[1].Label)
	assert.Equal(t, 1, run.runs)

	predictions, err = c.Classify(context.Background(), fill(8, 8, color.RGBA{B: 255, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, "other", predictions[0].Label)
	assert.Equal(t, image.Pt(8, 8), c.InputSize())
}

func TestClassify_ImplementsDetectorOracle(t *testing.T) {
	c, _ := newTestClassifier(1)

	var oracle detector.Classifier = c
	_, err := oracle.Classify(context.Background(), fill(8, 8, color.RGBA{A: 255}))
	assert.NoError(t, err)
}

func TestClassify_RunFailure(t *testing.T) {
	c, run := newTestClassifier(1)
	run.err = errors.New("bad input")

	_, err := c.Classify(context.Background(), fill(8, 8, color.RGBA{A: 255}))
	assert.ErrorContains(t, err, "inference failed")
}

func TestClassify_Cancelled(t *testing.T) {
	c, run := newTestClassifier(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, fill(8, 8, color.RGBA{A: 255}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, run.runs)
}

func TestClassify_Closed(t *testing.T) {
	c, run := newTestClassifier(1)
	require.NoError(t, c.Close())
	assert.True(t, run.closed)
	require.NoError(t, c.Close())

	_, err := c.Classify(context.Background(), fill(8, 8, color.RGBA{A: 255}))
	assert.Error(t, err)
}

func TestClassify_Concurrent(t *testing.T) {
	c, run := newTestClassifier(1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(red bool) {
			defer wg.Done()
			col := color.RGBA{B: 255, A: 255}
			want := "other"
			if red {
				col = color.RGBA{R: 255, A: 255}
				want = "red"
			}
			predictions, err := c.Classify(context.Background(), fill(8, 8, col))
			assert.NoError(t, err)
			assert.Equal(t, want, predictions[0].Label)
		}(i%2 == 0)
	}
	wg.Wait()
	assert.Equal(t, 8, run.runs)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.ModelPath = "model.onnx"
	cfg.MetadataPath = "model_metadata.json"
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.TopK = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Normalization = "zscore"
	assert.Error(t, bad.Validate())
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model_metadata.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"input_shape": [1, 299, 299, 3],
		"output_shape": [1, 4],
		"classes": ["a", "b", "c", "d"],
		"image_size": 299
	}`), 0o600))

	meta, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, inference.LayoutHWC, meta.Layout)
	assert.Equal(t, "input", meta.InputName)
	assert.Equal(t, "output", meta.OutputName)
	w, h := meta.inputSize()
	assert.Equal(t, 299, w)
	assert.Equal(t, 299, h)
}

func TestLoadMetadata_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Not JSON", `{`},
		{"Three dimensional input", `{"input_shape": [3, 8, 8], "output_shape": [2]}`},
		{"Unknown layout", `{"input_shape": [1, 8, 8, 8], "output_shape": [2]}`},
		{"Dynamic batch", `{"input_shape": [-1, 3, 8, 8], "output_shape": [2]}`},
		{"Class count", `{"input_shape": [1, 3, 8, 8], "output_shape": [1, 3], "classes": ["a"]}`},
		{"Image size", `{"input_shape": [1, 3, 8, 8], "output_shape": [2], "image_size": 9}`},
		{"No output", `{"input_shape": [1, 3, 8, 8]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "meta.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := LoadMetadata(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadMetadata(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadMetadata_GeneratedLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"input_shape": [1, 3, 8, 8], "output_shape": [1, 2]}`), 0o600))

	meta, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"class_0", "class_1"}, meta.Classes)
}
