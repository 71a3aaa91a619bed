package classifier

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-windet/detector"
)

// Rank turns a raw output tensor into the k best predictions, highest first.
//
// Arguments:
//   - scores: The model output, one value per class.
//   - shape: The output shape; its total size must equal len(labels).
//   - labels: Class names in output order.
//   - k: Number of predictions to return, <= 0 returns all.
//   - softmax: Apply a softmax before ranking.
//
// Returns:
//   - []detector.Prediction: Ranked predictions, equal confidences keep output order.
//   - error: An error if the sizes disagree or an output is not finite.
func Rank(scores []float32, shape []int, labels []string, k int, softmax bool) ([]detector.Prediction, error) {
	if len(shape) == 0 {
		shape = []int{len(scores)}
	}
	if len(scores) == 0 {
		return nil, errors.New("empty output")
	}

	size := 1
	for _, d := range shape {
		size *= d
	}
	if size != len(scores) {
		return nil, errors.Errorf("output of %d values does not fit shape %v", len(scores), shape)
	}
	if size != len(labels) {
		return nil, errors.Errorf("%d outputs for %d labels", size, len(labels))
	}

	maxVal := scores[0]
	for i, v := range scores {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return nil, errors.Errorf("output %d is not finite", i)
		}
		maxVal = math32.Max(maxVal, v)
	}

	values := scores
	if softmax {
		dense := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(scores))
		probs, err := softmaxDense(dense, maxVal)
		if err != nil {
			return nil, errors.Wrap(err, "softmax")
		}
		values = probs
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	if k <= 0 || k > len(order) {
		k = len(order)
	}
	predictions := make([]detector.Prediction, k)
	for i, idx := range order[:k] {
		predictions[i] = detector.Prediction{Label: labels[idx], Confidence: values[idx]}
	}
	return predictions, nil
}

// softmaxDense normalizes logits over the class axis, shifted by their maximum. The
// batch dimension is flattened away since a classifier output holds one image.
func softmaxDense(logits *tensor.Dense, maxVal float32) ([]float32, error) {
	classes := logits.ShallowClone()
	if err := classes.Reshape(classes.Size()); err != nil {
		return nil, err
	}

	shifted, err := tensor.Sub(classes, maxVal)
	if err != nil {
		return nil, err
	}
	exp, err := tensor.Exp(shifted)
	if err != nil {
		return nil, err
	}
	sum, err := exp.(*tensor.Dense).Sum()
	if err != nil {
		return nil, err
	}
	total, err := scalarOf(sum)
	if err != nil {
		return nil, err
	}
	probs, err := tensor.Div(exp, total)
	if err != nil {
		return nil, err
	}
	return probs.Data().([]float32), nil
}

// scalarOf reads the value of a fully reduced tensor.
func scalarOf(t *tensor.Dense) (float32, error) {
	if t.IsScalar() {
		v, ok := t.ScalarValue().(float32)
		if !ok {
			return 0, errors.Errorf("unexpected %T reduction", t.ScalarValue())
		}
		return v, nil
	}
	if t.Size() != 1 {
		return 0, errors.Errorf("reduction left %d values", t.Size())
	}
	return t.Float32s()[0], nil
}

// Softmax returns exp(x_i - max) / sum(exp(x_j - max)) as a new slice.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}

	maxVal := logits[0]
	for _, v := range logits[1:] {
		maxVal = math32.Max(maxVal, v)
	}
	var sum float32
	for i, v := range logits {
		out[i] = math32.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
