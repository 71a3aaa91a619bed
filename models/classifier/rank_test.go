package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	labels := []string{"cat", "dog", "fox", "owl"}
	scores := []float32{0.1, 0.6, 0.2, 0.1}

	predictions, err := Rank(scores, []int{1, 4}, labels, 3, false)
	require.NoError(t, err)
	require.Len(t, predictions, 3)
	assert.Equal(t, "dog", predictions[0].Label)
	assert.Equal(t, float32(0.6), predictions[0].Confidence)
	assert.Equal(t, "fox", predictions[1].Label)
	// Ties keep output order.
	assert.Equal(t, "cat", predictions[2].Label)
}

func TestRank_All(t *testing.T) {
	predictions, err := Rank([]float32{0.3, 0.7}, nil, []string{"a", "b"}, 0, false)
	require.NoError(t, err)
	assert.Len(t, predictions, 2)

	predictions, err = Rank([]float32{0.3, 0.7}, nil, []string{"a", "b"}, 10, false)
	require.NoError(t, err)
	assert.Len(t, predictions, 2)
}

func TestRank_Softmax(t *testing.T) {
	predictions, err := Rank([]float32{2, 1, 0}, []int{3}, []string{"a", "b", "c"}, 3, true)
	require.NoError(t, err)

	// e^2, e^1, e^0 over their sum.
	assert.InDelta(t, 0.665241, predictions[0].Confidence, 1e-5)
	assert.InDelta(t, 0.244728, predictions[1].Confidence, 1e-5)
	assert.InDelta(t, 0.090031, predictions[2].Confidence, 1e-5)
}

func TestRank_SoftmaxMatchesSoftmax(t *testing.T) {
	logits := []float32{3.5, -1.25, 0.75, 12, 12}
	labels := []string{"a", "b", "c", "d", "e"}
	want := Softmax(logits)

	predictions, err := Rank(logits, []int{1, 5}, labels, 0, true)
	require.NoError(t, err)
	require.Len(t, predictions, 5)

	index := map[string]int{"a": 0, "b": 1, "c": 2, "d": 3, "e": 4}
	for _, p := range predictions {
		assert.InDelta(t, want[index[p.Label]], p.Confidence, 1e-6, p.Label)
	}
	assert.Equal(t, "d", predictions[0].Label)
	assert.Equal(t, "e", predictions[1].Label)
	assert.Equal(t, []float32{3.5, -1.25, 0.75, 12, 12}, logits, "logits must not be modified")
}

func TestRank_RejectsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	_, err := Rank([]float32{0.2, nan}, []int{2}, []string{"a", "b"}, 1, false)
	assert.Error(t, err)

	_, err = Rank([]float32{float32(math.Inf(1)), 0}, []int{2}, []string{"a", "b"}, 1, true)
	assert.Error(t, err)
}

func TestRank_Errors(t *testing.T) {
	_, err := Rank(nil, nil, nil, 1, false)
	assert.Error(t, err)

	_, err = Rank([]float32{1, 2, 3}, []int{1, 4}, []string{"a", "b", "c"}, 1, false)
	assert.Error(t, err)

	_, err = Rank([]float32{1, 2, 3}, []int{3}, []string{"a", "b"}, 1, false)
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	out := Softmax([]float32{1000, 1000})
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, 0.5, out[1], 1e-6)

	assert.Empty(t, Softmax(nil))
}
