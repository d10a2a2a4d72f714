package storer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestEncodeDecodeVector(t *testing.T) {
	v := []float32{0.25, -1, 3.5}

	got, err := DecodeVector(EncodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestTopK(t *testing.T) {
	got := TopK([]Record{{Id: "a", Score: 0.1}, {Id: "b", Score: 0.9}, {Id: "c", Score: 0.5}}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Id)
	assert.Equal(t, "c", got[1].Id)
}
