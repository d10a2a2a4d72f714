package storer

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"sort"
)

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopK sorts candidates by descending score and keeps at most limit of them.
func TopK(candidates []Record, limit int) []Record {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates
}

func CheckDimension(size int, vector []float32) error {
	if size > 0 && len(vector) != size {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), size)
	}
	return nil
}

func CopyMetadata(metadata map[string]any) map[string]any {
	cpy := make(map[string]any, len(metadata))
	maps.Copy(cpy, metadata)
	return cpy
}

func EncodeVector(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: vector blob of %d bytes", ErrMalformedPayload, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
