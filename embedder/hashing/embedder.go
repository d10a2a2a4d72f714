package hashing

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/w-h-a/cervello/embedder"
)

const defaultDimension = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// hashingEmbedder projects word unigrams and bigrams onto a fixed number of
// signed buckets and L2-normalizes the result. It needs no model or network.
type hashingEmbedder struct {
	options embedder.Options
}

func (e *hashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float64, e.options.Dimension)

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	for i, tok := range tokens {
		e.add(vector, tok, 1.0)
		if i > 0 {
			e.add(vector, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(vector))
	if norm == 0 {
		return out, nil
	}

	for i, v := range vector {
		out[i] = float32(v / norm)
	}

	return out, nil
}

func (e *hashingEmbedder) add(vector []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	bucket := h % uint64(len(vector))
	if h>>63 == 1 {
		weight = -weight
	}
	vector[bucket] += weight
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if options.Dimension <= 0 {
		options.Dimension = defaultDimension
	}

	return &hashingEmbedder{
		options: options,
	}
}
