package storer

import (
	"context"
	"errors"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension does not match index")
	ErrMalformedPayload  = errors.New("index returned a malformed payload")
)

// Storer is a vector index addressed by record id. Search results carry the
// cosine similarity of each record to the query in Score, highest first.
type Storer interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Record, error)
	Upsert(ctx context.Context, records ...Record) error
	Delete(ctx context.Context, ids ...string) error
	Count(ctx context.Context) (int, error)
}
