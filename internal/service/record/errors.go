package record

import "errors"

var (
	ErrEmptyText        = errors.New("text is empty")
	ErrEmbeddingFailure = errors.New("embedding failed")
	ErrStoreUnavailable = errors.New("vector index unavailable")
	ErrNotFound         = errors.New("no matching record")
)
