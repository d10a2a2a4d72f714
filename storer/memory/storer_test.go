package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/cervello/storer"
)

func TestMemoryStorer_SearchOrdersByScore(t *testing.T) {
	ctx := context.Background()
	s := NewStorer(storer.WithVectorSize(2))

	require.NoError(t, s.Upsert(ctx,
		storer.Record{Id: "x", Content: "x axis", Embedding: []float32{1, 0}},
		storer.Record{Id: "y", Content: "y axis", Embedding: []float32{0, 1}},
		storer.Record{Id: "xy", Content: "diagonal", Embedding: []float32{1, 1}},
	))

	got, err := s.Search(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].Id)
	assert.Equal(t, "xy", got[1].Id)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Nil(t, got[0].Embedding)
}

func TestMemoryStorer_UpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewStorer()

	require.NoError(t, s.Upsert(ctx, storer.Record{Id: "a", Content: "first", Embedding: []float32{1, 0}}))
	first, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, storer.Record{Id: "a", Content: "second", Embedding: []float32{1, 0}}))
	second, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, "second", second[0].Content)
	assert.Equal(t, first[0].CreatedAt, second[0].CreatedAt)
	assert.False(t, second[0].UpdatedAt.Before(first[0].UpdatedAt))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStorer_DeleteAndEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewStorer()

	got, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Upsert(ctx, storer.Record{Id: "a", Embedding: []float32{1, 0}}))
	require.NoError(t, s.Delete(ctx, "a", "missing"))

	got, err = s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStorer_DimensionMismatch(t *testing.T) {
	s := NewStorer(storer.WithVectorSize(3))

	err := s.Upsert(context.Background(), storer.Record{Id: "a", Embedding: []float32{1, 0}})
	assert.ErrorIs(t, err, storer.ErrDimensionMismatch)
}
