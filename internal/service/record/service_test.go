package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/cervello/embedder"
	"github.com/w-h-a/cervello/embedder/hashing"
	"github.com/w-h-a/cervello/storer"
	"github.com/w-h-a/cervello/storer/memory"
)

type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

type mockStorer struct {
	SearchFunc func(ctx context.Context, vector []float32, limit int) ([]storer.Record, error)
	UpsertFunc func(ctx context.Context, records ...storer.Record) error
	DeleteFunc func(ctx context.Context, ids ...string) error
	upserted   []storer.Record
	deleted    []string
}

func (m *mockStorer) Search(ctx context.Context, vector []float32, limit int) ([]storer.Record, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, vector, limit)
	}
	return nil, nil
}

func (m *mockStorer) Upsert(ctx context.Context, records ...storer.Record) error {
	m.upserted = append(m.upserted, records...)
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, records...)
	}
	return nil
}

func (m *mockStorer) Delete(ctx context.Context, ids ...string) error {
	m.deleted = append(m.deleted, ids...)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, ids...)
	}
	return nil
}

func (m *mockStorer) Count(ctx context.Context) (int, error) {
	return len(m.upserted) - len(m.deleted), nil
}

func scoring(score float32) func(context.Context, []float32, int) ([]storer.Record, error) {
	return func(context.Context, []float32, int) ([]storer.Record, error) {
		return []storer.Record{{Id: "existing", Content: "stored", Score: score}}, nil
	}
}

func newMemoryService(vectors map[string][]float32) *Service {
	return New(
		WithStorer(memory.NewStorer(storer.WithVectorSize(3))),
		WithEmbedder(&mockEmbedder{vectors: vectors}),
	)
}

var _ embedder.Embedder = (*mockEmbedder)(nil)

func TestService_Scenario(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(map[string][]float32{
		"The sky is blue":    {1, 0, 0},
		"Bananas are yellow": {0, 1, 0},
	})

	first, err := svc.Upsert(ctx, "The sky is blue", map[string]any{"v": 1})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Nil(t, first.Similarity)
	require.NotEmpty(t, first.Id)

	again, err := svc.Upsert(ctx, "The sky is blue", map[string]any{"v": 2})
	require.NoError(t, err)
	assert.True(t, again.Updated)
	assert.False(t, again.Created)
	assert.Equal(t, first.Id, again.Id)
	require.NotNil(t, again.Similarity)
	assert.InDelta(t, 1.0, *again.Similarity, 1e-6)

	bananas, err := svc.Upsert(ctx, "Bananas are yellow", nil)
	require.NoError(t, err)
	assert.True(t, bananas.Created)
	assert.NotEqual(t, first.Id, bananas.Id)
	require.NotNil(t, bananas.Similarity)
	assert.InDelta(t, 0.0, *bananas.Similarity, 1e-6)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deleted, err := svc.Delete(ctx, "The sky is blue")
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Equal(t, first.Id, deleted.Id)

	results, err := svc.Search(ctx, "The sky is blue", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, bananas.Id, results[0].Id)
	assert.Equal(t, "Bananas are yellow", results[0].Content)
}

func TestService_UpdateReplacesMetadata(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(map[string][]float32{"fact": {1, 0, 0}})

	_, err := svc.Upsert(ctx, "fact", map[string]any{"old": true})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "fact", map[string]any{"new": true})
	require.NoError(t, err)

	results, err := svc.Search(ctx, "fact", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, map[string]any{"new": true}, results[0].Metadata)
}

func TestService_EmptyIndexSearchScoresOne(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(map[string][]float32{"only": {0.3, 0.4, 0.5}})

	_, err := svc.Upsert(ctx, "only", nil)
	require.NoError(t, err)

	results, err := svc.Search(ctx, "only", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestService_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name    string
		score   float32
		updated bool
	}{
		{name: "exactly threshold updates", score: float32(0.9), updated: true},
		{name: "above threshold updates", score: 0.95, updated: true},
		{name: "just below threshold creates", score: 0.9 - 1e-6, updated: false},
		{name: "unrelated creates", score: 0.1, updated: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := &mockStorer{SearchFunc: scoring(tc.score)}
			svc := New(WithStorer(st), WithEmbedder(&mockEmbedder{}))

			outcome, err := svc.Upsert(context.Background(), "text", nil)
			require.NoError(t, err)

			assert.Equal(t, tc.updated, outcome.Updated)
			assert.Equal(t, !tc.updated, outcome.Created)
			require.NotNil(t, outcome.Similarity)
			assert.Equal(t, tc.score, *outcome.Similarity)

			require.Len(t, st.upserted, 1)
			if tc.updated {
				assert.Equal(t, "existing", st.upserted[0].Id)
			} else {
				assert.NotEqual(t, "existing", st.upserted[0].Id)
			}
			assert.Equal(t, outcome.Id, st.upserted[0].Id)
		})
	}
}

func TestService_DeleteBelowThresholdLeavesIndex(t *testing.T) {
	st := &mockStorer{SearchFunc: scoring(0.42)}
	svc := New(WithStorer(st), WithEmbedder(&mockEmbedder{}))

	outcome, err := svc.Delete(context.Background(), "something unrelated")
	require.NoError(t, err)

	assert.False(t, outcome.Deleted)
	assert.True(t, outcome.BelowThreshold)
	assert.Equal(t, "existing", outcome.Id)
	require.NotNil(t, outcome.Similarity)
	assert.Equal(t, float32(0.42), *outcome.Similarity)
	assert.Empty(t, st.deleted)
}

func TestService_DeleteForce(t *testing.T) {
	st := &mockStorer{SearchFunc: scoring(0.42)}
	svc := New(WithStorer(st), WithEmbedder(&mockEmbedder{}))

	outcome, err := svc.Delete(context.Background(), "something unrelated", WithForce(true))
	require.NoError(t, err)

	assert.True(t, outcome.Deleted)
	assert.False(t, outcome.BelowThreshold)
	assert.Equal(t, []string{"existing"}, st.deleted)
}

func TestService_DeleteEmptyIndex(t *testing.T) {
	svc := newMemoryService(nil)

	_, err := svc.Delete(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Delete(context.Background(), "anything", WithForce(true))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_EmptyText(t *testing.T) {
	svc := newMemoryService(nil)

	_, err := svc.Upsert(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = svc.Delete(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestService_EmbeddingFailure(t *testing.T) {
	cause := errors.New("provider down")
	st := &mockStorer{}
	svc := New(WithStorer(st), WithEmbedder(&mockEmbedder{err: cause}))

	_, err := svc.Upsert(context.Background(), "text", nil)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, st.upserted)
}

func TestService_ZeroVector(t *testing.T) {
	st := memory.NewStorer(storer.WithVectorSize(16))
	svc := New(WithStorer(st), WithEmbedder(hashing.NewEmbedder(embedder.WithDimension(16))))

	_, err := svc.Upsert(context.Background(), "!!!", nil)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)

	_, err = svc.Store(context.Background(), "!!!", nil)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)

	_, err = svc.Search(context.Background(), "!!!", 5)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)

	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestService_Replace(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(map[string][]float32{
		"office hours":            {1, 0, 0},
		"The office opens at 9":   {0.9, 0.1, 0},
		"Parking is free at noon": {0, 1, 0},
	})

	id, err := svc.Store(ctx, "The office opens at 9", map[string]any{"source": "handbook"})
	require.NoError(t, err)

	outcome, err := svc.Replace(ctx, "office hours", "Parking is free at noon", map[string]any{"source": "memo"})
	require.NoError(t, err)
	assert.True(t, outcome.Updated)
	assert.Equal(t, id, outcome.Id)
	require.NotNil(t, outcome.Similarity)

	results, err := svc.Search(ctx, "Parking is free at noon", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Id)
	assert.Equal(t, "Parking is free at noon", results[0].Content)
	assert.Equal(t, map[string]any{"source": "memo"}, results[0].Metadata)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestService_ReplaceKeepsCreatedAt(t *testing.T) {
	st := &mockStorer{SearchFunc: func(context.Context, []float32, int) ([]storer.Record, error) {
		return []storer.Record{{Id: "existing", Content: "stored", Score: 0.1, CreatedAt: time.Unix(100, 0)}}, nil
	}}
	svc := New(WithStorer(st), WithEmbedder(&mockEmbedder{}))

	outcome, err := svc.Replace(context.Background(), "stored", "unrelated", nil)
	require.NoError(t, err)
	assert.Equal(t, "existing", outcome.Id)

	require.Len(t, st.upserted, 1)
	assert.Equal(t, "existing", st.upserted[0].Id)
	assert.Equal(t, "unrelated", st.upserted[0].Content)
	assert.True(t, st.upserted[0].CreatedAt.Equal(time.Unix(100, 0)))
}

func TestService_ReplaceErrors(t *testing.T) {
	svc := newMemoryService(nil)

	_, err := svc.Replace(context.Background(), "anything", "new text", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Replace(context.Background(), "anything", "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = svc.Replace(context.Background(), "", "new text", nil)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestService_StoreUnavailable(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("search", func(t *testing.T) {
		st := &mockStorer{SearchFunc: func(context.Context, []float32, int) ([]storer.Record, error) {
			return nil, cause
		}}
		svc := New(WithStorer(st), WithEmbedder(&mockEmbedder{}))

		_, err := svc.Upsert(context.Background(), "text", nil)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Empty(t, st.upserted)
	})

	t.Run("dimension", func(t *testing.T) {
		svc := New(
			WithStorer(memory.NewStorer(storer.WithVectorSize(2))),
			WithEmbedder(&mockEmbedder{}),
		)

		_, err := svc.Upsert(context.Background(), "text", nil)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, storer.ErrDimensionMismatch)
	})

	t.Run("delete", func(t *testing.T) {
		st := &mockStorer{
			SearchFunc: scoring(0.99),
			DeleteFunc: func(context.Context, ...string) error { return cause },
		}
		svc := New(WithStorer(st), WithEmbedder(&mockEmbedder{}))

		_, err := svc.Delete(context.Background(), "text")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestService_StoreWithId(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(map[string][]float32{"a": {1, 0, 0}, "b": {0, 1, 0}})

	id, err := svc.Store(ctx, "a", nil, WithId("fixed"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	_, err = svc.Store(ctx, "b", nil, WithId("fixed"))
	require.NoError(t, err)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	generated, err := svc.Store(ctx, "a", nil)
	require.NoError(t, err)
	assert.NotEqual(t, "fixed", generated)

	require.NoError(t, svc.DeleteById(ctx, "fixed"))

	n, err = svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_SearchLimit(t *testing.T) {
	svc := newMemoryService(nil)

	results, err := svc.Search(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNew_RejectsThreshold(t *testing.T) {
	assert.Panics(t, func() {
		New(WithStorer(&mockStorer{}), WithEmbedder(&mockEmbedder{}), WithThreshold(1.5))
	})
	assert.NotPanics(t, func() {
		New(WithStorer(&mockStorer{}), WithEmbedder(&mockEmbedder{}), WithThreshold(0))
	})
}
