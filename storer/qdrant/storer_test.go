package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/cervello/storer"
)

type fakeQdrant struct {
	mtx        sync.Mutex
	collection bool
	points     map[string]qdrantPoint
	apiKeys    []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	write := func(result any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "result": result})
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/docs":
		if !f.collection {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
			return
		}
		write(map[string]any{})
	case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
		f.collection = true
		write(true)
	case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
		var req struct {
			Points []qdrantPoint `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, p := range req.Points {
			f.points[p.Id] = p
		}
		write(map[string]any{"status": "completed"})
	case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/delete":
		var req struct {
			Points []string `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, id := range req.Points {
			delete(f.points, id)
		}
		write(map[string]any{"status": "completed"})
	case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/count":
		write(map[string]any{"count": len(f.points)})
	case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/search":
		var req struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		candidates := []storer.Record{}
		for id, p := range f.points {
			candidates = append(candidates, storer.Record{
				Id:    id,
				Score: float32(storer.CosineSimilarity(req.Vector, p.Vector)),
			})
		}
		out := []map[string]any{}
		for _, c := range storer.TopK(candidates, req.Limit) {
			out = append(out, map[string]any{
				"id":      c.Id,
				"score":   c.Score,
				"payload": f.points[c.Id].Payload,
			})
		}
		write(out)
	default:
		http.NotFound(w, r)
	}
}

func newFake(t *testing.T) (*fakeQdrant, *httptest.Server) {
	t.Helper()
	fake := &fakeQdrant{points: map[string]qdrantPoint{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func TestQdrantStorer_CreatesCollection(t *testing.T) {
	fake, srv := newFake(t)

	NewStorer(
		storer.WithLocation(srv.URL),
		storer.WithApiKey("secret"),
		storer.WithCollection("docs"),
		storer.WithVectorSize(2),
	)

	assert.True(t, fake.collection)
	assert.Contains(t, fake.apiKeys, "secret")
}

func TestQdrantStorer_RoundTrip(t *testing.T) {
	_, srv := newFake(t)
	ctx := context.Background()

	s := NewStorer(
		storer.WithLocation(srv.URL),
		storer.WithCollection("docs"),
		storer.WithVectorSize(2),
	)

	require.NoError(t, s.Upsert(ctx,
		storer.Record{Id: "a", Content: "alpha", Metadata: map[string]any{"type": "fact"}, Embedding: []float32{1, 0}},
		storer.Record{Id: "b", Content: "beta", Embedding: []float32{0, 1}},
	))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Id)
	assert.Equal(t, "alpha", got[0].Content)
	assert.Equal(t, "fact", got[0].Metadata["type"])
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.False(t, got[0].CreatedAt.IsZero())

	require.NoError(t, s.Delete(ctx, "a"))

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestQdrantStorer_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/points/search") {
			_, _ = w.Write([]byte(`{"status":"ok","result":[{"id":7,"score":0.5,"payload":{}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","result":{}}`))
	}))
	t.Cleanup(srv.Close)

	s := NewStorer(
		storer.WithLocation(srv.URL),
		storer.WithCollection("docs"),
		storer.WithVectorSize(2),
	)

	_, err := s.Search(context.Background(), []float32{1, 0}, 1)
	assert.ErrorIs(t, err, storer.ErrMalformedPayload)
}

func TestQdrantStorer_DimensionMismatch(t *testing.T) {
	_, srv := newFake(t)

	s := NewStorer(
		storer.WithLocation(srv.URL),
		storer.WithCollection("docs"),
		storer.WithVectorSize(3),
	)

	_, err := s.Search(context.Background(), []float32{1, 0}, 1)
	assert.ErrorIs(t, err, storer.ErrDimensionMismatch)
}

func TestNewStorer_PanicsWithoutLocation(t *testing.T) {
	assert.Panics(t, func() {
		NewStorer(storer.WithVectorSize(2))
	})
}
