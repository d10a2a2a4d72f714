package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/cervello/storer"
)

type memoryStorer struct {
	options storer.Options
	records map[string]storer.Record
	mtx     sync.RWMutex
}

func (s *memoryStorer) Search(ctx context.Context, vector []float32, limit int) ([]storer.Record, error) {
	if limit < 1 {
		return nil, nil
	}

	if err := storer.CheckDimension(s.options.VectorSize, vector); err != nil {
		return nil, err
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	candidates := make([]storer.Record, 0, len(s.records))

	for _, rec := range s.records {
		rec.Score = float32(storer.CosineSimilarity(vector, rec.Embedding))
		rec.Metadata = storer.CopyMetadata(rec.Metadata)
		rec.Embedding = nil
		candidates = append(candidates, rec)
	}

	return storer.TopK(candidates, limit), nil
}

func (s *memoryStorer) Upsert(ctx context.Context, records ...storer.Record) error {
	for _, rec := range records {
		if err := storer.CheckDimension(s.options.VectorSize, rec.Embedding); err != nil {
			return err
		}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := time.Now().UTC()

	for _, rec := range records {
		if len(rec.Id) == 0 {
			rec.Id = uuid.New().String()
		}

		cpy := make([]float32, len(rec.Embedding))
		copy(cpy, rec.Embedding)
		rec.Embedding = cpy
		rec.Metadata = storer.CopyMetadata(rec.Metadata)
		rec.Score = 0

		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
			if existing, ok := s.records[rec.Id]; ok {
				rec.CreatedAt = existing.CreatedAt
			}
		}
		rec.UpdatedAt = now

		s.records[rec.Id] = rec
	}

	return nil
}

func (s *memoryStorer) Delete(ctx context.Context, ids ...string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, id := range ids {
		delete(s.records, id)
	}

	return nil
}

func (s *memoryStorer) Count(ctx context.Context) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.records), nil
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	s := &memoryStorer{
		options: options,
		records: map[string]storer.Record{},
		mtx:     sync.RWMutex{},
	}

	return s
}
