package record

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/w-h-a/cervello/storer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/w-h-a/cervello/internal/service/record"

// Service keeps an index of text records deduplicated by similarity. Writes
// look up the single nearest neighbour and, when it scores at or above the
// threshold, treat it as the same logical record.
//
// The lookup and the write are separate index calls. Two concurrent writes
// of the same text can both miss and both create.
type Service struct {
	options Options
	tracer  trace.Tracer
}

func (s *Service) Threshold() float32 {
	return s.options.Threshold
}

func (s *Service) Upsert(ctx context.Context, text string, metadata map[string]any) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "record.Upsert")
	defer span.End()

	vector, err := s.embed(ctx, text)
	if err != nil {
		return Outcome{}, fail(span, err)
	}

	best, found, err := s.nearest(ctx, vector)
	if err != nil {
		return Outcome{}, fail(span, err)
	}

	rec := storer.Record{
		Id:        uuid.New().String(),
		Content:   text,
		Metadata:  metadata,
		Embedding: vector,
	}

	outcome := Outcome{Created: true}

	if found {
		similarity := best.Score
		outcome.Similarity = &similarity

		if best.Score >= s.options.Threshold {
			rec.Id = best.Id
			rec.CreatedAt = best.CreatedAt
			outcome = Outcome{Updated: true, Similarity: &similarity}
		}
	}

	outcome.Id = rec.Id

	if err := s.options.Storer.Upsert(ctx, rec); err != nil {
		return Outcome{}, fail(span, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	span.SetAttributes(
		attribute.String("record.id", outcome.Id),
		attribute.Bool("record.updated", outcome.Updated),
	)

	slog.InfoContext(ctx, "record upserted", "id", outcome.Id, "updated", outcome.Updated, "similarity", similarityAttr(outcome.Similarity))

	return outcome, nil
}

func (s *Service) Delete(ctx context.Context, text string, opts ...DeleteOption) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "record.Delete")
	defer span.End()

	options := NewDeleteOptions(opts...)

	vector, err := s.embed(ctx, text)
	if err != nil {
		return Outcome{}, fail(span, err)
	}

	best, found, err := s.nearest(ctx, vector)
	if err != nil {
		return Outcome{}, fail(span, err)
	}

	if !found {
		return Outcome{}, fail(span, ErrNotFound)
	}

	similarity := best.Score

	if best.Score < s.options.Threshold && !options.Force {
		slog.InfoContext(ctx, "record delete below threshold", "candidate", best.Id, "similarity", similarity, "threshold", s.options.Threshold)
		return Outcome{BelowThreshold: true, Id: best.Id, Similarity: &similarity}, nil
	}

	if err := s.options.Storer.Delete(ctx, best.Id); err != nil {
		return Outcome{}, fail(span, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	span.SetAttributes(attribute.String("record.id", best.Id), attribute.Bool("record.forced", options.Force))

	slog.InfoContext(ctx, "record deleted", "id", best.Id, "similarity", similarity, "force", options.Force)

	return Outcome{Deleted: true, Id: best.Id, Similarity: &similarity}, nil
}

// Replace rewrites the record nearest to searchText with newText, whatever
// the similarity. The id and creation time of the replaced record are kept.
func (s *Service) Replace(ctx context.Context, searchText string, newText string, metadata map[string]any) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "record.Replace")
	defer span.End()

	if len(strings.TrimSpace(newText)) == 0 {
		return Outcome{}, fail(span, fmt.Errorf("%w: %w", ErrEmbeddingFailure, ErrEmptyText))
	}

	query, err := s.embed(ctx, searchText)
	if err != nil {
		return Outcome{}, fail(span, err)
	}

	best, found, err := s.nearest(ctx, query)
	if err != nil {
		return Outcome{}, fail(span, err)
	}

	if !found {
		return Outcome{}, fail(span, ErrNotFound)
	}

	vector, err := s.embed(ctx, newText)
	if err != nil {
		return Outcome{}, fail(span, err)
	}

	rec := storer.Record{
		Id:        best.Id,
		Content:   newText,
		Metadata:  metadata,
		Embedding: vector,
		CreatedAt: best.CreatedAt,
	}

	if err := s.options.Storer.Upsert(ctx, rec); err != nil {
		return Outcome{}, fail(span, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	similarity := best.Score

	span.SetAttributes(attribute.String("record.id", best.Id))

	slog.InfoContext(ctx, "record replaced", "id", best.Id, "similarity", similarity)

	return Outcome{Updated: true, Id: best.Id, Similarity: &similarity}, nil
}

func (s *Service) Search(ctx context.Context, text string, limit int) ([]storer.Record, error) {
	ctx, span := s.tracer.Start(ctx, "record.Search")
	defer span.End()

	if limit < 1 {
		return []storer.Record{}, nil
	}

	vector, err := s.embed(ctx, text)
	if err != nil {
		return nil, fail(span, err)
	}

	records, err := s.options.Storer.Search(ctx, vector, limit)
	if err != nil {
		return nil, fail(span, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	if records == nil {
		records = []storer.Record{}
	}

	span.SetAttributes(attribute.Int("record.results", len(records)))

	return records, nil
}

// Store inserts text without consulting the index. An explicit id that
// already exists is overwritten.
func (s *Service) Store(ctx context.Context, text string, metadata map[string]any, opts ...StoreOption) (string, error) {
	ctx, span := s.tracer.Start(ctx, "record.Store")
	defer span.End()

	options := NewStoreOptions(opts...)

	vector, err := s.embed(ctx, text)
	if err != nil {
		return "", fail(span, err)
	}

	id := strings.TrimSpace(options.Id)
	if len(id) == 0 {
		id = uuid.New().String()
	}

	rec := storer.Record{
		Id:        id,
		Content:   text,
		Metadata:  metadata,
		Embedding: vector,
	}

	if err := s.options.Storer.Upsert(ctx, rec); err != nil {
		return "", fail(span, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	return id, nil
}

func (s *Service) DeleteById(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "record.DeleteById")
	defer span.End()

	if len(strings.TrimSpace(id)) == 0 {
		return fail(span, fmt.Errorf("%w: id is required", ErrNotFound))
	}

	if err := s.options.Storer.Delete(ctx, id); err != nil {
		return fail(span, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	return nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.options.Storer.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, ErrEmptyText)
	}

	vector, err := s.options.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}

	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingFailure)
	}

	// cosine similarity is undefined for the zero vector
	zero := true
	for _, v := range vector {
		if v != 0 {
			zero = false
			break
		}
	}
	if zero {
		return nil, fmt.Errorf("%w: zero vector", ErrEmbeddingFailure)
	}

	return vector, nil
}

func (s *Service) nearest(ctx context.Context, vector []float32) (storer.Record, bool, error) {
	results, err := s.options.Storer.Search(ctx, vector, 1)
	if err != nil {
		return storer.Record{}, false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if len(results) == 0 {
		return storer.Record{}, false, nil
	}

	return results[0], true, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func similarityAttr(similarity *float32) any {
	if similarity == nil {
		return "none"
	}
	return *similarity
}

func New(opts ...Option) *Service {
	options := NewOptions(opts...)

	if options.Storer == nil || options.Embedder == nil {
		panic("missing storer or embedder for record service")
	}

	if !(options.Threshold >= 0 && options.Threshold <= 1) {
		detail := "similarity threshold must lie in [0, 1]"
		slog.ErrorContext(options.Context, detail, "threshold", options.Threshold)
		panic(detail)
	}

	return &Service{
		options: options,
		tracer:  otel.Tracer(tracerName),
	}
}
