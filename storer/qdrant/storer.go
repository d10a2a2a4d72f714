package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/cervello/storer"
	getsafe "github.com/w-h-a/cervello/util/get_safe"
)

type qdrantStorer struct {
	options storer.Options
	client  *http.Client
}

func (s *qdrantStorer) Search(ctx context.Context, vector []float32, limit int) ([]storer.Record, error) {
	if limit < 1 {
		return nil, nil
	}

	if err := storer.CheckDimension(s.options.VectorSize, vector); err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_vector":  false,
		"with_payload": true,
	}

	var rsp qdrantEnvelope[[]qdrantPointResult]

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	results := make([]storer.Record, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		payload := point.Payload

		content, ok := payload["text"].(string)
		if len(point.Id) == 0 || !ok {
			return nil, fmt.Errorf("%w: point %q has no text", storer.ErrMalformedPayload, point.Id)
		}

		rec := storer.Record{
			Id:        string(point.Id),
			Content:   content,
			Metadata:  getsafe.Metadata(payload, "metadata"),
			Score:     float32(point.Score),
			CreatedAt: getsafe.Time(payload, "created_at"),
			UpdatedAt: getsafe.Time(payload, "updated_at"),
		}

		results = append(results, rec)
	}

	return results, nil
}

func (s *qdrantStorer) Upsert(ctx context.Context, records ...storer.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()

	points := make([]qdrantPoint, 0, len(records))

	for _, rec := range records {
		if err := storer.CheckDimension(s.options.VectorSize, rec.Embedding); err != nil {
			return err
		}

		id := rec.Id
		if len(id) == 0 {
			id = uuid.New().String()
		}

		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		points = append(points, qdrantPoint{
			Id:     id,
			Vector: rec.Embedding,
			Payload: map[string]any{
				"text":       rec.Content,
				"metadata":   rec.Metadata,
				"created_at": createdAt.UTC().Format(time.RFC3339Nano),
				"updated_at": now.Format(time.RFC3339Nano),
			},
		})
	}

	req := map[string]any{
		"points": points,
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	return rsp.Status.err()
}

func (s *qdrantStorer) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	req := map[string]any{
		"points": ids,
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return err
	}

	return rsp.Status.err()
}

func (s *qdrantStorer) Count(ctx context.Context) (int, error) {
	req := map[string]any{
		"exact": true,
	}

	var rsp qdrantEnvelope[qdrantCount]

	path := fmt.Sprintf("/collections/%s/points/count", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return 0, err
	}

	if err := rsp.Status.err(); err != nil {
		return 0, err
	}

	return rsp.Result.Count, nil
}

func (s *qdrantStorer) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := strings.TrimRight(s.options.Location, "/") + path
	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.ApiKey) > 0 {
		request.Header.Set("api-key", s.options.ApiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return &httpError{status: response.StatusCode, body: string(payload)}
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return fmt.Errorf("%w: %w", storer.ErrMalformedPayload, err)
		}
	}

	return nil
}

func (s *qdrantStorer) configure(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return s.createCollection(ctx)
}

func (s *qdrantStorer) collectionExists(ctx context.Context) (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(ctx, http.MethodGet, path, nil, &rsp)

	var httpErr *httpError
	if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *qdrantStorer) createCollection(ctx context.Context) error {
	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.options.VectorSize,
			"distance": s.options.Distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	return rsp.Status.err()
}

func (s qdrantStatus) err() error {
	if len(s.Error) > 0 {
		return errors.New(s.Error)
	}
	return nil
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	if len(options.Location) == 0 ||
		len(options.Collection) == 0 ||
		options.VectorSize == 0 {
		panic("missing location, collection, or vector size for qdrant storer")
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	s := &qdrantStorer{
		options: options,
		client:  client,
	}

	if err := s.configure(options.Context); err != nil {
		detail := "failed to configure qdrant collection"
		slog.ErrorContext(options.Context, detail, "collection", options.Collection, "error", err)
		panic(detail)
	}

	return s
}
