package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/w-h-a/cervello/internal/service/record"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 100
)

type storeItem struct {
	Text     string         `json:"text"`
	Id       string         `json:"id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type storeRequest struct {
	Data []storeItem `json:"data"`
}

type upsertRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

type searchResult struct {
	Id       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// StoreRecords writes every item without similarity gating.
func (h *Handler) StoreRecords(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	if len(req.Data) == 0 {
		writeError(w, r, errors.Join(errBadRequest, errors.New("data must contain at least one item")))
		return
	}

	ids := make([]string, 0, len(req.Data))

	for _, item := range req.Data {
		id, err := h.records.Store(r.Context(), item.Text, item.Metadata, record.WithId(item.Id))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ids = append(ids, id)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "records stored",
		"ids":     ids,
	})
}

func (h *Handler) UpsertRecord(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	outcome, err := h.records.Upsert(r.Context(), req.Text, req.Metadata)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) SearchRecords(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	limit := defaultSearchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	if limit < 1 || limit > maxSearchLimit {
		writeError(w, r, errors.Join(errBadRequest, errors.New("limit must be between 1 and 100")))
		return
	}

	records, err := h.records.Search(r.Context(), req.Query, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results := make([]searchResult, 0, len(records))
	for _, rec := range records {
		metadata := rec.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		results = append(results, searchResult{
			Id:       rec.Id,
			Text:     rec.Content,
			Score:    rec.Score,
			Metadata: metadata,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": results,
	})
}

// DeleteRecord removes by id when ?id= is given, otherwise by gated
// similarity to ?text=.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if id := strings.TrimSpace(query.Get("id")); len(id) > 0 {
		if err := h.records.DeleteById(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "record deleted",
			"id":      id,
		})
		return
	}

	text := query.Get("text")
	if len(strings.TrimSpace(text)) == 0 {
		writeError(w, r, errors.Join(errBadRequest, errors.New("either text or id is required")))
		return
	}

	force := false
	if raw := query.Get("force"); len(raw) > 0 {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, errors.Join(errBadRequest, err))
			return
		}
		force = parsed
	}

	outcome, err := h.records.Delete(r.Context(), text, record.WithForce(force))
	if err != nil {
		writeError(w, r, err)
		return
	}

	message := "record deleted"
	if outcome.BelowThreshold {
		message = "closest record is below the similarity threshold; nothing deleted"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"outcome": outcome,
	})
}
