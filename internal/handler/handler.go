package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/w-h-a/cervello/internal/service/answer"
	"github.com/w-h-a/cervello/internal/service/conversation"
	"github.com/w-h-a/cervello/internal/service/record"
	"github.com/w-h-a/cervello/internal/service/ticket"
	"github.com/w-h-a/cervello/ticketer"
	toolhandler "github.com/w-h-a/cervello/tool_handler"
)

var (
	errBadRequest = errors.New("bad request")
)

const (
	maxBodyBytes = 4 << 20
)

type Handler struct {
	records       *record.Service
	answers       *answer.Service
	conversations *conversation.Service
	tickets       *ticket.Service
	options       Options
}

// Router registers every route on a new gorilla/mux router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", h.Info).Methods(http.MethodGet)
	r.HandleFunc("/status", h.Status).Methods(http.MethodGet)

	r.HandleFunc("/records", h.StoreRecords).Methods(http.MethodPost)
	r.HandleFunc("/records", h.DeleteRecord).Methods(http.MethodDelete)
	r.HandleFunc("/records/upsert", h.UpsertRecord).Methods(http.MethodPost)
	r.HandleFunc("/records/search", h.SearchRecords).Methods(http.MethodPost)

	r.HandleFunc("/query", h.Query).Methods(http.MethodPost)
	r.HandleFunc("/llm-query", h.LLMQuery).Methods(http.MethodPost)

	r.HandleFunc("/conversations/{id}", h.GetConversation).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", h.DeleteConversation).Methods(http.MethodDelete)

	r.HandleFunc("/tickets", h.CreateTicket).Methods(http.MethodPost)
	r.HandleFunc("/tickets", h.ListTickets).Methods(http.MethodGet)
	r.HandleFunc("/tickets/{ticketId}", h.GetTicket).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId}/tickets", h.ListUserTickets).Methods(http.MethodGet)

	r.HandleFunc("/tools", h.Tools).Methods(http.MethodPost)

	return r
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": h.options.Name,
		"version": h.options.Version,
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	n, err := h.records.Count(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "status check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"collection":    h.options.Collection,
		"vectors_count": n,
		"vector_size":   h.options.VectorSize,
		"threshold":     h.records.Threshold(),
	})
}

// decode reads a JSON body. An empty body leaves dst untouched when
// allowEmpty is set.
func decode(r *http.Request, dst any, allowEmpty bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Join(errBadRequest, err)
	}

	if len(body) == 0 {
		if allowEmpty {
			return nil
		}
		return errors.Join(errBadRequest, errors.New("request body is required"))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return errors.Join(errBadRequest, err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, map[string]any{"detail": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, record.ErrEmptyText),
		errors.Is(err, answer.ErrEmptyPrompt),
		errors.Is(err, ticket.ErrUserRequired),
		errors.Is(err, toolhandler.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, record.ErrNotFound),
		errors.Is(err, conversation.ErrConversationNotFound),
		errors.Is(err, ticketer.ErrNotFound),
		errors.Is(err, answer.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, record.ErrEmbeddingFailure):
		return http.StatusBadGateway
	case errors.Is(err, record.ErrStoreUnavailable),
		errors.Is(err, answer.ErrNoGenerator):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func New(
	records *record.Service,
	answers *answer.Service,
	conversations *conversation.Service,
	tickets *ticket.Service,
	opts ...Option,
) *Handler {
	return &Handler{
		records:       records,
		answers:       answers,
		conversations: conversations,
		tickets:       tickets,
		options:       NewOptions(opts...),
	}
}
