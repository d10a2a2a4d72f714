package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/w-h-a/cervello/ticketer"
)

type ticketRequest struct {
	UserId              string                `json:"userId"`
	PromptHistory       []ticketer.PromptItem `json:"promptHistory"`
	LowConfidenceReason string                `json:"lowConfidenceReason,omitempty"`
	CreatedBySystem     bool                  `json:"createdBySystem,omitempty"`
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.tickets.Create(r.Context(), req.UserId, req.PromptHistory, req.LowConfidenceReason, req.CreatedBySystem)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "ticket created",
		"ticketId": t.TicketId,
	})
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tickets": nonNil(tickets)})
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.tickets.Get(r.Context(), pathVar(r, "ticketId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) ListUserTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.ListByUser(r.Context(), pathVar(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tickets": nonNil(tickets)})
}

func nonNil(tickets []ticketer.Ticket) []ticketer.Ticket {
	if tickets == nil {
		return []ticketer.Ticket{}
	}
	return tickets
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
