package handler

import (
	"net/http"

	"github.com/w-h-a/cervello/internal/service/answer"
)

type queryRequest struct {
	Prompt             string `json:"prompt"`
	ConversationId     string `json:"conversation_id,omitempty"`
	IncludeHistory     bool   `json:"include_history,omitempty"`
	SearchLimit        int    `json:"search_limit,omitempty"`
	UserId             string `json:"user_id,omitempty"`
	UseFunctionCalling *bool  `json:"use_function_calling,omitempty"`
}

type queryResponse struct {
	answer.Answer
	ProcessingTime float64 `json:"processing_time_seconds"`
}

// Query answers a prompt. Function calling is on unless the request turns it
// off.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, true)
}

// LLMQuery answers a prompt from retrieved context alone, never offering tools
// to the model.
func (h *Handler) LLMQuery(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, false)
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request, functionCalling bool) {
	var req queryRequest
	if err := decode(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	if functionCalling && req.UseFunctionCalling != nil {
		functionCalling = *req.UseFunctionCalling
	}

	ans, err := h.answers.Ask(
		r.Context(),
		req.Prompt,
		answer.WithConversationId(req.ConversationId),
		answer.WithIncludeHistory(req.IncludeHistory),
		answer.WithAskSearchLimit(req.SearchLimit),
		answer.WithUserId(req.UserId),
		answer.WithFunctionCalling(functionCalling),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:         ans,
		ProcessingTime: ans.Duration.Seconds(),
	})
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")

	conv, err := h.conversations.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")

	if err := h.conversations.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "conversation deleted",
		"conversation_id": id,
	})
}
