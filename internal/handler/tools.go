package handler

import (
	"errors"
	"net/http"
	"strings"
)

type toolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Tools lists the tool specs for an empty request and invokes the named
// tool otherwise.
func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := decode(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	if len(strings.TrimSpace(req.Name)) == 0 {
		if req.Arguments != nil {
			writeError(w, r, errors.Join(errBadRequest, errors.New("tool name is required")))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tools": h.answers.Tools()})
		return
	}

	rsp, err := h.answers.InvokeTool(r.Context(), req.Name, req.Arguments)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tool":     req.Name,
		"content":  rsp.Content,
		"metadata": rsp.Metadata,
	})
}
