package web

import (
	"net/http"

	"support-agent/internal/app"
)

type chatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatClearRequest struct {
	SessionID string `json:"session_id"`
}

// chatMessage — POST /api/chat
//
// Routes one user message through the session's agent and returns the reply
// plus the tool-call trace. Omitting session_id starts a new session; the
// response carries the ID to use on subsequent turns.
func (h *Handler) chatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, r, "message is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Chat(r.Context(), app.ChatRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		h.log.Error("chat failed", "error", err)
		writeError(w, r, err.Error(), "AI_ERROR", http.StatusBadGateway)
		return
	}

	writeJSON(w, result)
}

// chatClear — POST /api/chat/clear
//
// Drops the session's conversation history.
func (h *Handler) chatClear(w http.ResponseWriter, r *http.Request) {
	var req chatClearRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, r, "session_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	cleared := h.svc.ClearSession(r.Context(), req.SessionID)
	writeJSON(w, map[string]any{"ok": true, "cleared": cleared})
}
