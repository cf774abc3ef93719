package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/set-night/interiorchat/internal/domain"
)

type createSessionRequest struct {
	UserAgent   string         `json:"user_agent"`
	CurrentPage string         `json:"current_page"`
	Metadata    map[string]any `json:"metadata"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

type historyMessage struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

type historyResponse struct {
	SessionID    string           `json:"session_id"`
	Messages     []historyMessage `json:"messages"`
	MessageCount int              `json:"message_count"`
	LastPage     string           `json:"last_page"`
	Success      bool             `json:"success"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleCreateSession handles POST /api/session.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// The body is optional.
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	page := req.CurrentPage
	if page == "" {
		page = "/"
	}

	id, err := h.sessionService.Create(r.Context(), page)
	if err != nil {
		slog.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}
	slog.Info("session created",
		"session_id", id,
		"current_page", page,
		"user_agent", userAgent,
		"metadata_keys", len(req.Metadata),
	)

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: id,
		Success:   true,
		Message:   "Session created successfully",
	})
}

// handleSessionHistory handles GET /api/session/{id}.
func (h *Handler) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.sessionService.History(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		slog.Error("load session history", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session history")
		return
	}

	resp := historyResponse{
		SessionID: id,
		Messages:  make([]historyMessage, 0, len(entries)),
		Success:   true,
	}
	for _, e := range entries {
		resp.Messages = append(resp.Messages, historyMessage{
			Role:      e.Role,
			Content:   e.Content,
			CreatedAt: e.CreatedAt,
		})
	}
	if sum, err := h.sessionService.Summary(r.Context(), id); err == nil {
		resp.MessageCount = sum.MessageCount
		resp.LastPage = sum.LastPage
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteSession handles DELETE /api/session/{id}.
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.sessionService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		slog.Error("delete session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "Session deleted"})
}
