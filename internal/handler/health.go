package handler

import (
	"log/slog"
	"net/http"
)

type healthResponse struct {
	Status          string `json:"status"`
	TranscriptStore string `json:"transcript_store"`
	ActiveSessions  int    `json:"active_sessions"`
}

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:          "healthy",
		TranscriptStore: h.sessionService.StoreName(),
	}
	n, err := h.sessionService.ActiveCount(r.Context())
	if err != nil {
		slog.Warn("health: count sessions", "error", err)
		resp.Status = "degraded"
	}
	resp.ActiveSessions = n
	writeJSON(w, http.StatusOK, resp)
}
