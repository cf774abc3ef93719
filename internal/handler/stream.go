package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/set-night/interiorchat/internal/domain"
)

// sseWriter sends server-sent events, committing the 200 status on the first event.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

func (s *sseWriter) event(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.raw(string(payload))
}

func (s *sseWriter) raw(data string) error {
	s.start()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

type streamDelta struct {
	Content string `json:"content"`
}

// handleChatStream handles POST /api/chat/stream.
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, domain.ErrStreamUnsupported.Error())
		return
	}

	env, ok := h.readEnvelope(w, r)
	if !ok {
		return
	}

	sse := &sseWriter{w: w, flusher: flusher}
	turn, err := h.relay.Stream(r.Context(), env, func(delta string) error {
		return sse.event(streamDelta{Content: delta})
	})
	if err != nil {
		if !sse.started {
			writeError(w, http.StatusInternalServerError, chatFailedMessage)
			return
		}
		if werr := sse.event(errorResponse{Error: chatFailedMessage}); werr != nil {
			slog.Debug("stream client gone", "error", werr)
		}
		return
	}

	if err := sse.event(domain.ChatReply{Messages: []domain.ChatTurn{turn}}); err != nil {
		slog.Debug("stream client gone", "error", err)
		return
	}
	if err := sse.raw("[DONE]"); err != nil {
		slog.Debug("stream client gone", "error", err)
	}
}
