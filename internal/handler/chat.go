package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/set-night/interiorchat/internal/config"
	"github.com/set-night/interiorchat/internal/domain"
	"github.com/set-night/interiorchat/internal/service"
)

// chatFailedMessage is all a public client learns about an upstream failure.
// The relay logs the full error.
const chatFailedMessage = "Failed to process chat"

// handleChat handles POST /api/chat.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	body, ok := readChatBody(w, r)
	if !ok {
		return
	}

	reply, err := h.relay.Handle(r.Context(), body)
	if err != nil {
		if ve, ok := domain.AsValidation(err); ok {
			writeValidationError(w, ve)
			return
		}
		writeError(w, http.StatusInternalServerError, chatFailedMessage)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// readEnvelope reads and normalizes the request body, answering 400 itself when it can't.
func (h *Handler) readEnvelope(w http.ResponseWriter, r *http.Request) (domain.RequestEnvelope, bool) {
	body, ok := readChatBody(w, r)
	if !ok {
		return domain.RequestEnvelope{}, false
	}

	env, err := service.Normalize(body)
	if err != nil {
		if ve, ok := domain.AsValidation(err); ok {
			writeValidationError(w, ve)
			return domain.RequestEnvelope{}, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.RequestEnvelope{}, false
	}
	return env, true
}

func readChatBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxChatBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, validationErrorResponse{Error: "Failed to read request body", ReceivedBody: []string{}})
		return nil, false
	}
	return body, true
}

func writeValidationError(w http.ResponseWriter, ve *domain.ValidationError) {
	keys := ve.ReceivedKeys
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusBadRequest, validationErrorResponse{Error: ve.Message, ReceivedBody: keys})
}
