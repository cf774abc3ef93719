package handler

import (
	"net/http"

	"github.com/set-night/interiorchat/internal/domain"
)

// handleQuickQuestions handles GET /api/quick-questions. It always answers 200.
func (h *Handler) handleQuickQuestions(w http.ResponseWriter, r *http.Request) {
	category := domain.ParseCategory(r.URL.Query().Get("page_type"))
	questions := h.quickQuestions.Get(r.Context(), category)
	if questions == nil {
		questions = []string{}
	}
	writeJSON(w, http.StatusOK, domain.QuickQuestionSet{Questions: questions})
}
