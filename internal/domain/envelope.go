package domain

// RequestEnvelope is the canonical request sent to the conversational backend.
// Optional fields marshal as null when absent.
type RequestEnvelope struct {
	Message      string  `json:"message"`
	SessionID    *string `json:"session_id"`
	PageContext  *string `json:"page_context"`
	SelectedText *string `json:"selected_text"`
}

// OutgoingContext is the context block the widget attaches to a direct send.
type OutgoingContext struct {
	SessionID    string `json:"session_id,omitempty"`
	PageContext  string `json:"page_context,omitempty"`
	SelectedText string `json:"selected_text,omitempty"`
}

// DirectSend is the inbound shape produced by the widget's own send path.
type DirectSend struct {
	Text      string          `json:"text"`
	SessionID string          `json:"sessionId,omitempty"`
	Context   OutgoingContext `json:"context"`
}

// QuickQuestionSet is the body of GET /api/quick-questions.
type QuickQuestionSet struct {
	Questions []string `json:"questions"`
}

// MaxSurfacedQuestions is how many quick questions the widget offers as buttons.
const MaxSurfacedQuestions = 3

// FallbackQuestions are served whenever the quick-questions backend is unavailable.
var FallbackQuestions = []string{
	"Help me find the perfect furniture",
	"What are your featured products?",
	"Tell me about your company",
	"What categories do you offer?",
	"How can I contact you?",
}

// Fallback returns a copy of FallbackQuestions so callers cannot mutate the shared set.
func Fallback() []string {
	out := make([]string, len(FallbackQuestions))
	copy(out, FallbackQuestions)
	return out
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the empty string for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
