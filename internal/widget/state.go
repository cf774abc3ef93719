package widget

import (
	"github.com/set-night/interiorchat/internal/domain"
)

type State string

const (
	StateClosed    State = "closed"
	StateIdle      State = "open-idle"
	StateAwaiting  State = "open-awaiting-response"
	StateStreaming State = "open-streaming"
	StateError     State = "open-error"
)

func (s State) IsOpen() bool {
	return s != StateClosed
}

// Busy reports whether a chat request is outstanding in this state.
func (s State) Busy() bool {
	return s == StateAwaiting || s == StateStreaming
}

// Listener observes a Controller. Calls are made outside the controller's lock,
// so a listener may read the controller back.
type Listener interface {
	HistoryChanged(history []domain.ChatTurn)
	StateChanged(state State)
	ReplyDelta(delta string)
	QuestionsChanged(questions []string)
}

// Hooks adapts plain funcs to Listener. Nil funcs are skipped.
type Hooks struct {
	OnHistory   func(history []domain.ChatTurn)
	OnState     func(state State)
	OnDelta     func(delta string)
	OnQuestions func(questions []string)
}

func (h Hooks) HistoryChanged(history []domain.ChatTurn) {
	if h.OnHistory != nil {
		h.OnHistory(history)
	}
}

func (h Hooks) StateChanged(state State) {
	if h.OnState != nil {
		h.OnState(state)
	}
}

func (h Hooks) ReplyDelta(delta string) {
	if h.OnDelta != nil {
		h.OnDelta(delta)
	}
}

func (h Hooks) QuestionsChanged(questions []string) {
	if h.OnQuestions != nil {
		h.OnQuestions(questions)
	}
}

// Snapshot is a consistent copy of everything the widget renders.
type Snapshot struct {
	State          State
	History        []domain.ChatTurn
	Partial        string
	Input          string
	Selection      string
	Error          string
	Page           domain.PageContext
	SessionID      string
	QuickQuestions []string
}
