package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartTypeText is the only content part type rendered by the widget.
const PartTypeText = "text"

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type TurnContent struct {
	Parts []ContentPart `json:"parts"`
}

// ChatTurn is one message in the visible conversation.
type ChatTurn struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Content   TurnContent `json:"content"`
	CreatedAt time.Time   `json:"-"`
}

// NewTextTurn creates a turn holding a single text part with a fresh id.
func NewTextTurn(role Role, text string) ChatTurn {
	return ChatTurn{
		ID:   uuid.NewString(),
		Role: role,
		Content: TurnContent{
			Parts: []ContentPart{{Type: PartTypeText, Text: text}},
		},
		CreatedAt: time.Now(),
	}
}

// Text concatenates the text parts of the turn in order.
func (t ChatTurn) Text() string {
	var sb strings.Builder
	for _, p := range t.Content.Parts {
		if p.Type == PartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ChatReply is the body returned by POST /api/chat.
type ChatReply struct {
	Messages []ChatTurn `json:"messages"`
}
