package service

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/set-night/interiorchat/internal/domain"
)

// MessageExtractor pulls the user's text out of one recognised inbound shape.
type MessageExtractor struct {
	Name    string
	Extract func(body map[string]json.RawMessage) string
}

// MessageExtractors are tried in order; the first non-blank result wins.
var MessageExtractors = []MessageExtractor{
	{Name: "messages[-1].content", Extract: lastMessageString},
	{Name: "messages[-1].content.parts", Extract: lastMessageParts},
	{Name: "messages[-1].content.text", Extract: lastMessageText},
	{Name: "text", Extract: topLevelText},
}

const noMessageProvided = "No message provided"

// Normalize turns any accepted inbound chat body into the canonical envelope.
func Normalize(raw []byte) (domain.RequestEnvelope, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return domain.RequestEnvelope{}, &domain.ValidationError{
			Message:      noMessageProvided,
			ReceivedKeys: []string{},
		}
	}

	message := ExtractMessage(body)
	if message == "" {
		return domain.RequestEnvelope{}, &domain.ValidationError{
			Message:      noMessageProvided,
			ReceivedKeys: sortedKeys(body),
		}
	}

	ctx := objectField(body, "context")
	sessionID := stringField(body, "sessionId")
	if sessionID == "" {
		sessionID = stringField(ctx, "session_id")
	}

	return domain.RequestEnvelope{
		Message:      message,
		SessionID:    domain.StringPtr(sessionID),
		PageContext:  domain.StringPtr(stringField(ctx, "page_context")),
		SelectedText: domain.StringPtr(stringField(ctx, "selected_text")),
	}, nil
}

// ExtractMessage returns the text from the first extractor that yields a non-blank message.
func ExtractMessage(body map[string]json.RawMessage) string {
	for _, ex := range MessageExtractors {
		if text := ex.Extract(body); strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

func lastMessageString(body map[string]json.RawMessage) string {
	content, ok := lastMessageContent(body)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(content, &s); err != nil {
		return ""
	}
	return s
}

func lastMessageParts(body map[string]json.RawMessage) string {
	parts, ok := contentParts(body)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(stringField(p, "text"))
	}
	return sb.String()
}

func lastMessageText(body map[string]json.RawMessage) string {
	if _, ok := contentParts(body); ok {
		return ""
	}
	content, ok := lastMessageContent(body)
	if !ok {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(content, &obj); err != nil {
		return ""
	}
	return stringField(obj, "text")
}

func topLevelText(body map[string]json.RawMessage) string {
	return stringField(body, "text")
}

func lastMessageContent(body map[string]json.RawMessage) (json.RawMessage, bool) {
	raw, ok := body["messages"]
	if !ok {
		return nil, false
	}
	// Only the last element matters; earlier ones may be any JSON.
	var messages []json.RawMessage
	if err := json.Unmarshal(raw, &messages); err != nil || len(messages) == 0 {
		return nil, false
	}
	var last map[string]json.RawMessage
	if err := json.Unmarshal(messages[len(messages)-1], &last); err != nil {
		return nil, false
	}
	content, ok := last["content"]
	return content, ok
}

// contentParts reports the parts array of the last message when content is an object holding one.
func contentParts(body map[string]json.RawMessage) ([]map[string]json.RawMessage, bool) {
	content, ok := lastMessageContent(body)
	if !ok {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(content, &obj); err != nil {
		return nil, false
	}
	raw, ok := obj["parts"]
	if !ok {
		return nil, false
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || parts == nil {
		return nil, false
	}
	out := make([]map[string]json.RawMessage, 0, len(parts))
	for _, p := range parts {
		var part map[string]json.RawMessage
		if err := json.Unmarshal(p, &part); err != nil {
			continue
		}
		out = append(out, part)
	}
	return out, true
}

func objectField(body map[string]json.RawMessage, key string) map[string]json.RawMessage {
	raw, ok := body[key]
	if !ok {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

func stringField(body map[string]json.RawMessage, key string) string {
	raw, ok := body[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func sortedKeys(body map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
