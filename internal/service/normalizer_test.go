package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/set-night/interiorchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AcceptedShapes(t *testing.T) {
	bodies := map[string]string{
		"last message string":   `{"messages":[{"role":"user","content":"earlier"},{"role":"user","content":"Is this sofa stain resistant?"}]}`,
		"last message parts":    `{"messages":[{"role":"user","content":{"parts":[{"type":"text","text":"Is this sofa "},{"type":"text","text":"stain resistant?"}]}}]}`,
		"last message text":     `{"messages":[{"role":"user","content":{"text":"Is this sofa stain resistant?"}}]}`,
		"top-level text":        `{"text":"Is this sofa stain resistant?"}`,
		"direct send":           `{"text":"Is this sofa stain resistant?","sessionId":"s1","context":{"page_context":"/products/x"}}`,
		"blank message falls":   `{"messages":[{"role":"user","content":"   "}],"text":"Is this sofa stain resistant?"}`,
		"unusable messages":     `{"messages":"nope","text":"Is this sofa stain resistant?"}`,
		"empty messages array":  `{"messages":[],"text":"Is this sofa stain resistant?"}`,
		"legacy earlier entry":  `{"messages":["legacy",{"role":"user","content":"Is this sofa stain resistant?"}]}`,
		"non-object last entry": `{"messages":[{"role":"user","content":"old"},"legacy"],"text":"Is this sofa stain resistant?"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			env, err := Normalize([]byte(body))
			require.NoError(t, err)
			assert.Equal(t, "Is this sofa stain resistant?", env.Message)
		})
	}
}

func TestNormalize_Context(t *testing.T) {
	env, err := Normalize([]byte(`{
		"text": "What colors?",
		"context": {"session_id": "ctx-session", "page_context": "/products/modern-velvet-sofa", "selected_text": "Emerald velvet"}
	}`))
	require.NoError(t, err)
	require.NotNil(t, env.SessionID)
	assert.Equal(t, "ctx-session", *env.SessionID)
	assert.Equal(t, "/products/modern-velvet-sofa", domain.Deref(env.PageContext))
	assert.Equal(t, "Emerald velvet", domain.Deref(env.SelectedText))

	env, err = Normalize([]byte(`{"text":"hi","sessionId":"top","context":{"session_id":"ctx"}}`))
	require.NoError(t, err)
	assert.Equal(t, "top", domain.Deref(env.SessionID))
}

func TestNormalize_AbsentContextIsNull(t *testing.T) {
	env, err := Normalize([]byte(`{"text":"hi","context":{"page_context":""}}`))
	require.NoError(t, err)
	assert.Nil(t, env.SessionID)
	assert.Nil(t, env.PageContext)
	assert.Nil(t, env.SelectedText)

	payload, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hi","session_id":null,"page_context":null,"selected_text":null}`, string(payload))
}

func TestNormalize_NoMessage(t *testing.T) {
	_, err := Normalize([]byte(`{"foo":1,"bar":{"text":"nested"}}`))
	require.Error(t, err)

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "No message provided", ve.Message)
	assert.Equal(t, []string{"bar", "foo"}, ve.ReceivedKeys)
}

func TestNormalize_NotAnObject(t *testing.T) {
	for _, body := range []string{``, `null`, `[1,2]`, `"text"`, `{broken`} {
		_, err := Normalize([]byte(body))
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve), body)
		assert.Empty(t, ve.ReceivedKeys)
	}
}

func TestMessageExtractors_Individually(t *testing.T) {
	body := func(s string) map[string]json.RawMessage {
		var m map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(s), &m))
		return m
	}

	byName := make(map[string]MessageExtractor)
	for _, ex := range MessageExtractors {
		byName[ex.Name] = ex
	}
	require.Len(t, byName, 4)

	parts := body(`{"messages":[{"content":{"parts":[{"text":"a"},{"text":"b"}],"text":"ignored"}}]}`)
	assert.Equal(t, "ab", byName["messages[-1].content.parts"].Extract(parts))
	assert.Empty(t, byName["messages[-1].content.text"].Extract(parts))
	assert.Empty(t, byName["messages[-1].content"].Extract(parts))

	text := body(`{"messages":[{"content":{"text":"c"}}]}`)
	assert.Equal(t, "c", byName["messages[-1].content.text"].Extract(text))
	assert.Empty(t, byName["text"].Extract(text))

	assert.Equal(t, "d", byName["text"].Extract(body(`{"text":"d"}`)))
}
