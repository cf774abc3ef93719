package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/set-night/interiorchat/internal/config"
	"github.com/set-night/interiorchat/internal/domain"
)

// Backend is the conversational service the relay forwards to.
type Backend interface {
	Chat(ctx context.Context, env domain.RequestEnvelope) (string, error)
	ChatStream(ctx context.Context, env domain.RequestEnvelope, onDelta func(string) error) (string, error)
	QuickQuestions(ctx context.Context, pageType string) ([]string, error)
}

type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type backendChatResponse struct {
	Response  *string `json:"response"`
	SessionID string  `json:"session_id"`
	Error     *string `json:"error"`
}

type backendStreamFrame struct {
	SessionID string  `json:"session_id"`
	Content   *string `json:"content"`
	Error     string  `json:"error"`
}

func (c *BackendClient) Chat(ctx context.Context, env domain.RequestEnvelope) (string, error) {
	resp, err := c.post(ctx, "/api/chat", env, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w: %w", domain.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: backend error: %d", domain.ErrUpstream, resp.StatusCode)
	}

	var chatResp backendChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parse response: %w: %w", domain.ErrUpstream, err)
	}
	if chatResp.Response == nil {
		return "", fmt.Errorf("parse response: %w: missing response field", domain.ErrUpstream)
	}
	return *chatResp.Response, nil
}

// ChatStream reads the backend's server-sent events and calls onDelta for each content chunk.
// It returns the concatenated reply once the stream ends.
func (c *BackendClient) ChatStream(ctx context.Context, env domain.RequestEnvelope, onDelta func(string) error) (string, error) {
	resp, err := c.post(ctx, "/api/chat/stream", env, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: backend error: %d", domain.ErrUpstream, resp.StatusCode)
	}

	var reply strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), config.StreamScannerBuffer)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return reply.String(), nil
		}

		var frame backendStreamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			return "", fmt.Errorf("parse stream frame: %w: %w", domain.ErrUpstream, err)
		}
		if frame.Error != "" {
			return "", fmt.Errorf("%w: %s", domain.ErrUpstream, frame.Error)
		}
		if frame.Content == nil {
			continue
		}
		reply.WriteString(*frame.Content)
		if onDelta != nil {
			if err := onDelta(*frame.Content); err != nil {
				return "", err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("read stream: %w: %w", domain.ErrUpstream, err)
	}
	return reply.String(), nil
}

// QuickQuestions fetches suggested prompts. A body without a questions array is an error;
// an empty array is not.
func (c *BackendClient) QuickQuestions(ctx context.Context, pageType string) ([]string, error) {
	q := url.Values{}
	q.Set("page_type", pageType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/quick-questions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quick questions: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: backend error: %d", domain.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w: %w", domain.ErrUpstream, err)
	}

	var result struct {
		Questions *[]string `json:"questions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse quick questions: %w: %w", domain.ErrUpstream, err)
	}
	if result.Questions == nil {
		return nil, fmt.Errorf("parse quick questions: %w: missing questions array", domain.ErrUpstream)
	}
	return *result.Questions, nil
}

func (c *BackendClient) post(ctx context.Context, path string, env domain.RequestEnvelope, accept string) (*http.Response, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w: %w", domain.ErrUpstream, err)
	}
	return resp, nil
}
