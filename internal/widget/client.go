package widget

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/set-night/interiorchat/internal/config"
	"github.com/set-night/interiorchat/internal/domain"
)

// ChatAPI is what the controller needs from the site's chat endpoints.
type ChatAPI interface {
	Send(ctx context.Context, req domain.DirectSend) (domain.ChatTurn, error)
	QuickQuestions(ctx context.Context, category domain.Category) ([]string, error)
}

// StreamingChatAPI can deliver the reply incrementally.
type StreamingChatAPI interface {
	ChatAPI
	SendStream(ctx context.Context, req domain.DirectSend, onDelta func(delta string)) (domain.ChatTurn, error)
}

// Client talks to the relay's /api/chat and /api/quick-questions endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

type apiError struct {
	Error        string   `json:"error"`
	ReceivedBody []string `json:"receivedBody"`
}

func (c *Client) Send(ctx context.Context, req domain.DirectSend) (domain.ChatTurn, error) {
	resp, err := c.post(ctx, "/api/chat", req)
	if err != nil {
		return domain.ChatTurn{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ChatTurn{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ChatTurn{}, responseError(resp.StatusCode, body)
	}

	var reply domain.ChatReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return domain.ChatTurn{}, fmt.Errorf("parse response: %w", err)
	}
	return assistantTurn(reply)
}

// SendStream posts to /api/chat/stream and reports content chunks as they arrive.
func (c *Client) SendStream(ctx context.Context, req domain.DirectSend, onDelta func(delta string)) (domain.ChatTurn, error) {
	resp, err := c.post(ctx, "/api/chat/stream", req)
	if err != nil {
		return domain.ChatTurn{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.ChatTurn{}, responseError(resp.StatusCode, body)
	}

	var (
		final    *domain.ChatReply
		streamed strings.Builder
	)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), config.StreamScannerBuffer)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var frame struct {
			Content  *string           `json:"content"`
			Error    string            `json:"error"`
			Messages []domain.ChatTurn `json:"messages"`
		}
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			return domain.ChatTurn{}, fmt.Errorf("parse stream frame: %w", err)
		}
		switch {
		case frame.Error != "":
			return domain.ChatTurn{}, fmt.Errorf("%w: %s", domain.ErrUpstream, frame.Error)
		case frame.Messages != nil:
			final = &domain.ChatReply{Messages: frame.Messages}
		case frame.Content != nil:
			streamed.WriteString(*frame.Content)
			if onDelta != nil {
				onDelta(*frame.Content)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.ChatTurn{}, fmt.Errorf("read stream: %w", err)
	}

	if final != nil {
		return assistantTurn(*final)
	}
	if streamed.Len() == 0 {
		return domain.ChatTurn{}, fmt.Errorf("%w: stream ended without a reply", domain.ErrUpstream)
	}
	return domain.NewTextTurn(domain.RoleAssistant, streamed.String()), nil
}

func (c *Client) QuickQuestions(ctx context.Context, category domain.Category) ([]string, error) {
	q := url.Values{}
	q.Set("page_type", category.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/quick-questions?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quick questions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch quick questions: status %d", resp.StatusCode)
	}

	var set domain.QuickQuestionSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parse quick questions: %w", err)
	}
	if set.Questions == nil {
		set.Questions = []string{}
	}
	return set.Questions, nil
}

func (c *Client) post(ctx context.Context, path string, v any) (*http.Response, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("chat request: %w", err)
	}
	return resp, nil
}

func responseError(status int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	if status == http.StatusBadRequest {
		msg := apiErr.Error
		if msg == "" {
			msg = "bad request"
		}
		return &domain.ValidationError{Message: msg, ReceivedKeys: apiErr.ReceivedBody}
	}
	if apiErr.Error != "" {
		return fmt.Errorf("%w: %s", domain.ErrUpstream, apiErr.Error)
	}
	return fmt.Errorf("%w: status %d", domain.ErrUpstream, status)
}

func assistantTurn(reply domain.ChatReply) (domain.ChatTurn, error) {
	for i := len(reply.Messages) - 1; i >= 0; i-- {
		if reply.Messages[i].Role == domain.RoleAssistant {
			turn := reply.Messages[i]
			turn.CreatedAt = time.Now()
			return turn, nil
		}
	}
	return domain.ChatTurn{}, errors.New("reply has no assistant message")
}
