package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jarvis-hud/internal/domain"
)

// Publisher posts conversation events to a relay's /prompt_response route.
// The assistant backend does the same thing; jarvis send uses it by hand.
type Publisher struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewPublisher creates a publisher for the relay at baseURL.
func NewPublisher(baseURL, token string) *Publisher {
	return &Publisher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Publish sends ev and returns the relay's echo of it.
func (p *Publisher) Publish(ctx context.Context, ev domain.ConversationEvent) (domain.ConversationEvent, error) {
	if err := ev.Validate(); err != nil {
		return domain.ConversationEvent{}, err
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return domain.ConversationEvent{}, domain.WrapOp("publisher.marshal", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/prompt_response", bytes.NewReader(body))
	if err != nil {
		return domain.ConversationEvent{}, domain.WrapOp("publisher.request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return domain.ConversationEvent{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var out struct {
		Status string                   `json:"status"`
		Data   domain.ConversationEvent `json:"data"`
		Error  string                   `json:"error"`
		Code   string                   `json:"code"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPromptBody))
	if err != nil {
		return domain.ConversationEvent{}, domain.WrapOp("publisher.read", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.ConversationEvent{}, fmt.Errorf("relay returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode != http.StatusOK || out.Status != "success" {
		return domain.ConversationEvent{}, fmt.Errorf("relay rejected event (%s, %s): %s", resp.Status, out.Code, out.Error)
	}
	return out.Data, nil
}
