// Package topic talks to the external topic collaborator. It is invoked
// once per session start; callers fall back to a static topic on any error.
package topic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/roundtable/internal/domain"
)

var ErrNotConfigured = errors.New("topic service not configured")

// Client fetches discussion topics over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// DiscussionTopic requests one topic from the service. Implements
// core.TopicSource.
func (c *Client) DiscussionTopic(ctx context.Context) (domain.Topic, error) {
	if c.baseURL == "" {
		return domain.Topic{}, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/topic", nil)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Topic{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Topic{}, fmt.Errorf("topic service error (status %d): %s", resp.StatusCode, string(body))
	}

	var t domain.Topic
	if err := json.Unmarshal(body, &t); err != nil {
		return domain.Topic{}, fmt.Errorf("failed to parse topic: %w", err)
	}
	if t.Title == "" {
		return domain.Topic{}, errors.New("topic service returned empty title")
	}
	return t, nil
}
