// Package conversations is the client of the chat service's internal conversation API.
package conversations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	requestTimeout  = 5 * time.Second
	maxErrorBodyLen = 500
)

var ErrNotConfigured = errors.New("chat service url is not configured")

// StatusError is a non-200 answer from the chat service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat service returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger.With("module", "conversations_client"),
	}
}

// UpdateMetadata merges metadata into the conversation's metadata.
func (c *Client) UpdateMetadata(ctx context.Context, conversationID string, metadata map[string]any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]any{"metadata": metadata})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	endpoint := c.baseURL + "/api/internal/conversations/" + url.PathEscape(conversationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create conversation request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("conversation metadata request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))

		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return nil
}
