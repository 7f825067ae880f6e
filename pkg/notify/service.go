package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const serviceTimeout = 10 * time.Second

// ServiceMailer posts emails to the internal mail service at {baseURL}/api/internal/email.
type ServiceMailer struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

func NewServiceMailer(baseURL, token string, logger *slog.Logger) *ServiceMailer {
	logger = logger.With("module", "mail_service")

	if LooksLikeThirdPartySecret(token) {
		logger.Error("Internal service token looks like a third-party API key; check INTERNAL_SERVICE_TOKEN")
	}

	return &ServiceMailer{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: serviceTimeout},
		logger:  logger,
	}
}

func (m *ServiceMailer) Send(ctx context.Context, email Email) error {
	if email.To == "" {
		return ErrMissingRecipient
	}

	payload, err := json.Marshal(map[string]string{
		"to":      email.To,
		"subject": email.Subject,
		"text":    textBody(email),
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/internal/email", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail service request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			m.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("mail service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
