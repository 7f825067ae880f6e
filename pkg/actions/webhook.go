package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/template"
)

const maxWebhookResponse = 1 << 20

func (e *Executor) sendWebhook(ctx context.Context, c models.SendWebhookConfig, ectx *models.NodeExecutionContext) (models.NodeExecutionResult, error) {
	lookup := e.lookup(ctx, ectx)

	target := strings.TrimSpace(template.Replace(c.URL, lookup))

	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return models.Failed(fmt.Sprintf("Invalid webhook URL: %s", target)), nil
	}

	method := strings.ToUpper(c.Method)
	if method == "" {
		method = http.MethodPost
	}

	body, err := webhookBody(c.Body, lookup)
	if err != nil {
		return models.Failed(err.Error()), nil
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	var reader io.Reader
	if body != "" && method != http.MethodGet {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return models.Failed(fmt.Sprintf("Failed to build webhook request: %v", err)), nil
	}

	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range c.Headers {
		req.Header.Set(key, template.Replace(value, lookup))
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.Failed(fmt.Sprintf("Webhook request failed: %v", err)), nil
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			e.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponse))
	if err != nil {
		return models.Failed(fmt.Sprintf("Failed to read webhook response: %v", err)), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Failed(fmt.Sprintf("Webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))), nil
	}

	var response any
	if err := json.Unmarshal(raw, &response); err != nil {
		response = string(raw)
	}

	e.logger.InfoContext(ctx, "Webhook sent",
		"method", method,
		"status_code", resp.StatusCode,
		"execution_id", ectx.ExecutionID)

	return models.Succeeded(map[string]any{
		"status_code": resp.StatusCode,
		"response":    response,
	}), nil
}

// webhookBody serializes the configured body and substitutes tokens inside the JSON text.
// A string body that does not look like JSON gets plain substitution.
func webhookBody(body any, lookup template.Lookup) (string, error) {
	switch b := body.(type) {
	case nil:
		return "", nil
	case string:
		if trimmed := strings.TrimSpace(b); strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			return template.ReplaceJSON(b, lookup), nil
		}

		return template.Replace(b, lookup), nil
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return "", fmt.Errorf("invalid webhook body: %w", err)
		}

		return template.ReplaceJSON(string(payload), lookup), nil
	}
}
