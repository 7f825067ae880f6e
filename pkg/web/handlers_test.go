package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukex/autopilot/pkg/log"
	"github.com/dukex/autopilot/pkg/metrics"
	"github.com/dukex/autopilot/pkg/models"
	"github.com/dukex/autopilot/pkg/persistence/memory"
	"github.com/dukex/autopilot/pkg/registry"
	"github.com/dukex/autopilot/pkg/testutil"
	"github.com/dukex/autopilot/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.RunStarted(string(models.TriggerWebhook))

	handlers := web.NewHandlers(store, registry.NewDefaultRegistry(log.Discard()), log.Discard())

	return web.NewApp(handlers, reg), store
}

func doRequest(t *testing.T, app *fiber.App, target string) (*http.Response, []byte) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, body
}

func TestHandlers_Health(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doRequest(t, app, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health web.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checkers.Persistence)
}

func TestHandlers_Metrics(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doRequest(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "autopilot_workflow_runs_started_total")
}

func TestHandlers_ListComponents(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doRequest(t, app, "/registry/components")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var components web.ComponentsResponse
	require.NoError(t, json.Unmarshal(body, &components))
	assert.NotEmpty(t, components.Components)
}

func TestHandlers_ListExecutions(t *testing.T) {
	app, store := setupTestApp(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	now := time.Now().UTC()
	for i := range 3 {
		require.NoError(t, store.Executions().Create(ctx, &models.WorkflowExecution{
			WorkflowID:    workflow.ID,
			Status:        models.ExecutionStatusSuccess,
			TriggeredBy:   string(workflow.TriggerType),
			ExecutionData: map[string]any{},
			ExecutedAt:    now.Add(time.Duration(i) * time.Second),
		}))
	}

	base := "/workflows/" + workflow.ID + "/executions"

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedCount  int
		expectedType   string
	}{
		{"default limit", base + "?tenant_id=" + testutil.TenantID, http.StatusOK, 3, ""},
		{"explicit limit", base + "?limit=2&tenant_id=" + testutil.TenantID, http.StatusOK, 2, ""},
		{"missing tenant", base, http.StatusBadRequest, 0, "validation_error"},
		{"other tenant", base + "?tenant_id=tenant-2", http.StatusNotFound, 0, "workflow_not_found"},
		{"unknown workflow", "/workflows/nope/executions?tenant_id=" + testutil.TenantID, http.StatusNotFound, 0, "workflow_not_found"},
		{"invalid limit", base + "?limit=abc&tenant_id=" + testutil.TenantID, http.StatusBadRequest, 0, "validation_error"},
		{"zero limit", base + "?limit=0&tenant_id=" + testutil.TenantID, http.StatusBadRequest, 0, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, tt.target)
			require.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.expectedType != "" {
				assert.True(t, strings.Contains(string(body), tt.expectedType), string(body))

				return
			}

			var result web.ExecutionsResponse
			require.NoError(t, json.Unmarshal(body, &result))
			assert.Equal(t, workflow.ID, result.WorkflowID)
			assert.Equal(t, tt.expectedCount, result.Count)
			assert.Len(t, result.Executions, tt.expectedCount)
			assert.True(t, !result.Executions[0].ExecutedAt.Before(result.Executions[len(result.Executions)-1].ExecutedAt))
		})
	}
}

func TestHandlers_GetExecution(t *testing.T) {
	app, store := setupTestApp(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(ctx, workflow))

	execution := &models.WorkflowExecution{
		ID:            "exec-1",
		WorkflowID:    workflow.ID,
		Status:        models.ExecutionStatusCancelled,
		ExecutionData: map[string]any{},
		ExecutedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Executions().Create(ctx, execution))

	resp, body := doRequest(t, app, "/executions/exec-1?tenant_id="+testutil.TenantID)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var fetched models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, models.ExecutionStatusCancelled, fetched.Status)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedType   string
	}{
		{"missing tenant", "/executions/exec-1", http.StatusBadRequest, "validation_error"},
		{"other tenant", "/executions/exec-1?tenant_id=tenant-2", http.StatusNotFound, "execution_not_found"},
		{"unknown execution", "/executions/missing?tenant_id=" + testutil.TenantID, http.StatusNotFound, "execution_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, tt.target)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Contains(t, string(body), tt.expectedType)
		})
	}
}
