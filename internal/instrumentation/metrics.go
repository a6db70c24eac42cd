package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrFlow      = "flow"
	attrOutcome   = "outcome"
	attrPath      = "path"
)

// Metrics records lexsync observability metrics. The zero value is a valid
// no-op recorder, which is what a disabled Provider hands out.
type Metrics struct {
	apiRequestsTotal   metric.Int64Counter
	apiRequestDuration metric.Float64Histogram

	resourceOperationsTotal metric.Int64Counter

	oauthAuthTotal    metric.Int64Counter
	tokenRefreshTotal metric.Int64Counter

	reconcileRunsTotal  metric.Int64Counter
	reconcileItemsTotal metric.Int64Counter

	httpRequestsTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates every instrument on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.apiRequestsTotal, err = meter.Int64Counter(
		"provider_requests_total",
		metric.WithDescription("Total number of authenticated provider API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_requests_total counter: %w", err)
	}

	m.apiRequestDuration, err = meter.Float64Histogram(
		"provider_request_duration_seconds",
		metric.WithDescription("Provider API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_request_duration_seconds histogram: %w", err)
	}

	m.resourceOperationsTotal, err = meter.Int64Counter(
		"resource_operations_total",
		metric.WithDescription("Total number of adapter operations by resource family"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource_operations_total counter: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth login attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.reconcileRunsTotal, err = meter.Int64Counter(
		"reconcile_runs_total",
		metric.WithDescription("Total number of reconciliation runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconcile_runs_total counter: %w", err)
	}

	m.reconcileItemsTotal, err = meter.Int64Counter(
		"reconcile_items_total",
		metric.WithDescription("Files classified by reconciliation, by outcome"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconcile_items_total counter: %w", err)
	}

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordAPIRequest records one executor round trip. statusCode is 0 when
// the request never produced a response.
func (m *Metrics) RecordAPIRequest(ctx context.Context, method string, statusCode int, duration time.Duration) {
	if m == nil || m.apiRequestsTotal == nil || m.apiRequestDuration == nil {
		return
	}

	status := "transport_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrStatus, status),
	)

	m.apiRequestsTotal.Add(ctx, 1, attrs)
	m.apiRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordResourceOperation records an adapter operation.
//
// Parameters:
//   - service: resource family (messages, events, files)
//   - operation: list, get, create, update, delete, send, upload, download, share
//   - status: "success" or "error"
func (m *Metrics) RecordResourceOperation(ctx context.Context, service, operation, status string) {
	if m == nil || m.resourceOperationsTotal == nil {
		return
	}

	m.resourceOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	))
}

// RecordOAuthAuth records a login attempt for the given flow (implicit, redirect).
func (m *Metrics) RecordOAuthAuth(ctx context.Context, flow, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrFlow, flow),
		attribute.String(attrResult, result),
	))
}

// RecordTokenRefresh records a refresh attempt.
// Result should be one of: "success", "failure", "no_refresh_token"
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return
	}

	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordReconcile records one reconciliation run and its per-outcome counts.
func (m *Metrics) RecordReconcile(ctx context.Context, status string, uploaded, downloaded, conflicts int) {
	if m == nil || m.reconcileRunsTotal == nil || m.reconcileItemsTotal == nil {
		return
	}

	m.reconcileRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))

	for outcome, n := range map[string]int{"uploaded": uploaded, "downloaded": downloaded, "conflict": conflicts} {
		if n > 0 {
			m.reconcileItemsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrOutcome, outcome)))
		}
	}
}

// RecordHTTPRequest records a request served by the lexsync HTTP server.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)

	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
