package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WebhookMetrics captures low-cardinality counters for webhook ingestion.
type WebhookMetrics struct {
	eventsTotal     metric.Int64Counter
	ingestDuration  metric.Float64Histogram
	requestDuration metric.Float64Histogram
}

// NewWebhookMetrics creates the ingestion instruments.
func NewWebhookMetrics(serviceName string, provider metric.MeterProvider) (*WebhookMetrics, error) {
	name := strings.TrimSpace(serviceName)
	if name == "" {
		name = "meridian"
	}
	meter := provider.Meter(name + "/billing")

	eventsTotal, err := meter.Int64Counter("billing.webhook.events_total")
	if err != nil {
		return nil, err
	}
	ingestDuration, err := meter.Float64Histogram("billing.webhook.ingest_duration_ms")
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram("http.server.duration_ms")
	if err != nil {
		return nil, err
	}

	return &WebhookMetrics{
		eventsTotal:     eventsTotal,
		ingestDuration:  ingestDuration,
		requestDuration: requestDuration,
	}, nil
}

// RecordOutcome counts one processed event by terminal outcome.
func (m *WebhookMetrics) RecordOutcome(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.eventsTotal.Add(ctx, 1, attrs)
	m.ingestDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// GinMiddleware records request durations per route with bounded cardinality.
func (m *WebhookMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.Record(c.Request.Context(),
			float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.status_code", c.Writer.Status()),
			),
		)
	}
}
