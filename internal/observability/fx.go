package observability

import (
	"github.com/pillarworks/meridian/internal/config"
	"github.com/pillarworks/meridian/internal/observability/logger"
	"github.com/pillarworks/meridian/internal/observability/metrics"
	"github.com/pillarworks/meridian/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(logger.New),
	fx.Provide(tracing.NewProvider),
	fx.Provide(func() metric.MeterProvider {
		return otel.GetMeterProvider()
	}),
	fx.Provide(func(cfg config.Config, provider metric.MeterProvider) (*metrics.WebhookMetrics, error) {
		return metrics.NewWebhookMetrics(cfg.ServiceName, provider)
	}),
	fx.Invoke(func(provider *sdktrace.TracerProvider) {}),
)
