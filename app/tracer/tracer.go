package tracer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Init configures the global OTel tracer and meter providers and returns
// an HTTP server exposing the Prometheus scrape endpoint, plus a shutdown
// function that flushes both providers.
func Init(ctx context.Context, logger *slog.Logger, metricsPort string) (*http.Server, func(context.Context) error, error) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	exporter, err := otelprom.New()
	if err != nil {
		return nil, nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              ":" + metricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := func(ctx context.Context) error {
		if err := mp.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Error shutting down meter provider", slog.Any("error", err))
		}
		return tp.Shutdown(ctx)
	}

	logger.Info("Metrics endpoint configured", slog.String("addr", srv.Addr), slog.String("path", "/metrics"))
	return srv, shutdown, nil
}
