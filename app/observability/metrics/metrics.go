package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginRequestsTotal      metric.Int64Counter
	LoginDurationSeconds    metric.Float64Histogram
	RegisterRequestsTotal   metric.Int64Counter
	RegisterDurationSeconds metric.Float64Histogram
	UpdateRequestsTotal     metric.Int64Counter
	ImageUploadsTotal       metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("employee-api")
		var err error
		m := &AppMetrics{}

		m.LoginRequestsTotal, err = meter.Int64Counter(
			"login_requests_total",
			metric.WithDescription("Total number of login requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_requests_total: %v", err)
		}

		m.LoginDurationSeconds, err = meter.Float64Histogram(
			"login_duration_seconds",
			metric.WithDescription("Duration of login requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create login_duration_seconds: %v", err)
		}

		m.RegisterRequestsTotal, err = meter.Int64Counter(
			"register_requests_total",
			metric.WithDescription("Total number of register requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create register_requests_total: %v", err)
		}

		m.RegisterDurationSeconds, err = meter.Float64Histogram(
			"register_duration_seconds",
			metric.WithDescription("Duration of register requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create register_duration_seconds: %v", err)
		}

		m.UpdateRequestsTotal, err = meter.Int64Counter(
			"update_requests_total",
			metric.WithDescription("Total number of employee update requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create update_requests_total: %v", err)
		}

		m.ImageUploadsTotal, err = meter.Int64Counter(
			"image_uploads_total",
			metric.WithDescription("Total number of profile image uploads"),
			metric.WithUnit("{upload}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create image_uploads_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
