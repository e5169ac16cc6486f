package observe

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ProviderConfig configures the OpenTelemetry metric SDK.
type ProviderConfig struct {
	// ServiceName is the service name reported in telemetry. Default: "reviewcap".
	ServiceName string

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string

	// Reader receives the collected metrics. When nil, a manual reader is
	// installed and the totals are logged once on shutdown.
	Reader sdkmetric.Reader

	// Logger receives the shutdown totals. Default: discard.
	Logger *slog.Logger
}

// InitProvider installs an SDK [sdkmetric.MeterProvider] as the global OTel
// meter provider and creates the application's instruments on it.
//
// Returns a shutdown function that flushes and closes the provider. Call it
// in a defer from main().
func InitProvider(ctx context.Context, cfg ProviderConfig) (*Metrics, func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "reviewcap"
	}
	if cfg.Logger == nil {
		cfg.Logger = Discard()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	var manual *sdkmetric.ManualReader
	reader := cfg.Reader
	if reader == nil {
		manual = sdkmetric.NewManualReader()
		reader = manual
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	metrics, err := NewMetrics(mp)
	if err != nil {
		return nil, nil, errors.Join(err, mp.Shutdown(ctx))
	}

	shutdown := func(ctx context.Context) error {
		var errs []error
		if manual != nil {
			if err := logTotals(ctx, manual, cfg.Logger); err != nil {
				errs = append(errs, err)
			}
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
	return metrics, shutdown, nil
}

// logTotals writes one line with every counter total and histogram count.
func logTotals(ctx context.Context, reader *sdkmetric.ManualReader, logger *slog.Logger) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}

	var attrs []any
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				attrs = append(attrs, m.Name, total)
			case metricdata.Histogram[float64]:
				var count uint64
				for _, dp := range data.DataPoints {
					count += dp.Count
				}
				attrs = append(attrs, m.Name+".count", count)
			}
		}
	}
	if len(attrs) > 0 {
		logger.Info("metrics", attrs...)
	}
	return nil
}
