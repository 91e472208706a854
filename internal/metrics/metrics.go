package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/telemetry"
)

var (
	// Scan counters
	ScansAdmitted  *telemetry.Counter
	ScansRejected  *telemetry.Counter
	ScansThrottled *telemetry.Counter

	// Retry tracking
	TransientRetries *telemetry.Counter
	RetriesExhausted *telemetry.Counter

	// Batch counters
	BatchesProcessed *telemetry.Counter

	// Histograms
	ValidationDuration *telemetry.Histogram
	BatchSize          *telemetry.Histogram

	// Gauges
	RateLimiterKeys *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all validation metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	ScansAdmitted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "scan_admissions_total",
		Description: "Total number of admitted scans",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ScansRejected, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "scan_rejections_total",
		Description: "Total number of rejected scans by code",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ScansThrottled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "scan_throttled_total",
		Description: "Total number of scans rejected by the rate limiter",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TransientRetries, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "scan_transient_retries_total",
		Description: "Total number of transaction retries after transient failures",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RetriesExhausted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "scan_retries_exhausted_total",
		Description: "Total number of validations that exhausted the retry budget",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BatchesProcessed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "scan_batches_total",
		Description: "Total number of processed validation batches",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ValidationDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "scan_validation_duration_seconds",
		Description: "Validation duration in seconds",
		Unit:        "s",
	}, []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2}) // 1ms to 2s
	if err != nil {
		return err
	}

	BatchSize, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "scan_batch_size",
		Description: "Number of items per validation batch",
		Unit:        "1",
	}, []float64{1, 2, 5, 10, 20, 30, 40, 50})
	if err != nil {
		return err
	}

	RateLimiterKeys, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "scan_rate_limiter_keys",
		Description: "Current number of tracked rate limiter keys",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordAdmission records an admitted scan
func RecordAdmission(ctx context.Context, eventID string, durationSeconds float64) {
	if ScansAdmitted != nil {
		ScansAdmitted.Inc(ctx, attribute.String("event_id", eventID))
	}
	if ValidationDuration != nil {
		ValidationDuration.Record(ctx, durationSeconds, attribute.String("outcome", "admitted"))
	}
}

// RecordRejection records a rejected scan with its code
func RecordRejection(ctx context.Context, eventID, code string, durationSeconds float64) {
	if ScansRejected != nil {
		ScansRejected.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("code", code),
		)
	}
	if ValidationDuration != nil {
		ValidationDuration.Record(ctx, durationSeconds, attribute.String("outcome", "rejected"))
	}
}

// RecordThrottled records a scan stopped by the rate limiter
func RecordThrottled(ctx context.Context) {
	if ScansThrottled != nil {
		ScansThrottled.Inc(ctx)
	}
}

// RecordRetry records one transient transaction retry
func RecordRetry(ctx context.Context) {
	if TransientRetries != nil {
		TransientRetries.Inc(ctx)
	}
}

// RecordRetryExhausted records a validation that ran out of retries
func RecordRetryExhausted(ctx context.Context) {
	if RetriesExhausted != nil {
		RetriesExhausted.Inc(ctx)
	}
}

// RecordBatch records a processed batch
func RecordBatch(ctx context.Context, size int) {
	if BatchesProcessed != nil {
		BatchesProcessed.Inc(ctx)
	}
	if BatchSize != nil {
		BatchSize.Record(ctx, float64(size))
	}
}
