package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	emptyCategory = "empty_category"
	unknownSource = "unknown"
)

type MetricsConfig struct {
	Namespace string
	// Buckets of the duration histogram, in milliseconds.
	Buckets []float64
}

// Duration Metric Processing

type durationDecorator[Payload any] struct {
	processing Processing[Payload]
	histogram  *prometheus.HistogramVec
	clock      clockwork.Clock
}

func NewDurationMetricsDecoratorProcessing[Payload any](p Processing[Payload], registry prometheus.Registerer, clock clockwork.Clock, config MetricsConfig) (Processing[Payload], error) {
	buckets := config.Buckets
	if len(buckets) == 0 {
		buckets = []float64{10, 20, 50, 100, 200, 500, 1000, 2000, 5000}
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Name:      "processing_duration_milliseconds",
		Help:      "Time taken to process payload.",
		Buckets:   buckets,
	}, []string{"failed"})

	err := registry.Register(histogram)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	return durationDecorator[Payload]{
		processing: p,
		histogram:  histogram,
		clock:      clock,
	}, nil
}

func (p durationDecorator[Payload]) Process(ctx context.Context, payload Payload) error {
	start := p.clock.Now()

	err := p.processing.Process(ctx, payload)

	p.histogram.WithLabelValues(strconv.FormatBool(err != nil)).Observe(milliseconds(p.clock.Since(start)))

	return err
}

func milliseconds(d time.Duration) float64 {
	return float64(d/time.Millisecond) + float64(d%time.Millisecond)/float64(time.Millisecond)
}

// Error Metric Processing

type errorCountProcessing struct {
	counter *prometheus.CounterVec
}

// NewErrorCountProcessing counts processing errors by category and by the source named in
// their origin.
func NewErrorCountProcessing(registry prometheus.Registerer, config MetricsConfig) (Processing[ErrProcessingError], error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Name:      "processing_error_total",
		Help:      "Error counter by category and source.",
	}, []string{"category", "source"})

	err := registry.Register(counter)
	if err != nil {
		return nil, fmt.Errorf("failed to register metric: %w", err)
	}

	return errorCountProcessing{counter: counter}, nil
}

func (p errorCountProcessing) Process(_ context.Context, processingError ErrProcessingError) error {
	category := processingError.Category
	if category == "" {
		category = emptyCategory
	}

	source := unknownSource
	if processingError.Origin != nil && processingError.Origin.Source != "" {
		source = processingError.Origin.Source
	}

	p.counter.WithLabelValues(category, source).Inc()

	return nil
}
