package slackbot

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	relayMetricsOnce      sync.Once
	relayCounter          metric.Int64Counter
	relayErrorCounter     metric.Int64Counter
	relayLatencyHistogram metric.Float64Histogram
)

func initRelayOTelMetrics() {
	relayMetricsOnce.Do(func() {
		meter := otel.Meter("ragrelay/slackbot")

		var err error
		relayCounter, err = meter.Int64Counter(
			"ragrelay.slack.relays.total",
			metric.WithDescription("Total relay requests handled"),
		)
		if err != nil {
			log.Printf("observability: failed to create relay counter: %v", err)
		}

		relayErrorCounter, err = meter.Int64Counter(
			"ragrelay.slack.errors.total",
			metric.WithDescription("Total relay errors"),
		)
		if err != nil {
			log.Printf("observability: failed to create relay error counter: %v", err)
		}

		relayLatencyHistogram, err = meter.Float64Histogram(
			"ragrelay.slack.response_time",
			metric.WithDescription("Relay response time (ms)"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("observability: failed to create relay latency histogram: %v", err)
		}
	})
}

func recordRelayMetrics(ctx context.Context, attrs []attribute.KeyValue, duration time.Duration, hadError bool) {
	initRelayOTelMetrics()
	if relayCounter != nil {
		relayCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if relayLatencyHistogram != nil {
		relayLatencyHistogram.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	if hadError && relayErrorCounter != nil {
		relayErrorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
