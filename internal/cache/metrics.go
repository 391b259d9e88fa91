package cache

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

type cacheMetricsCollection struct {
	queryCount    metric.Int64Counter
	fetchCount    metric.Int64Counter
	fetchAttempts metric.Int64Histogram
	fetchDuration metric.Float64Histogram
	mutationCount metric.Int64Counter
	evictionCount metric.Int64Counter
}

func setupCacheMetrics(meter metric.Meter) (cacheMetricsCollection, error) {
	queryCount, err := meter.Int64Counter(
		"cache/query_count",
		metric.WithDescription("Reads of cached queries, by whether they were served from the cache"),
	)
	if err != nil {
		return cacheMetricsCollection{}, fmt.Errorf("failed to create query count metric: %w", err)
	}

	fetchCount, err := meter.Int64Counter(
		"cache/fetch_count",
		metric.WithDescription("Completed fetches, by outcome"),
	)
	if err != nil {
		return cacheMetricsCollection{}, fmt.Errorf("failed to create fetch count metric: %w", err)
	}

	fetchAttempts, err := meter.Int64Histogram(
		"cache/fetch_attempts",
		metric.WithDescription("Attempts used per fetch"),
	)
	if err != nil {
		return cacheMetricsCollection{}, fmt.Errorf("failed to create fetch attempts metric: %w", err)
	}

	fetchDuration, err := meter.Float64Histogram(
		"cache/fetch_duration_seconds",
		metric.WithDescription("Time spent fetching, including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return cacheMetricsCollection{}, fmt.Errorf("failed to create fetch duration metric: %w", err)
	}

	mutationCount, err := meter.Int64Counter(
		"cache/mutation_count",
		metric.WithDescription("Settled mutations, by outcome"),
	)
	if err != nil {
		return cacheMetricsCollection{}, fmt.Errorf("failed to create mutation count metric: %w", err)
	}

	evictionCount, err := meter.Int64Counter(
		"cache/eviction_count",
		metric.WithDescription("Entries removed from the cache, by reason"),
	)
	if err != nil {
		return cacheMetricsCollection{}, fmt.Errorf("failed to create eviction count metric: %w", err)
	}

	return cacheMetricsCollection{
		queryCount:    queryCount,
		fetchCount:    fetchCount,
		fetchAttempts: fetchAttempts,
		fetchDuration: fetchDuration,
		mutationCount: mutationCount,
		evictionCount: evictionCount,
	}, nil
}
