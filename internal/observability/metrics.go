// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesSubmitted counts vote submissions by outcome.
	VotesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sidewidth_votes_submitted_total",
		Help: "Total number of vote submissions by result",
	}, []string{"result"})

	// FeedQueries counts feed page queries by feed type and sort.
	FeedQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sidewidth_feed_queries_total",
		Help: "Total number of feed page queries",
	}, []string{"feed", "sort"})

	// CacheLookups counts cache-aside lookups by outcome.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sidewidth_cache_lookups_total",
		Help: "Total number of cache lookups by result",
	}, []string{"result"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sidewidth_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sidewidth_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// Vote submission results.
const (
	VoteResultAccepted = "accepted"
	VoteResultRejected = "rejected"
	VoteResultFailed   = "failed"
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
