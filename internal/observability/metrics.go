package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostEventsPublished counts post lifecycle events by type and outcome.
	PostEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_post_events_published_total",
		Help: "Total number of post lifecycle events published",
	}, []string{"event_type", "outcome"})

	// EventStreamClients tracks open post event websocket connections.
	EventStreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "postboard_event_stream_clients",
		Help: "Number of connected post event stream clients",
	})

	// EventStreamDrops counts events not delivered to a slow or closed stream client.
	EventStreamDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_event_stream_drops_total",
		Help: "Total number of post events dropped for stream clients",
	}, []string{"reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
