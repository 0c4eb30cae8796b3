package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every ss-sync collector and is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// ConnectionState is 1 for the current state of the engine connection and 0 for the others.
	ConnectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ss_sync_connection_state",
			Help: "Current state of the engine connection (1 = current).",
		},
		[]string{"state"},
	)

	// ReconnectsTotal counts automatic reconnect attempts.
	ReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ss_sync_reconnects_total",
			Help: "Total number of automatic reconnect attempts.",
		},
	)

	// DroppedFramesTotal counts inbound frames that could not be dispatched.
	DroppedFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ss_sync_dropped_frames_total",
			Help: "Inbound frames dropped because they could not be decoded.",
		},
		[]string{"reason"}, // malformed, unknown_type
	)

	// SyncTotal counts finished synchronizations by result.
	SyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ss_sync_synchronizations_total",
			Help: "Total number of synchronizations by result.",
		},
		[]string{"result"}, // success or the failure kind
	)

	// SyncLatency observes the time from send to the engine's terminal reply.
	SyncLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ss_sync_synchronization_latency_seconds",
			Help:    "Time between sending a model and the engine's reply.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PayloadBytes observes the raw size of synchronized artifacts.
	PayloadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ss_sync_payload_bytes",
			Help:    "Size of GLB artifacts sent to the engine, before encoding.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. 256MiB
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ConnectionState,
		ReconnectsTotal,
		DroppedFramesTotal,
		SyncTotal,
		SyncLatency,
		PayloadBytes,
	)
}

// SetConnectionState marks state as current among all known states.
func SetConnectionState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		ConnectionState.WithLabelValues(s).Set(v)
	}
}
