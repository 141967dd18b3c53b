package group

import "github.com/prometheus/client_golang/prometheus"

// Metrics are registered with the default Prometheus registry at init.
// decompctl's `plan --metrics` prints the three counters; it does not
// print TransferSeconds.
var (
	TripletsMatched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "decomp",
		Name:      "triplets_matched_total",
		Help:      "Number of element IDs matched to an I/O-side owner during plan construction.",
	})
	RoundRobinSteps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "decomp",
		Name:      "round_robin_steps_total",
		Help:      "Number of round-robin steps executed across all BuildPlan calls.",
	})
	BytesPacked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "decomp",
		Name:      "bytes_packed_total",
		Help:      "Bytes packed into per-peer send regions by the transfer engine.",
	})
	TransferSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "decomp",
		Name:      "transfer_seconds",
		Help:      "Wall-clock duration of one transfer_field call.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(TripletsMatched, RoundRobinSteps, BytesPacked, TransferSeconds)
}
