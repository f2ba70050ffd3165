package ledger

import "github.com/prometheus/client_golang/prometheus"

var (
	persistBlockDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "token_ledger",
		Subsystem: "ledger",
		Name:      "persist_block_duration_second",
		Help:      "The total latency of block persist",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	blockHeightMetric = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "token_ledger",
		Subsystem: "ledger",
		Name:      "block_height",
		Help:      "the latest block height",
	})

	flushDirtyWorldStateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "token_ledger",
		Subsystem: "ledger",
		Name:      "flush_dirty_world_state_duration",
		Help:      "The total latency of flush dirty world state into db",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	accountReadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "token_ledger",
		Subsystem: "ledger",
		Name:      "account_read_duration",
		Help:      "The total latency of read an account from db",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 10),
	})

	stateCacheHitCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "token_ledger",
		Subsystem: "ledger",
		Name:      "state_cache_hit_counter",
		Help:      "The total number of state cache hit",
	})

	stateCacheMissCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "token_ledger",
		Subsystem: "ledger",
		Name:      "state_cache_miss_counter",
		Help:      "The total number of state cache miss",
	})
)

func init() {
	prometheus.MustRegister(persistBlockDuration)
	prometheus.MustRegister(blockHeightMetric)
	prometheus.MustRegister(flushDirtyWorldStateDuration)
	prometheus.MustRegister(accountReadDuration)
	prometheus.MustRegister(stateCacheHitCounter)
	prometheus.MustRegister(stateCacheMissCounter)
}
