package executor

import "github.com/prometheus/client_golang/prometheus"

var (
	executeBlockDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "token_ledger",
		Subsystem: "executor",
		Name:      "execute_block_duration_second",
		Help:      "The total latency of block execute",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	applyInvocationsDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "token_ledger",
		Subsystem: "executor",
		Name:      "apply_invocations_duration_second",
		Help:      "The total latency of applying the invocations of a block",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	invocationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "token_ledger",
		Subsystem: "executor",
		Name:      "invocation_counter",
		Help:      "the total number of executed invocations by status",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(executeBlockDuration)
	prometheus.MustRegister(applyInvocationsDuration)
	prometheus.MustRegister(invocationCounter)
}
