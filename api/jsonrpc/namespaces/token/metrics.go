package token

import "github.com/prometheus/client_golang/prometheus"

var (
	invokeReadOnlyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "token_ledger",
		Subsystem: "jsonrpc",
		Name:      "invoke_readonly_duration_seconds",
		Help:      "The latency of read only api",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	invokeSendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "token_ledger",
		Subsystem: "jsonrpc",
		Name:      "invoke_send_duration_seconds",
		Help:      "The latency of api waiting for a receipt",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	queryTotalCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "token_ledger",
		Subsystem: "jsonrpc",
		Name:      "query_total_counter",
		Help:      "the total number of queries",
	})

	queryFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "token_ledger",
		Subsystem: "jsonrpc",
		Name:      "query_failed_counter",
		Help:      "the number of failed queries",
	})
)

func init() {
	prometheus.MustRegister(invokeReadOnlyDuration)
	prometheus.MustRegister(invokeSendDuration)
	prometheus.MustRegister(queryTotalCounter)
	prometheus.MustRegister(queryFailedCounter)
}
