package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loanscope"

var (
	// Scanner
	ScannerBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "batches_total",
		Help:      "Block range batches processed, by phase and outcome",
	}, []string{"phase", "status"})

	ScannerCursor = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "cursor_block",
		Help:      "Highest block number the scanner has advanced past",
	})

	ScannerChainHead = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "chain_head_block",
		Help:      "Latest block number reported by the node",
	})

	ScannerGapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scanner",
		Name:      "gaps_total",
		Help:      "Historical block ranges skipped after retry exhaustion",
	})

	// RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Node RPC calls by method and status class",
	}, []string{"method", "status"})

	RPCRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "RPC calls delayed by the client-side rate limiter",
	})

	// Decoder
	EventsDecodedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "events_total",
		Help:      "Logs decoded into events, by event name",
	}, []string{"event"})

	DecodeSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decoder",
		Name:      "skipped_total",
		Help:      "Logs not turned into events, by reason",
	}, []string{"reason"})

	// Persistence
	PersistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sink",
		Name:      "persist_total",
		Help:      "Event writes by sink and outcome",
	}, []string{"sink", "status"})

	// Event store
	StoreRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "refresh_total",
		Help:      "Event store refreshes by outcome",
	}, []string{"status"})

	StoreRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "refresh_duration_seconds",
		Help:      "Time to load and aggregate the event set",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	StoreEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "events",
		Help:      "Events in the current snapshot",
	})

	StoreLoans = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "loans",
		Help:      "Loan records in the current snapshot",
	})

	StoreLoadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "load_errors_total",
		Help:      "Stored records or files skipped during load",
	})

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Query API requests by method, route and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Query API request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)
