// Package metrics exposes the ledger counters scraped at /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "glow"

// Metrics groups the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	transactionsAdded     *prometheus.CounterVec
	snapshotWriteFailures prometheus.Counter
	corruptDropped        prometheus.Counter
	corruptSkipped        prometheus.Counter
	mirrored              prometheus.Counter
	httpRequests          *prometheus.CounterVec
	rateLimited           prometheus.Counter
	suspicious            prometheus.Counter
}

// New registers the counters on a fresh registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		transactionsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_added_total",
			Help:      "Transactions appended to the ledger, by kind.",
		}, []string{"kind"}),
		snapshotWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_write_failures_total",
			Help:      "Snapshot writes that failed after an add.",
		}),
		corruptDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_records_dropped_total",
			Help:      "Snapshot records dropped while loading.",
		}),
		corruptSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corrupt_records_skipped_total",
			Help:      "Records counted as zero during aggregation.",
		}),
		mirrored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_mirrored_total",
			Help:      "Transactions appended to the spreadsheet mirror.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		suspicious: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "suspicious_requests_total",
			Help:      "Requests matching a known attack pattern.",
		}),
	}
}

func (m *Metrics) TransactionAdded(kind string) {
	if m == nil {
		return
	}
	m.transactionsAdded.WithLabelValues(kind).Inc()
}

func (m *Metrics) SnapshotWriteFailed() {
	if m == nil {
		return
	}
	m.snapshotWriteFailures.Inc()
}

func (m *Metrics) CorruptRecordsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.corruptDropped.Add(float64(n))
}

func (m *Metrics) CorruptRecordSkipped() {
	if m == nil {
		return
	}
	m.corruptSkipped.Inc()
}

func (m *Metrics) TransactionsMirrored(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mirrored.Add(float64(n))
}

func (m *Metrics) HTTPRequest(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) SuspiciousRequest() {
	if m == nil {
		return
	}
	m.suspicious.Inc()
}
