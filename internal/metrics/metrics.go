// Package metrics holds the Prometheus collectors of the promotion service.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's collectors.
type Metrics struct {
	rpcRequests    *prometheus.CounterVec
	rpcDuration    *prometheus.HistogramVec
	admissions     *prometheus.CounterVec
	settlements    prometheus.Counter
	receivables    prometheus.Counter
	ledgerConflict *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupbuy_rpc_requests_total",
			Help: "Count of promotion RPCs by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "groupbuy_rpc_duration_seconds",
			Help:    "Latency of promotion RPCs by procedure.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupbuy_admissions_total",
			Help: "Participation attempts by outcome.",
		}, []string{"outcome"}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groupbuy_settlements_total",
			Help: "Settlement transactions created.",
		}),
		receivables: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groupbuy_receivables_total",
			Help: "Sum of receivables across created settlement transactions, in minor units.",
		}),
		ledgerConflict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupbuy_ledger_conflicts_total",
			Help: "Ledger commits rejected because a read key changed, by operation.",
		}, []string{"operation"}),
	}
	reg.MustRegister(
		m.rpcRequests,
		m.rpcDuration,
		m.admissions,
		m.settlements,
		m.receivables,
		m.ledgerConflict,
	)
	return m
}

// ObserveRPC counts one call by procedure and Connect code and records its latency.
func (m *Metrics) ObserveRPC(procedure, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if code == "" {
		code = "ok"
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// ObserveAdmission counts a Participate outcome, e.g. "admitted" or a failure kind.
func (m *Metrics) ObserveAdmission(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.admissions.WithLabelValues(outcome).Inc()
}

// ObserveSettlement counts a created settlement and adds its receivables.
func (m *Metrics) ObserveSettlement(receivables int64) {
	if m == nil {
		return
	}
	m.settlements.Inc()
	if receivables > 0 {
		m.receivables.Add(float64(receivables))
	}
}

// ObserveConflict counts a commit rejected by a concurrent write.
func (m *Metrics) ObserveConflict(operation string) {
	if m == nil {
		return
	}
	m.ledgerConflict.WithLabelValues(operation).Inc()
}
