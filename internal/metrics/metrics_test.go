package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRPC("/groupbuy.v1.PromotionService/Participate", "", time.Millisecond)
	m.ObserveRPC("/groupbuy.v1.PromotionService/Participate", "failed_precondition", time.Millisecond)
	m.ObserveAdmission("admitted")
	m.ObserveAdmission("admitted")
	m.ObserveAdmission("")
	m.ObserveSettlement(290)
	m.ObserveConflict("Participate")

	if got := testutil.ToFloat64(m.rpcRequests.WithLabelValues("/groupbuy.v1.PromotionService/Participate", "ok")); got != 1 {
		t.Errorf("expected 1 ok request, got %v", got)
	}
	if got := testutil.ToFloat64(m.admissions.WithLabelValues("admitted")); got != 2 {
		t.Errorf("expected 2 admissions, got %v", got)
	}
	if got := testutil.ToFloat64(m.admissions.WithLabelValues("unknown")); got != 1 {
		t.Errorf("expected empty outcome counted as unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.receivables); got != 290 {
		t.Errorf("expected receivables 290, got %v", got)
	}
	if got := testutil.ToFloat64(m.ledgerConflict.WithLabelValues("Participate")); got != 1 {
		t.Errorf("expected 1 conflict, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRPC("p", "ok", time.Second)
	m.ObserveAdmission("admitted")
	m.ObserveSettlement(1)
	m.ObserveConflict("x")
}
