package observability

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts business events. A nil receiver is a no-op.
type DomainMetrics struct {
	warrantyTransitions *prometheus.CounterVec
	closingOutcomes     *prometheus.CounterVec
	closingDifference   *prometheus.HistogramVec
	activityDropped     *prometheus.CounterVec
	forcedSignOuts      prometheus.Counter
}

// NewDomainMetrics registers the business counters against registerer.
func NewDomainMetrics(registerer prometheus.Registerer) *DomainMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		warrantyTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nou_warranty_transitions_total",
			Help: "Warranty state changes by resulting status and outcome.",
		}, []string{"to", "result"}),
		closingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nou_cash_closings_total",
			Help: "Submitted cash closings by reconciliation outcome.",
		}, []string{"outcome"}),
		closingDifference: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nou_cash_closing_abs_difference",
			Help:    "Absolute combined difference of non-perfect closings, in currency units.",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"outcome"}),
		activityDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nou_activity_dropped_total",
			Help: "Activity rows that failed to persist and were discarded.",
		}, []string{"action"}),
		forcedSignOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nou_forced_signouts_total",
			Help: "Sessions revoked because the user had no organization.",
		}),
	}
	registerer.MustRegister(m.warrantyTransitions, m.closingOutcomes, m.closingDifference, m.activityDropped, m.forcedSignOuts)
	return m
}

// WarrantyTransition counts a transition attempt. result is "ok" or "rejected".
func (m *DomainMetrics) WarrantyTransition(to, result string) {
	if m == nil {
		return
	}
	m.warrantyTransitions.WithLabelValues(to, result).Inc()
}

// ClosingSubmitted counts a persisted closing.
func (m *DomainMetrics) ClosingSubmitted(outcome string, combinedDifference int64) {
	if m == nil {
		return
	}
	m.closingOutcomes.WithLabelValues(outcome).Inc()
	if combinedDifference != 0 {
		if combinedDifference < 0 {
			combinedDifference = -combinedDifference
		}
		m.closingDifference.WithLabelValues(outcome).Observe(float64(combinedDifference))
	}
}

// ActivityDropped counts a discarded activity row.
func (m *DomainMetrics) ActivityDropped(action string) {
	if m == nil {
		return
	}
	m.activityDropped.WithLabelValues(action).Inc()
}

// ForcedSignOut counts a fail-closed session revocation.
func (m *DomainMetrics) ForcedSignOut() {
	if m == nil {
		return
	}
	m.forcedSignOuts.Inc()
}
