package metrics

import "github.com/prometheus/client_golang/prometheus"

// PortalMetrics exposes counters/histograms for clock resolution and
// dashboard refresh flows.
type PortalMetrics struct {
	clockResolutions *prometheus.CounterVec
	refreshCycles    *prometheus.CounterVec
	refreshLatency   *prometheus.HistogramVec
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		clockResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nnia",
			Subsystem: "realtime",
			Name:      "clock_resolutions_total",
			Help:      "Total clock resolutions by provenance source",
		}, []string{"source"}),
		refreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nnia",
			Subsystem: "dashboard",
			Name:      "refresh_cycles_total",
			Help:      "Total dashboard preview refresh cycles",
		}, []string{"outcome"}),
		refreshLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nnia",
			Subsystem: "dashboard",
			Name:      "refresh_latency_seconds",
			Help:      "Latency of dashboard preview refresh cycles",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.clockResolutions, m.refreshCycles, m.refreshLatency)
	return m
}

func (m *PortalMetrics) ObserveClockResolution(source string) {
	if m == nil {
		return
	}
	m.clockResolutions.WithLabelValues(source).Inc()
}

func (m *PortalMetrics) ObserveRefreshCycle(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.refreshCycles.WithLabelValues(outcome).Inc()
	m.refreshLatency.WithLabelValues(outcome).Observe(seconds)
}
