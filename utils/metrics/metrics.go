package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics instruments a borrow engine's network sync loop. Metrics are
// created unregistered; call Register to expose them.
type SyncMetrics struct {
	Refreshes      *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	RefreshLatency prometheus.Histogram
	SyncRatio      prometheus.Gauge
	LoanToValue    prometheus.Gauge
}

// NewSyncMetrics creates sync loop metrics labeled with the owning wallet so
// several engines can share a process.
func NewSyncMetrics(namespace, walletID string) *SyncMetrics {
	labels := prometheus.Labels{"wallet": walletID}
	return &SyncMetrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "refreshes_total",
			Help:        "Total number of completed state refreshes by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "refresh_errors_total",
			Help:        "Total number of failed state refreshes by kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		RefreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "refresh_latency_seconds",
			Help:        "Latency of state refreshes",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		SyncRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "sync_ratio",
			Help:        "Engine sync ratio, 1 once balances are fresh",
			ConstLabels: labels,
		}),
		LoanToValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "loan_to_value",
			Help:        "Current loan-to-value ratio",
			ConstLabels: labels,
		}),
	}
}

// Register registers all sync metrics with reg.
func (m *SyncMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Refreshes, m.Errors, m.RefreshLatency, m.SyncRatio, m.LoanToValue,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// AdapterMetrics instruments a lending network adapter's RPC surface.
type AdapterMetrics struct {
	Calls       *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	CallLatency prometheus.Histogram
}

// NewAdapterMetrics creates adapter metrics under the given namespace.
func NewAdapterMetrics(namespace string) *AdapterMetrics {
	return &AdapterMetrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of adapter calls by method",
		}, []string{"method"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_errors_total",
			Help:      "Total number of failed adapter calls by method",
		}, []string{"method"}),
		CallLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_latency_seconds",
			Help:      "Latency of adapter calls",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}
}

// Register registers all adapter metrics with reg.
func (m *AdapterMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Calls, m.Errors, m.CallLatency} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
