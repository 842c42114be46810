// Package metrics exposes the Prometheus collectors of the server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emergencyclick"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	storeWrites *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// Passing nil registers nothing, which keeps tests free of global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Contact writes by store, operation and result.",
		}, []string{"store", "op", "result"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Connect RPC latency by procedure and code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}
	if reg != nil {
		reg.MustRegister(m.storeWrites, m.rpcDuration)
	}
	return m
}

// ObserveStoreWrite counts one contact write. store is "document" or
// "shared", op is "add" or "remove".
func (m *Metrics) ObserveStoreWrite(store, op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(store, op, result).Inc()
}

// ObserveRPC records the latency of one RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}

// StoreWrites exposes the write counter for inspection in tests.
func (m *Metrics) StoreWrites() *prometheus.CounterVec {
	return m.storeWrites
}
