package sqlstore

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation status label values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// metrics records per-table operation counts and latencies. Collectors are
// always created; they are only exported when a Registerer is configured.
type metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer, inUse func() float64) *metrics {
	m := &metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docstore",
			Name:      "operations_total",
			Help:      "Table operations by table, operation and status.",
		}, []string{"table", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docstore",
			Name:      "operation_duration_seconds",
			Help:      "Table operation latency, including the wait for a connection.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "operation"}),
	}
	if reg == nil {
		return m
	}

	m.ops = registerOrReuse(reg, m.ops)
	m.duration = registerOrReuse(reg, m.duration)
	// A second Database on the same registry keeps the first one's gauge.
	_ = reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "docstore",
		Name:      "pool_in_use",
		Help:      "Connections currently borrowed from the pool.",
	}, inUse))
	return m
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observe(table, op string, start time.Time, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.ops.WithLabelValues(table, op, status).Inc()
	m.duration.WithLabelValues(table, op).Observe(time.Since(start).Seconds())
}
