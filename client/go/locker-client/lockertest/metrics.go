package lockertest

import "github.com/prometheus/client_golang/prometheus"

type serverMetrics struct {
	acquireTotal *prometheus.CounterVec // result=success|held|bad_request
	renewTotal   *prometheus.CounterVec // result=success|mismatch|bad_request
	releaseTotal *prometheus.CounterVec // result=success|forced|mismatch|bad_request
	locksHeld    prometheus.Gauge
	expiredTotal prometheus.Counter
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		acquireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lock_acquire_total",
				Help: "Total acquire requests by result",
			},
			[]string{"result"},
		),
		renewTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lock_renew_total",
				Help: "Total renew requests by result",
			},
			[]string{"result"},
		),
		releaseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lock_release_total",
				Help: "Total release requests by result",
			},
			[]string{"result"},
		),
		locksHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "locks_held",
			Help: "Number of currently held (unexpired) locks",
		}),
		expiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lock_expired_total",
			Help: "Total number of leases found expired",
		}),
	}

	reg.MustRegister(
		m.acquireTotal,
		m.renewTotal,
		m.releaseTotal,
		m.locksHeld,
		m.expiredTotal,
	)

	return m
}
