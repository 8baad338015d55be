package compositor

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the compositor's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	transactions   *prometheus.CounterVec
	dispatchTime   prometheus.Histogram
	animations     *prometheus.CounterVec
	hostRejections prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compositor_transactions_total",
				Help: "Transactions applied to the host, by queue kind.",
			},
			[]string{"kind"},
		),
		dispatchTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "compositor_dispatch_duration_seconds",
				Help:    "Time spent applying one dispatch on the host context.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
		),
		animations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compositor_animations_total",
				Help: "Animations settled, by result.",
			},
			[]string{"result"},
		),
		hostRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "compositor_host_rejections_total",
				Help: "Changes the host refused to apply.",
			},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.transactions, m.dispatchTime, m.animations, m.hostRejections} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeDispatch(stats dispatchStats) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues("sub").Add(float64(stats.sub))
	m.transactions.WithLabelValues("movement").Add(float64(stats.movements))
	m.transactions.WithLabelValues("property").Add(float64(stats.properties))
	m.transactions.WithLabelValues("animation").Add(float64(stats.animations))
	m.dispatchTime.Observe(stats.total().Seconds())
	m.hostRejections.Add(float64(stats.rejected))
}

func (m *Metrics) animationSettled(r Result) {
	if m == nil {
		return
	}
	m.animations.WithLabelValues(r.String()).Inc()
}

func (m *Metrics) hostRejected() {
	if m == nil {
		return
	}
	m.hostRejections.Inc()
}

