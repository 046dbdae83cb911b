package cart

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Operations *prometheus.CounterVec
	Lines      prometheus.Gauge
	Units      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_operations_total",
				Help: "Cart operations by kind and outcome",
			},
			[]string{"op", "outcome"},
		),
		Lines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_lines",
			Help: "Distinct products in the cart",
		}),
		Units: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_units",
			Help: "Total quantity across cart lines",
		}),
	}

	reg.MustRegister(m.Operations, m.Lines, m.Units)
	return m
}

func (m *Metrics) observe(op Op, o Outcome) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(string(op), o.String()).Inc()
}

func (m *Metrics) setCart(items []Item) {
	if m == nil {
		return
	}
	units := 0
	for _, it := range items {
		units += it.Amount
	}
	m.Lines.Set(float64(len(items)))
	m.Units.Set(float64(units))
}
