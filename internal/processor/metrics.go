package processor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the polling loop. A nil registerer keeps them unregistered.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CycleErrorsTotal prometheus.Counter
	ItemsTotal       *prometheus.CounterVec
	Running          prometheus.Gauge
	LastCheck        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "workorder_processor_cycles_total",
			Help: "Poll cycles started",
		}),
		CycleErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "workorder_processor_cycle_errors_total",
			Help: "Poll cycles that failed before handling items",
		}),
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workorder_processor_items_total",
				Help: "Items handled by outcome",
			},
			[]string{"outcome"},
		),
		Running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "workorder_processor_running",
			Help: "1 while the polling loop is running",
		}),
		LastCheck: factory.NewGauge(prometheus.GaugeOpts{
			Name: "workorder_processor_last_check_timestamp_seconds",
			Help: "Unix time of the most recent poll cycle start",
		}),
	}
}
