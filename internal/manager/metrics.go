package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	modelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "editd",
			Subsystem: "model",
			Name:      "loads_total",
			Help:      "Total model load attempts by outcome",
		},
		[]string{"outcome"},
	)

	modelUnloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "editd",
			Subsystem: "model",
			Name:      "unloads_total",
			Help:      "Total model unloads by trigger",
		},
		[]string{"trigger"},
	)

	modelLoadedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "editd",
			Subsystem: "model",
			Name:      "loaded",
			Help:      "Whether the model is currently loaded (1) or not (0)",
		},
	)

	modelLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "editd",
			Subsystem: "model",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful model loads in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(modelLoadsTotal, modelUnloadsTotal, modelLoadedGauge, modelLoadDuration)
}
