package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "editd",
			Subsystem: "jobs",
			Name:      "submitted_total",
			Help:      "Total jobs accepted into the queue",
		},
	)

	jobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "editd",
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Total jobs finished by terminal status",
		},
		[]string{"status"},
	)

	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "editd",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Wall time of job execution from dequeue to terminal state",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	queueDepthGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "editd",
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Jobs currently waiting in the queue",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsSubmittedTotal, jobsCompletedTotal, jobDuration, queueDepthGauge)
}
