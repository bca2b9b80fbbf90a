package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recalcRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scoring_recalculation_runs_total",
		Help: "Full recalculation passes by outcome.",
	}, []string{"outcome"})
	tasksScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scoring_tasks_total",
		Help: "Per-task score writes by result.",
	}, []string{"result"})
	recalcDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scoring_recalculation_duration_seconds",
		Help:    "Wall time of a full recalculation pass.",
		Buckets: prometheus.DefBuckets,
	})
)
