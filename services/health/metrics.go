package health

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	computations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "health_computations_total",
		Help: "Health score computations by entity type and result.",
	}, []string{"entity_type", "result"})
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "health_sweep_duration_seconds",
		Help:    "Wall time of a full health sweep.",
		Buckets: prometheus.DefBuckets,
	})
)
