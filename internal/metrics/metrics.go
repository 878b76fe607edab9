package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModelCalls counts gateway calls by outcome ("ok" or "absent").
	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longeval_model_calls_total",
			Help: "Total number of model gateway calls",
		},
		[]string{"model", "outcome"},
	)

	ModelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "longeval_model_call_duration_seconds",
			Help:    "Model gateway call latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)

	RateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "longeval_rate_limit_wait_seconds",
			Help:    "Time spent waiting for rate limiter admission",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	// ParseOutcomes counts response parser results by source
	// ("direct", "recovered", "failed").
	ParseOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longeval_parse_outcomes_total",
			Help: "Response parser outcomes",
		},
		[]string{"source"},
	)

	UnitsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "longeval_units_evaluated_total",
			Help: "Units fully evaluated and checkpointed",
		},
	)

	CheckpointWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "longeval_checkpoint_writes_total",
			Help: "Checkpoint saves by result",
		},
		[]string{"result"},
	)

	CriterionScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "longeval_criterion_score",
			Help: "Most recent document average per criterion (1.0-5.0)",
		},
		[]string{"criterion"},
	)
)
