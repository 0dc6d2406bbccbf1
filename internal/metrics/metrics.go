// Package metrics registers the Prometheus collectors exposed at /metrics,
// grounded on the teacher's promhttp.Handler wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trivia_arena",
		Name:      "active_matches",
		Help:      "Number of matches currently registered in the engine.",
	})

	QuestionResolutionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "trivia_arena",
		Name:      "question_resolution_seconds",
		Help:      "Time from question:new to question:ended, labeled by match difficulty.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 20, 25},
	}, []string{"difficulty"})

	AnswersProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia_arena",
		Name:      "answers_processed_total",
		Help:      "Answers accepted by the engine, labeled by correctness.",
	}, []string{"correct"})

	BroadcastQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trivia_arena",
		Name:      "broadcast_queue_depth",
		Help:      "Current depth of a match's outbound broadcast queue.",
	}, []string{"match_id"})

	SettlementRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trivia_arena",
		Name:      "settlement_retries_total",
		Help:      "Settlement transaction attempts beyond the first, across all matches.",
	})

	ExecutorBusyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trivia_arena",
		Name:      "executor_busy_total",
		Help:      "Commands rejected with Busy because a match's executor could not be acquired in time.",
	})
)
