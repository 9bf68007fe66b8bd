// Package metrics holds the engine's Prometheus collectors: selection
// latency, weakest-link trigger/finalize counts, answer throughput, and
// topic-graph cache behavior, exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SelectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_selection_duration_seconds",
		Help:    "Duration of nextTheory/nextPractice selection calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	AnswersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_answers_submitted_total",
		Help: "Count of submitAnswer calls by problem type and solved outcome.",
	}, []string{"type", "solved"})

	WeakestLinkTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_weakest_link_triggered_total",
		Help: "Count of weakest-link state machine NONE->IN_PROGRESS transitions.",
	})

	WeakestLinkFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_weakest_link_finalized_total",
		Help: "Count of weakest-link state machine DONE->NONE finalizations.",
	})

	TopicGraphLoad = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_topic_graph_load_total",
		Help: "Count of Topic-Affinity Graph loads by cache hit/miss.",
	}, []string{"result"})
)
