package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapkeeper_reconcile_runs_total",
		Help: "Reconcile passes by result.",
	}, []string{"result"})

	reconcileIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapkeeper_reconcile_intents_total",
		Help: "Intents queued by reconcile passes.",
	}, []string{"direction"})

	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapkeeper_reconcile_duration_seconds",
		Help:    "Duration of reconcile passes that reached the remote.",
		Buckets: prometheus.DefBuckets,
	})

	executorIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapkeeper_executor_intents_total",
		Help: "Intents processed by the executor.",
	}, []string{"direction", "outcome"})
)
