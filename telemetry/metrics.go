/*
Package telemetry exposes Prometheus instrumentation for the scoring engine.

PURPOSE:
  One place for every counter and histogram the engine, aggregator and HTTP
  layer record. Uses a custom registry so tests can run side by side without
  duplicate-registration panics from the default global registry.

SEE ALSO:
  - api/server.go: mounts Handler() at /metrics
*/
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	evaluationsProcessed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "scoring",
		Name:      "evaluations_processed_total",
		Help:      "Evaluations successfully folded into gamification state.",
	})

	processFailures = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoring",
		Name:      "process_failures_total",
		Help:      "Evaluation processing failures by reason.",
	}, []string{"reason"})

	conflictRetries = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "scoring",
		Name:      "conflict_retries_total",
		Help:      "Optimistic-lock collisions that triggered an engine retry.",
	})

	achievementGrants = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "scoring",
		Name:      "achievement_grants_total",
		Help:      "Achievements granted.",
	})

	processDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: "scoring",
		Name:      "process_duration_seconds",
		Help:      "End-to-end latency of ProcessEvaluation including retries.",
		Buckets:   prometheus.DefBuckets,
	})

	metricsRefreshes = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoring",
		Name:      "metrics_refreshes_total",
		Help:      "Performance-metric refreshes by period type.",
	}, []string{"period_type"})

	replays = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "scoring",
		Name:      "replays_total",
		Help:      "Full per-entity recomputations from the evaluation log.",
	})

	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoring",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"route", "status"})
)

func RecordEvaluationProcessed() { evaluationsProcessed.Inc() }

func RecordProcessFailure(reason string) { processFailures.WithLabelValues(reason).Inc() }

func RecordConflictRetry() { conflictRetries.Inc() }

func RecordAchievementGrant() { achievementGrants.Inc() }

func RecordReplay() { replays.Inc() }

func ObserveProcessDuration(d time.Duration) { processDuration.Observe(d.Seconds()) }

func RecordMetricsRefresh(periodType string) {
	metricsRefreshes.WithLabelValues(periodType).Inc()
}

func RecordHTTPRequest(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
