// Package metrics exports reconciliation metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/reglet-dev/featurefleet/internal/application/ports"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
)

const namespace = "featurefleet"

// Ensure interface compliance
var _ ports.ReconcileObserver = (*Observer)(nil)

// Observer records reconciler events as Prometheus metrics.
type Observer struct {
	attempts       prometheus.Counter
	backoffs       prometheus.Counter
	backoffSeconds prometheus.Counter
	repoFailures   *prometheus.CounterVec
	missing        prometheus.Counter
	passes         *prometheus.CounterVec
	passDuration   prometheus.Histogram
	repositories   prometheus.Gauge
	features       prometheus.Gauge
	lastConverged  prometheus.Gauge
}

// NewObserver creates the collectors and registers them with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "attempts_total",
			Help:      "Reconciliation attempts, including retries.",
		}),
		backoffs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "backoffs_total",
			Help:      "Retries scheduled after the coordination store was unavailable.",
		}),
		backoffSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "backoff_seconds_total",
			Help:      "Time spent waiting between attempts.",
		}),
		repoFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "load_failures_total",
			Help:      "Repository descriptors that could not be loaded.",
		}, []string{"uri"}),
		missing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "missing_features_total",
			Help:      "Requested features no repository declares.",
		}),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Finished reconciliation passes by final state.",
		}, []string{"state"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
		repositories: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "repositories",
			Help:      "Repositories in the installed snapshot.",
		}),
		features: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "features",
			Help:      "Features in the installed snapshot.",
		}),
		lastConverged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "last_converged_timestamp_seconds",
			Help:      "Unix time of the last pass that published a snapshot.",
		}),
	}

	for _, c := range []prometheus.Collector{
		o.attempts, o.backoffs, o.backoffSeconds, o.repoFailures, o.missing,
		o.passes, o.passDuration, o.repositories, o.features, o.lastConverged,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// AttemptStarted implements ports.ReconcileObserver.
func (o *Observer) AttemptStarted() {
	o.attempts.Inc()
}

// BackoffScheduled implements ports.ReconcileObserver.
func (o *Observer) BackoffScheduled(wait time.Duration) {
	o.backoffs.Inc()
	o.backoffSeconds.Add(wait.Seconds())
}

// RepositoryFailed implements ports.ReconcileObserver.
func (o *Observer) RepositoryFailed(uri string) {
	o.repoFailures.WithLabelValues(uri).Inc()
}

// FeaturesMissing implements ports.ReconcileObserver.
func (o *Observer) FeaturesMissing(count int) {
	o.missing.Add(float64(count))
}

// PassFinished implements ports.ReconcileObserver. Snapshot gauges only
// move when a pass converges; other outcomes keep the previous snapshot.
func (o *Observer) PassFinished(run *entities.ReconcileRun) {
	o.passes.WithLabelValues(string(run.State)).Inc()
	o.passDuration.Observe(run.Duration().Seconds())
	if !run.State.IsSuccess() {
		return
	}
	o.repositories.Set(float64(run.Repositories))
	o.features.Set(float64(run.Features))
	o.lastConverged.Set(float64(run.FinishedAt.Unix()))
}
