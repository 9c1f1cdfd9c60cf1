package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

func TestObserver_RecordsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewObserver(reg)
	require.NoError(t, err)

	o.AttemptStarted()
	o.AttemptStarted()
	o.BackoffScheduled(5 * time.Second)
	o.RepositoryFailed("mvn:org/broken/1.0/xml/features")
	o.FeaturesMissing(3)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := entities.NewReconcileRun("activate", start)
	run.Repositories = 2
	run.Features = 7
	run.Finish(values.StateConverged, start.Add(2*time.Second), nil)
	o.PassFinished(run)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.attempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.backoffs))
	assert.Equal(t, 5.0, testutil.ToFloat64(o.backoffSeconds))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.repoFailures.WithLabelValues("mvn:org/broken/1.0/xml/features")))
	assert.Equal(t, 3.0, testutil.ToFloat64(o.missing))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.passes.WithLabelValues("converged")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.repositories))
	assert.Equal(t, 7.0, testutil.ToFloat64(o.features))
	assert.Equal(t, float64(start.Add(2*time.Second).Unix()), testutil.ToFloat64(o.lastConverged))
}

func TestObserver_PassFinished_NotConvergedKeepsGauges(t *testing.T) {
	o, err := NewObserver(prometheus.NewRegistry())
	require.NoError(t, err)

	start := time.Now()
	ok := entities.NewReconcileRun("activate", start)
	ok.Features = 4
	ok.Finish(values.StateConverged, start, nil)
	o.PassFinished(ok)

	exhausted := entities.NewReconcileRun("manual", start)
	exhausted.Finish(values.StateExhausted, start.Add(time.Minute), nil)
	o.PassFinished(exhausted)

	assert.Equal(t, 4.0, testutil.ToFloat64(o.features))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.passes.WithLabelValues("exhausted")))
}

func TestNewObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewObserver(reg)
	require.NoError(t, err)

	_, err = NewObserver(reg)
	assert.Error(t, err)
}
