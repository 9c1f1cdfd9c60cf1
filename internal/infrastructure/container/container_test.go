package container

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/featurefleet/internal/application/dto"
	"github.com/reglet-dev/featurefleet/internal/application/services"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
	"github.com/reglet-dev/featurefleet/internal/infrastructure/config"
)

const descriptor = `name: acme
features:
  - name: web
    version: "1.0"
    dependencies: [http]
  - name: http
    version: "2.1"
`

func writeNode(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	descPath := filepath.Join(root, "acme.yaml")
	require.NoError(t, os.WriteFile(descPath, []byte(descriptor), 0o600))

	profile := filepath.Join(root, "1.0", "profiles", "default.profile")
	require.NoError(t, os.MkdirAll(profile, 0o750))
	agent := "repository.acme = " + descPath + "\nfeature.web = web\n"
	require.NoError(t, os.WriteFile(filepath.Join(profile, "io.fabric8.agent.properties"), []byte(agent), 0o600))
	return root
}

func TestNew_WiresReconciliation(t *testing.T) {
	c, err := New(Options{Config: config.RuntimeConfig{ProfilesRoot: writeNode(t)}})
	require.NoError(t, err)

	run, err := c.Reconciler().Run(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, values.StateConverged, run.State)

	var keys []string
	for _, f := range c.FeaturesService().ListInstalledFeatures() {
		keys = append(keys, f.Key().String())
	}
	assert.Equal(t, []string{"web/1.0", "http/2.1"}, keys)

	recent, err := c.Reconciler().History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, run.ID.String(), recent[0].ID)
}

func TestContainer_HTTPHandler(t *testing.T) {
	c, err := New(Options{Config: config.RuntimeConfig{ProfilesRoot: writeNode(t)}})
	require.NoError(t, err)
	run, err := c.Reconciler().Run(context.Background(), "manual")
	require.NoError(t, err)

	srv := httptest.NewServer(c.HTTPHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "featurefleet_reconcile_passes_total")

	resp, err = http.Get(srv.URL + "/runs/" + run.ID.String())
	require.NoError(t, err)
	var summary dto.RunSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()
	assert.Equal(t, "manual", summary.Reason)
	assert.Equal(t, string(values.StateConverged), summary.State)
}

func TestNew_ProfileService(t *testing.T) {
	c, err := New(Options{Config: config.RuntimeConfig{ProfilesRoot: writeNode(t)}})
	require.NoError(t, err)

	profiles, err := c.ProfileService().List(context.Background(), dto.ListProfilesRequest{Version: "1.0"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "default", profiles[0].ID)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorContains(t, err, config.KeyProfilesRoot)

	_, err = New(Options{Config: config.RuntimeConfig{ProfilesRoot: t.TempDir(), CoordinationURL: "ftp://coord"}})
	assert.Error(t, err)
}

func TestContainer_CoordinationStore(t *testing.T) {
	standalone, err := New(Options{Config: config.RuntimeConfig{ProfilesRoot: t.TempDir()}})
	require.NoError(t, err)
	_, err = standalone.CoordinationStore()
	assert.ErrorIs(t, err, ErrNoCoordinationStore)

	coordinated, err := New(Options{Config: config.RuntimeConfig{
		ProfilesRoot:    t.TempDir(),
		CoordinationURL: "http://127.0.0.1:8500",
	}})
	require.NoError(t, err)
	store, err := coordinated.CoordinationStore()
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestContainer_ProfileWatcher_TriggersWorker(t *testing.T) {
	root := t.TempDir()
	c, err := New(Options{Config: config.RuntimeConfig{
		ProfilesRoot:  root,
		WatchDebounce: 20 * time.Millisecond,
	}})
	require.NoError(t, err)

	w, err := c.ProfileWatcher()
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, "1.0", "profiles"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	go func() { _ = c.Worker().Run(ctx) }()
	<-w.Ready()

	require.NoError(t, os.Mkdir(filepath.Join(root, "1.0", "profiles", "default.profile"), 0o750))

	require.Eventually(t, func() bool {
		runs, _ := c.Reconciler().History(context.Background(), 0)
		for _, run := range runs {
			if run.Reason == services.ReasonProfileChange {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
