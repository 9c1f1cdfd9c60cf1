package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/domain/entities"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

// fakeLoader serves repositories from a map and counts loads per URI.
type fakeLoader struct {
	mu    sync.Mutex
	repos map[string]*entities.Repository
	errs  map[string]error
	loads map[string]int

	// gate, when set, blocks every load until closed.
	gate    chan struct{}
	started chan string
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		repos: make(map[string]*entities.Repository),
		errs:  make(map[string]error),
		loads: make(map[string]int),
	}
}

func (l *fakeLoader) add(uri string, nested []string, features ...entities.Feature) *entities.Repository {
	repo := &entities.Repository{URI: uri, Name: uri, Features: features, Repositories: nested}
	l.mu.Lock()
	l.repos[uri] = repo
	l.mu.Unlock()
	return repo
}

func (l *fakeLoader) fail(uri string, err error) {
	l.mu.Lock()
	l.errs[uri] = err
	l.mu.Unlock()
}

func (l *fakeLoader) count(uri string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[uri]
}

func (l *fakeLoader) Load(ctx context.Context, uri string) (*entities.Repository, error) {
	l.mu.Lock()
	l.loads[uri]++
	gate, started := l.gate, l.started
	l.mu.Unlock()

	if started != nil {
		started <- uri
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.errs[uri]; ok {
		return nil, err
	}
	repo, ok := l.repos[uri]
	if !ok {
		return nil, fmt.Errorf("no repository at %s", uri)
	}
	return repo, nil
}

// fakeProfiles returns a fixed effective profile built from agent lines.
type fakeProfiles struct {
	mu      sync.Mutex
	profile *entities.Profile
	err     error
	calls   int
	onCall  func(n int)
}

func newAgentProfile(lines ...string) *entities.Profile {
	files := map[string][]byte{
		entities.AgentPID + entities.PropertiesSuffix: []byte(strings.Join(lines, "\n")),
	}
	p, err := entities.NewProfile("1.0", "default", nil, files, "0", true)
	if err != nil {
		panic(err)
	}
	return p
}

func (f *fakeProfiles) set(p *entities.Profile) {
	f.mu.Lock()
	f.profile = p
	f.mu.Unlock()
}

func (f *fakeProfiles) EffectiveProfile(ctx context.Context) (*entities.Profile, error) {
	f.mu.Lock()
	f.calls++
	n, hook := f.calls, f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, f.err
}

// flakyPinger reports the store unavailable for the first failures calls.
type flakyPinger struct {
	failures int32
	calls    atomic.Int32
}

func (p *flakyPinger) Ping(context.Context) error {
	n := p.calls.Add(1)
	if p.failures < 0 || n <= p.failures {
		return apperrors.NewCoordinationUnavailableError("ping", errors.New("connection refused"))
	}
	return nil
}

// instantTimer fires immediately and records the requested waits.
type instantTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.c <- time.Time{}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func (t *instantTimer) starts() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.waits...)
}

// recordingObserver counts reconciliation events.
type recordingObserver struct {
	mu       sync.Mutex
	attempts int
	backoffs int
	failed   []string
	missing  int
	passes   []values.ReconcileState
}

func (o *recordingObserver) AttemptStarted() {
	o.mu.Lock()
	o.attempts++
	o.mu.Unlock()
}

func (o *recordingObserver) BackoffScheduled(time.Duration) {
	o.mu.Lock()
	o.backoffs++
	o.mu.Unlock()
}

func (o *recordingObserver) RepositoryFailed(uri string) {
	o.mu.Lock()
	o.failed = append(o.failed, uri)
	o.mu.Unlock()
}

func (o *recordingObserver) FeaturesMissing(count int) {
	o.mu.Lock()
	o.missing += count
	o.mu.Unlock()
}

func (o *recordingObserver) PassFinished(run *entities.ReconcileRun) {
	o.mu.Lock()
	o.passes = append(o.passes, run.State)
	o.mu.Unlock()
}

// memoryRuns is a minimal run repository for service tests.
type memoryRuns struct {
	mu   sync.Mutex
	runs []*entities.ReconcileRun
}

func (m *memoryRuns) Save(_ context.Context, run *entities.ReconcileRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *memoryRuns) FindByID(_ context.Context, id values.RunID) (*entities.ReconcileRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID.Equals(id) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperrors.ErrRunNotFound
}

func (m *memoryRuns) Recent(_ context.Context, limit int) ([]*entities.ReconcileRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entities.ReconcileRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		out = append(out, m.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func feature(name, version string, deps ...string) entities.Feature {
	f := entities.Feature{Name: name, Version: version}
	for _, d := range deps {
		f.Dependencies = append(f.Dependencies, values.MustParseFeatureReference(d))
	}
	return f
}

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
