package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/supervisor"
)

type fakeLauncher struct {
	mu         sync.Mutex
	running    bool
	pid        int
	nextPID    int
	startErr   error
	stopErr    error
	starts     int
	stops      int
	overlapped bool
	events     chan supervisor.ExitEvent
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{nextPID: 4000, events: make(chan supervisor.ExitEvent, 8)}
}

func (f *fakeLauncher) Start(_ context.Context, spec supervisor.Spec) (supervisor.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return supervisor.Handle{}, f.startErr
	}
	if f.running {
		f.overlapped = true
		return supervisor.Handle{}, contracts.ConcurrencyError("fake launcher already owns a process")
	}
	f.nextPID++
	f.pid = f.nextPID
	f.running = true
	return supervisor.Handle{URL: spec.URL, PID: f.pid}, nil
}

func (f *fakeLauncher) Stop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
	f.pid = 0
	return f.stopErr
}

func (f *fakeLauncher) Shutdown(_ context.Context) {}

func (f *fakeLauncher) PID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pid
}

func (f *fakeLauncher) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeLauncher) Logs(_ int) []string {
	return []string{"INFO: Started server process"}
}

func (f *fakeLauncher) Events() <-chan supervisor.ExitEvent {
	return f.events
}

func (f *fakeLauncher) setStartErr(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *fakeLauncher) setStopErr(err error) {
	f.mu.Lock()
	f.stopErr = err
	f.mu.Unlock()
}

func (f *fakeLauncher) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type fakeProber struct {
	mu       sync.Mutex
	outcomes []error
	block    bool
	probes   int
}

func (f *fakeProber) Probe(ctx context.Context, _ string) error {
	f.mu.Lock()
	f.probes++
	block := f.block
	var out error
	if len(f.outcomes) > 0 {
		out = f.outcomes[0]
		f.outcomes = f.outcomes[1:]
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return out
}

func (f *fakeProber) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

type fakePlanner struct {
	mu  sync.Mutex
	err error
}

func (f *fakePlanner) Plan(_ context.Context, _ *config.Config, port int) (supervisor.Spec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return supervisor.Spec{}, f.err
	}
	return supervisor.Spec{
		Binary: "open-webui",
		Args:   []string{"serve", "--port", strconv.Itoa(port)},
		Port:   port,
		URL:    fmt.Sprintf("http://127.0.0.1:%d", port),
	}, nil
}

type runEnd struct {
	outcome  string
	exitCode *int
	message  string
}

type fakeRecorder struct {
	mu     sync.Mutex
	begins int
	ends   []runEnd
}

func (f *fakeRecorder) BeginRun(_ string, _ int, _ time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begins++
	return fmt.Sprintf("run-%d", f.begins), nil
}

func (f *fakeRecorder) EndRun(_, outcome string, exitCode *int, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends = append(f.ends, runEnd{outcome: outcome, exitCode: exitCode, message: message})
	return nil
}

func (f *fakeRecorder) lastEnd() (runEnd, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ends) == 0 {
		return runEnd{}, false
	}
	return f.ends[len(f.ends)-1], true
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) Notify(title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, title+": "+body)
	return nil
}

func (f *fakeNotifier) contains(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type fakeResetter struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeResetter) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fixture struct {
	orch     *Orchestrator
	launcher *fakeLauncher
	prober   *fakeProber
	planner  *fakePlanner
	recorder *fakeRecorder
	notifier *fakeNotifier
	resetter *fakeResetter
}

func newFixture(t *testing.T, mutate func(*fixture, *config.Config)) *fixture {
	t.Helper()

	f := &fixture{
		launcher: newFakeLauncher(),
		prober:   &fakeProber{},
		planner:  &fakePlanner{},
		recorder: &fakeRecorder{},
		notifier: &fakeNotifier{},
		resetter: &fakeResetter{},
	}
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(f, cfg)
	}

	f.orch = New(Options{
		Config:   cfg,
		Launcher: f.launcher,
		Prober:   f.prober,
		Planner:  f.planner,
		Recorder: f.recorder,
		Notifier: f.notifier,
		Resetter: f.resetter,
		Logger:   zap.NewNop(),
	})
	f.orch.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		f.orch.Shutdown(ctx)
	})
	return f
}

func waitStatus(t *testing.T, o *Orchestrator, want Status) Session {
	t.Helper()
	var sess Session
	require.Eventually(t, func() bool {
		sess = o.Session()
		return sess.Status == want
	}, 5*time.Second, 10*time.Millisecond, "waiting for status %s, last seen %s", want, sess.Status)
	return sess
}

func TestStartBecomesStartedWhenProbeSucceeds(t *testing.T) {
	f := newFixture(t, nil)

	sess, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusStarting, sess.Status)
	assert.NotZero(t, sess.PID)
	assert.Contains(t, sess.URL, "http://127.0.0.1:")
	assert.False(t, sess.Reachable)

	final := waitStatus(t, f.orch, StatusStarted)
	assert.True(t, final.Reachable)
	assert.Equal(t, sess.PID, final.PID)
	assert.Equal(t, sess.URL, final.URL)
	assert.Equal(t, 1, f.recorder.begins)
}

func TestStartLaunchFailureMarksFailed(t *testing.T) {
	f := newFixture(t, func(f *fixture, _ *config.Config) {
		f.launcher.startErr = contracts.LaunchError("open-webui package is not installed", nil)
	})

	_, err := f.orch.StartServer(context.Background())
	require.Error(t, err)
	assert.Equal(t, contracts.KindLaunch, contracts.KindOf(err))

	sess := f.orch.Session()
	assert.Equal(t, StatusFailed, sess.Status)
	assert.Zero(t, sess.PID)
	assert.Empty(t, sess.URL)
	assert.False(t, sess.Reachable)
	assert.True(t, f.notifier.contains("failed to start"))
}

func TestPlannerFailureIsLaunchError(t *testing.T) {
	f := newFixture(t, func(f *fixture, _ *config.Config) {
		f.planner.err = errors.New("uv executable not found")
	})

	_, err := f.orch.StartServer(context.Background())
	require.Error(t, err)
	assert.Equal(t, contracts.KindLaunch, contracts.KindOf(err))
	assert.Equal(t, StatusFailed, f.orch.Status())
}

func TestStopWithNothingRunningSucceeds(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.orch.StopServer(context.Background()))
	assert.Equal(t, StatusStopped, f.orch.Status())
	assert.Zero(t, f.launcher.stopCount())
}

func TestStopForcesLocalStoppedOnError(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	waitStatus(t, f.orch, StatusStarted)

	f.launcher.setStopErr(contracts.ShutdownTimeoutError("server did not exit within grace period", nil))

	err = f.orch.StopServer(context.Background())
	require.Error(t, err)
	assert.Equal(t, contracts.KindShutdownTimeout, contracts.KindOf(err))

	sess := f.orch.Session()
	assert.Equal(t, StatusStopped, sess.Status)
	assert.Zero(t, sess.PID)
	assert.Empty(t, sess.URL)
	assert.False(t, sess.Reachable)
	assert.Contains(t, sess.LastError, "grace period")
}

func TestStopCancelsInFlightProbe(t *testing.T) {
	f := newFixture(t, func(f *fixture, _ *config.Config) {
		f.prober.block = true
	})

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusStarting, f.orch.Status())

	require.NoError(t, f.orch.StopServer(context.Background()))
	assert.Equal(t, StatusStopped, f.orch.Status())

	// The canceled probe must never flip the session to started afterwards.
	time.Sleep(100 * time.Millisecond)
	sess := f.orch.Session()
	assert.Equal(t, StatusStopped, sess.Status)
	assert.False(t, sess.Reachable)
	assert.Equal(t, 1, f.prober.probeCount())
}

func TestRestartYieldsFreshPID(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	first := waitStatus(t, f.orch, StatusStarted)

	sess, err := f.orch.RestartServer(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.PID, sess.PID)

	second := waitStatus(t, f.orch, StatusStarted)
	assert.NotEqual(t, first.PID, second.PID)
	assert.Greater(t, second.Generation, first.Generation)

	end, ok := f.recorder.lastEnd()
	require.True(t, ok)
	assert.Equal(t, RunOutcomeStopped, end.outcome)
	assert.Equal(t, 2, f.recorder.begins)
}

func TestRestartStartFailureEndsFailed(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	waitStatus(t, f.orch, StatusStarted)

	f.launcher.setStartErr(contracts.LaunchError("spawn failed", nil))

	_, err = f.orch.RestartServer(context.Background())
	require.Error(t, err)

	sess := f.orch.Session()
	assert.Equal(t, StatusFailed, sess.Status)
	assert.Zero(t, sess.PID)
	assert.Empty(t, sess.URL)
}

func TestUnexpectedExitMarksFailed(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	started := waitStatus(t, f.orch, StatusStarted)

	f.launcher.events <- supervisor.ExitEvent{PID: started.PID, Code: 1, Timestamp: time.Now()}

	sess := waitStatus(t, f.orch, StatusFailed)
	assert.Zero(t, sess.PID)
	assert.False(t, sess.Reachable)
	assert.Contains(t, sess.LastError, "exited unexpectedly")

	end, ok := f.recorder.lastEnd()
	require.True(t, ok)
	assert.Equal(t, RunOutcomeFailed, end.outcome)
	require.NotNil(t, end.exitCode)
	assert.Equal(t, 1, *end.exitCode)
	assert.True(t, f.notifier.contains("stopped unexpectedly"))
}

func TestStaleExitEventIgnored(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	started := waitStatus(t, f.orch, StatusStarted)

	f.launcher.events <- supervisor.ExitEvent{PID: started.PID + 1000, Code: 137, Timestamp: time.Now()}

	time.Sleep(100 * time.Millisecond)
	sess := f.orch.Session()
	assert.Equal(t, StatusStarted, sess.Status)
	assert.Equal(t, started.PID, sess.PID)
}

func TestProbeTimeoutMarksFailedAndStopsServer(t *testing.T) {
	f := newFixture(t, func(f *fixture, _ *config.Config) {
		f.prober.outcomes = []error{contracts.ReachabilityTimeoutError("no response from http://127.0.0.1:8080 within 2m0s")}
	})

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)

	sess := waitStatus(t, f.orch, StatusFailed)
	assert.Zero(t, sess.PID)
	assert.Empty(t, sess.URL)
	assert.Contains(t, sess.LastError, "no response")
	assert.GreaterOrEqual(t, f.launcher.stopCount(), 1)

	end, ok := f.recorder.lastEnd()
	require.True(t, ok)
	assert.Equal(t, RunOutcomeFailed, end.outcome)
}

func TestApplyConfigRejectsInvalid(t *testing.T) {
	f := newFixture(t, nil)

	bad := config.DefaultConfig()
	bad.Listen = "not-a-listen-address"

	err := f.orch.ApplyConfig(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, contracts.KindConfig, contracts.KindOf(err))
	assert.False(t, f.orch.Config().ServeOnLocalNetwork)
}

func TestApplyConfigSwapsActiveConfig(t *testing.T) {
	f := newFixture(t, nil)

	events := f.orch.SubscribeEvents()
	defer f.orch.UnsubscribeEvents(events)

	updated := config.DefaultConfig()
	updated.ServeOnLocalNetwork = true
	require.NoError(t, f.orch.ApplyConfig(context.Background(), updated))

	assert.True(t, f.orch.Config().ServeOnLocalNetwork)

	select {
	case evt := <-events:
		assert.Equal(t, EventTypeConfigChanged, evt.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("expected config.changed event")
	}
}

func TestResetStopsAndClearsEvenWhenResetterFails(t *testing.T) {
	f := newFixture(t, func(f *fixture, _ *config.Config) {
		f.resetter.err = errors.New("data directory is locked")
	})

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	waitStatus(t, f.orch, StatusStarted)

	err = f.orch.Reset(context.Background())
	require.Error(t, err)
	assert.Equal(t, contracts.KindReset, contracts.KindOf(err))

	sess := f.orch.Session()
	assert.Equal(t, StatusStopped, sess.Status)
	assert.Zero(t, sess.PID)
	assert.Equal(t, 1, f.resetter.calls)
	assert.True(t, f.notifier.contains("Reset failed"))
}

func TestResetFromStoppedSucceeds(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.orch.Reset(context.Background()))
	assert.Equal(t, StatusStopped, f.orch.Status())
	assert.Equal(t, 1, f.resetter.calls)
	assert.True(t, f.notifier.contains("Reset complete"))
}

func TestTransitionEventsPublished(t *testing.T) {
	f := newFixture(t, nil)

	events := f.orch.SubscribeEvents()
	defer f.orch.UnsubscribeEvents(events)

	_, err := f.orch.StartServer(context.Background())
	require.NoError(t, err)
	waitStatus(t, f.orch, StatusStarted)

	var statuses []string
	deadline := time.After(2 * time.Second)
	for len(statuses) < 3 {
		select {
		case evt := <-events:
			if evt.Type != EventTypeServerState {
				continue
			}
			status, _ := evt.Payload["status"].(string)
			statuses = append(statuses, status)
		case <-deadline:
			t.Fatalf("timed out collecting state events, got %v", statuses)
		}
	}

	assert.Equal(t, "starting", statuses[0])
	assert.Equal(t, "starting", statuses[1])
	assert.Equal(t, "started", statuses[2])
}

func TestConcurrentStartsNeverTrackTwoPIDs(t *testing.T) {
	f := newFixture(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.StartServer(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	waitStatus(t, f.orch, StatusStarted)
	assert.False(t, f.launcher.overlapped, "launcher observed two live processes")
	assert.Equal(t, f.launcher.PID(), f.orch.Session().PID)
}
