package lifecycle

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/supervisor"
)

// kill simulates the child process dying out from under the orchestrator.
func (f *fakeLauncher) kill() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return 0, false
	}
	pid := f.pid
	f.running = false
	f.pid = 0
	f.events <- supervisor.ExitEvent{PID: pid, Code: 9, Signal: "killed", Timestamp: time.Now()}
	return pid, true
}

func checkSessionInvariants(rt *rapid.T, sess Session) {
	if sess.Reachable && sess.Status != StatusStarted {
		rt.Fatalf("reachable while %s: %+v", sess.Status, sess)
	}
	if sess.PID != 0 && !sess.Status.IsLive() {
		rt.Fatalf("pid %d tracked while %s: %+v", sess.PID, sess.Status, sess)
	}
	if sess.URL != "" && !sess.Status.IsLive() {
		rt.Fatalf("url %q tracked while %s: %+v", sess.URL, sess.Status, sess)
	}
	if sess.Status == StatusStarted && (sess.PID == 0 || !sess.Reachable) {
		rt.Fatalf("started session missing pid or reachability: %+v", sess)
	}
}

func waitSettled(rt *rapid.T, o *Orchestrator) Session {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess := o.Session()
		checkSessionInvariants(rt, sess)
		if sess.Status != StatusStarting {
			return sess
		}
		time.Sleep(5 * time.Millisecond)
	}
	rt.Fatalf("session never settled, last %+v", o.Session())
	return Session{}
}

// Random sequences of lifecycle operations must never produce a session that
// violates the pid/url/reachable consistency rules, and a restart must never
// carry a prior pid into a new run.
func TestSessionInvariantsUnderRandomOps(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		launcher := newFakeLauncher()
		orch := New(Options{
			Config:   config.DefaultConfig(),
			Launcher: launcher,
			Prober:   &fakeProber{},
			Planner:  &fakePlanner{},
			Logger:   zap.NewNop(),
		})
		orch.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			orch.Shutdown(ctx)
		}()

		nOps := rapid.IntRange(1, 8).Draw(rt, "n_ops")
		for i := 0; i < nOps; i++ {
			op := rapid.SampledFrom([]string{"start", "stop", "restart", "kill"}).Draw(rt, "op")
			switch op {
			case "start":
				if _, err := orch.StartServer(context.Background()); err == nil {
					waitSettled(rt, orch)
				}

			case "stop":
				if err := orch.StopServer(context.Background()); err != nil {
					rt.Fatalf("stop failed: %v", err)
				}
				if s := orch.Session().Status; s != StatusStopped {
					rt.Fatalf("status %s after stop", s)
				}

			case "restart":
				prevPID := orch.Session().PID
				if _, err := orch.RestartServer(context.Background()); err == nil {
					sess := waitSettled(rt, orch)
					if sess.Status == StatusStarted && prevPID != 0 && sess.PID == prevPID {
						rt.Fatalf("restart kept prior pid %d", prevPID)
					}
				} else if s := orch.Session().Status; s == StatusStarted {
					rt.Fatalf("failed restart left session started")
				}

			case "kill":
				if pid, ok := launcher.kill(); ok {
					deadline := time.Now().Add(5 * time.Second)
					for time.Now().Before(deadline) {
						sess := orch.Session()
						checkSessionInvariants(rt, sess)
						if sess.PID != pid {
							break
						}
						time.Sleep(5 * time.Millisecond)
					}
				}
			}

			checkSessionInvariants(rt, orch.Session())
		}
	})
}
