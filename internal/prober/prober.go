// Package prober verifies that a launched server actually accepts
// connections. Probing is bounded: it ends on success, cancellation, or the
// policy's max duration, never runs forever.
package prober

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

// RetryPolicy bounds one probing run.
type RetryPolicy struct {
	Interval       time.Duration // delay between attempts
	MaxDuration    time.Duration // total probing bound
	AttemptTimeout time.Duration // per-attempt HTTP timeout
}

// DefaultPolicy returns the standard probing bounds.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		Interval:       1 * time.Second,
		MaxDuration:    2 * time.Minute,
		AttemptTimeout: 2 * time.Second,
	}
}

// PolicyFromConfig builds a policy from configuration, falling back to
// defaults for missing or zero fields.
func PolicyFromConfig(cfg *config.ProbeConfig) RetryPolicy {
	policy := DefaultPolicy()
	if cfg == nil {
		return policy
	}
	if cfg.IntervalSeconds > 0 {
		policy.Interval = time.Duration(cfg.IntervalSeconds) * time.Second
	}
	if cfg.MaxDurationSeconds > 0 {
		policy.MaxDuration = time.Duration(cfg.MaxDurationSeconds) * time.Second
	}
	if cfg.AttemptTimeoutSecs > 0 {
		policy.AttemptTimeout = time.Duration(cfg.AttemptTimeoutSecs) * time.Second
	}
	return policy
}

// Prober polls a server address until it responds.
type Prober struct {
	policy RetryPolicy
	logger *zap.SugaredLogger
	client *http.Client
}

// New creates a prober with the given policy.
func New(logger *zap.SugaredLogger, policy RetryPolicy) *Prober {
	return &Prober{
		policy: policy,
		logger: logger,
		client: &http.Client{Timeout: policy.AttemptTimeout},
	}
}

// Policy returns the prober's bounds.
func (p *Prober) Policy() RetryPolicy {
	return p.policy
}

// Probe polls url until it answers. Any HTTP response counts as reachable:
// the question is whether something accepts connections there, not whether it
// is serving 200s yet. Returns nil on success, ctx.Err() when superseded by
// the caller, or a reachability timeout once MaxDuration elapses.
func (p *Prober) Probe(ctx context.Context, url string) error {
	start := time.Now()
	p.logger.Infow("Probing server", "url", url, "interval", p.policy.Interval, "max_duration", p.policy.MaxDuration)

	deadline := time.NewTimer(p.policy.MaxDuration)
	defer deadline.Stop()
	ticker := time.NewTicker(p.policy.Interval)
	defer ticker.Stop()

	attempts := 0
	for {
		attempts++
		if p.attempt(ctx, url) {
			p.logger.Infow("Server is reachable", "url", url, "attempts", attempts, "elapsed", time.Since(start))
			return nil
		}

		select {
		case <-ctx.Done():
			p.logger.Debugw("Probe superseded", "url", url, "attempts", attempts)
			return ctx.Err()
		case <-deadline.C:
			p.logger.Warnw("Probe gave up", "url", url, "attempts", attempts, "elapsed", time.Since(start))
			return contracts.ReachabilityTimeoutError(
				fmt.Sprintf("no response from %s within %s", url, p.policy.MaxDuration))
		case <-ticker.C:
		}
	}
}

// attempt makes one connection attempt.
func (p *Prober) attempt(ctx context.Context, url string) bool {
	attemptCtx, cancel := context.WithTimeout(ctx, p.policy.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		p.logger.Debugw("Probe request build failed", "url", url, "error", err)
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
