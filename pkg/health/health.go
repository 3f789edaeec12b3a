// Package health probes the liveness of a remote backend from the client side.
//
// Free-tier hosts put idle backends to sleep, so the storefront keeps its
// backend warm with periodic pings while a checkout is in progress, and wakes
// it with a bounded retry loop before calls that must not fail.
//
// Each registered check runs in its own background goroutine at a fixed
// interval. Checks use failure/success thresholds to avoid flapping: a check
// must fail consecutively failureThreshold times before being marked
// unhealthy, and succeed successThreshold times before being marked healthy
// again.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc is a health check function. It should return nil if the checked
// component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// checkConfig holds the configuration and runtime state for a single check.
//
// Concurrency model: run() is called from exactly one goroutine (the ticker).
// The counters (consecutiveFails, consecutiveOK) are only accessed by run(),
// so they need no synchronization. The healthy flag, lastErr and runs are read
// from arbitrary goroutines, so they use atomic operations.
type checkConfig struct {
	name             string
	timeout          time.Duration
	check            CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]
	runs    atomic.Int64

	// counters are only accessed from the single run() goroutine.
	consecutiveFails int
	consecutiveOK    int
}

func (c *checkConfig) isHealthy() bool {
	return c.healthy.Load()
}

func (c *checkConfig) getLastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the check once and updates thresholds accordingly.
// Must be called from a single goroutine.
func (c *checkConfig) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.check(checkCtx)
	c.lastErr.Store(&err)
	c.runs.Add(1)

	if err != nil {
		c.consecutiveOK = 0
		c.consecutiveFails++
		if c.consecutiveFails >= c.failureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.consecutiveFails = 0
		c.consecutiveOK++
		if c.consecutiveOK >= c.successThreshold {
			c.healthy.Store(true)
		}
	}
}

// Prober runs a set of checks against remote dependencies.
type Prober struct {
	// mu protects checks and cancel. Only held during registration and in
	// Start/Stop; readers snapshot the slice and release immediately.
	mu     sync.RWMutex
	checks []*checkConfig
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// New creates an empty Prober.
func New() *Prober {
	return &Prober{}
}

// Add registers a check. Checks start healthy until proven otherwise.
func (p *Prober) Add(name string, timeout time.Duration, check CheckFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := &checkConfig{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: 3,
		successThreshold: 1,
	}
	c.healthy.Store(true)
	p.checks = append(p.checks, c)
}

// DefaultInterval is used by Start when the given interval is not positive.
const DefaultInterval = 30 * time.Second

// Start begins running all registered checks in background goroutines at the
// given interval. Each check runs once immediately.
func (p *Prober) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancel = cancel
	checks := make([]*checkConfig, len(p.checks))
	copy(checks, p.checks)
	p.mu.Unlock()

	for _, c := range checks {
		p.done.Add(1)
		go func() {
			defer p.done.Done()
			runCheck(ctx, c, interval)
		}()
	}
}

// runCheck periodically executes a single check until the context is cancelled.
func runCheck(ctx context.Context, c *checkConfig, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// Stop cancels all background checks and waits for them to exit. It is safe
// to call Stop multiple times, and before Start.
func (p *Prober) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
	p.done.Wait()
}

// Healthy reports whether every registered check is currently passing.
func (p *Prober) Healthy() bool {
	for _, c := range p.snapshot() {
		if !c.isHealthy() {
			return false
		}
	}
	return true
}

// Runs returns the total number of check executions so far.
func (p *Prober) Runs() int64 {
	var n int64
	for _, c := range p.snapshot() {
		n += c.runs.Load()
	}
	return n
}

// Status summarizes the prober state.
type Status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Status returns "ok" when all checks pass, or "unhealthy" with the last
// error of every failing check. It never re-executes a check.
func (p *Prober) Status() Status {
	failures := collectFailures(p.snapshot())
	if len(failures) == 0 {
		return Status{Status: "ok"}
	}
	return Status{Status: "unhealthy", Checks: failures}
}

// CheckNow runs every check once, concurrently, and reports the outcome
// directly. Thresholds and the state seen by Status are left untouched, so it
// is safe to call on a started Prober.
func (p *Prober) CheckNow(ctx context.Context) Status {
	var (
		mu       sync.Mutex
		failures = make(map[string]string)
		g        errgroup.Group
	)
	for _, c := range p.snapshot() {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			if err := c.check(checkCtx); err != nil {
				mu.Lock()
				failures[c.name] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		return Status{Status: "ok"}
	}
	return Status{Status: "unhealthy", Checks: failures}
}

func (p *Prober) snapshot() []*checkConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	checks := make([]*checkConfig, len(p.checks))
	copy(checks, p.checks)
	return checks
}

// collectFailures returns a map of check name to error message for any check
// that is currently unhealthy.
func collectFailures(checks []*checkConfig) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		if !c.isHealthy() {
			if err := c.getLastError(); err != nil {
				failures[c.name] = err.Error()
			} else {
				failures[c.name] = "check is unhealthy"
			}
		}
	}
	return failures
}
