// Package monitor tracks whether the store is reachable. The result is
// refreshed on a cron schedule and reported by /health.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "roomcal/internal/log"
)

// Pinger is satisfied by store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the outcome of the most recent check.
type Status struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
}

// StoreCheck pings a store and remembers the result.
type StoreCheck struct {
	pinger  Pinger
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	status Status
}

// NewStoreCheck returns a check that reports unhealthy until it first
// runs.
func NewStoreCheck(p Pinger, timeout time.Duration) *StoreCheck {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StoreCheck{pinger: p, timeout: timeout, now: time.Now}
}

// Run pings the store once and records the outcome. Transitions are
// logged.
func (c *StoreCheck) Run(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.pinger.Ping(ctx)
	st := Status{Healthy: err == nil, CheckedAt: c.now()}
	if err != nil {
		st.Error = err.Error()
	}

	c.mu.Lock()
	prev := c.status
	c.status = st
	c.mu.Unlock()

	switch {
	case err != nil && (prev.Healthy || prev.CheckedAt.IsZero()):
		appLog.Error("store unreachable", err)
	case err == nil && !prev.Healthy:
		appLog.Info("store reachable")
	default:
		appLog.Debug("store check", "healthy", st.Healthy)
	}
	return st
}

func (c *StoreCheck) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *StoreCheck) Healthy() bool {
	return c.Status().Healthy
}

// Schedule runs check on spec (standard cron syntax or descriptors such
// as "@every 1m") until ctx is cancelled. The returned cron is already
// started.
func Schedule(ctx context.Context, spec string, check *StoreCheck) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { check.Run(ctx) }); err != nil {
		return nil, fmt.Errorf("store check schedule %q: %w", spec, err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
