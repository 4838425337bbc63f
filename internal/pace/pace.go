// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pace spaces out calls to rate-limited services. A Gate is
// acquired before each call; its notion of time comes from a Clock so tests
// can check the requested delays without sleeping.
package pace

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock supplies the current time and blocking waits.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// Sleep waits on a timer.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Gate admits one call at a time.
type Gate interface {
	Wait(ctx context.Context) error
}

// NewGate returns a gate admitting at most one call per interval, with the
// first call admitted immediately. A non-positive interval never waits. A
// nil clock selects RealClock.
func NewGate(interval time.Duration, clock Clock) Gate {
	if interval <= 0 {
		return openGate{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &intervalGate{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		clock:   clock,
	}
}

type openGate struct{}

func (openGate) Wait(ctx context.Context) error { return ctx.Err() }

type intervalGate struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	clock   Clock
}

// Wait reserves the next slot and sleeps until it opens. A cancelled wait
// gives the slot back.
func (g *intervalGate) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	now := g.clock.Now()
	r := g.limiter.ReserveN(now, 1)
	g.mu.Unlock()

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := g.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(g.clock.Now())
		return err
	}
	return nil
}

// ManualClock is a Clock whose time only moves when Sleep or Advance is
// called. Sleep never blocks; it records the requested delay.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewManualClock returns a ManualClock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current virtual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep records d and advances the virtual time by it.
func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// Advance moves the virtual time forward, as if work took d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns the delays requested so far.
func (c *ManualClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}
