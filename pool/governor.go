// Package pool implements PoolGovernor, the admission-control unit that
// mode strategies use to bound concurrent access to a shared resource
// (a connection slot, a writer lock) with writer-priority fairness.
package pool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shiftdb/core"
)

// Governor is PoolGovernor: a slot semaphore guarded by an optional
// turnstile that gives a writer exclusive priority over later readers.
type Governor struct {
	maxPermits     int64
	acquireTimeout time.Duration

	slots      *semaphore.Weighted
	turnstile  *semaphore.Weighted
	ownsTurn   bool
	holdTurn   bool // true for a writer governor: hold the turnstile for the permit's duration

	hash string

	inUse         atomic.Int64
	totalAcquired atomic.Int64
	totalTimeouts atomic.Int64

	mu         sync.Mutex
	drainCond  *sync.Cond
}

// Option configures a Governor at construction.
type Option func(*Governor)

// WithSharedSlots wires an externally owned slot semaphore instead of
// allocating a private one.
func WithSharedSlots(slots *semaphore.Weighted) Option {
	return func(g *Governor) { g.slots = slots }
}

// WithTurnstile wires an externally owned turnstile semaphore; hold
// controls whether a successful acquire keeps the turnstile for the
// permit's lifetime (writer semantics) or releases it immediately after
// touching it (reader semantics).
func WithTurnstile(turnstile *semaphore.Weighted, hold bool) Option {
	return func(g *Governor) {
		g.turnstile = turnstile
		g.holdTurn = hold
	}
}

// NewGovernor constructs a Governor. maxPermits must be >= 1.
func NewGovernor(maxPermits int64, acquireTimeout time.Duration, opts ...Option) (*Governor, error) {
	if maxPermits < 1 {
		return nil, core.NewInvalidArgumentError("maxPermits", "must be >= 1")
	}
	g := &Governor{
		maxPermits:     maxPermits,
		acquireTimeout: acquireTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.slots == nil {
		g.slots = semaphore.NewWeighted(maxPermits)
	}
	if g.turnstile != nil {
		// ownsTurn stays false: an explicitly supplied turnstile is
		// assumed to be shared and is never disposed by this governor.
	} else if g.holdTurn {
		g.turnstile = semaphore.NewWeighted(1)
		g.ownsTurn = true
	}
	g.mu = sync.Mutex{}
	g.drainCond = sync.NewCond(&g.mu)
	sum := sha256.Sum256([]byte(fmt.Sprintf("pool:%p:%d", g, maxPermits)))
	g.hash = hex.EncodeToString(sum[:8])
	return g, nil
}

// Hash is the pool's opaque identity, surfaced on a PoolSaturatedError.
func (g *Governor) Hash() string { return g.hash }

// InUse returns the current number of outstanding permits.
func (g *Governor) InUse() int64 { return g.inUse.Load() }

// TotalAcquired returns the lifetime count of successful acquires.
func (g *Governor) TotalAcquired() int64 { return g.totalAcquired.Load() }

// TotalTimeouts returns the lifetime count of acquire timeouts.
// try_acquire failures never increment this counter.
func (g *Governor) TotalTimeouts() int64 { return g.totalTimeouts.Load() }

// Permit is a released-once admission ticket.
type Permit struct {
	g        *Governor
	released atomic.Bool
}

// Acquire blocks up to the governor's configured timeout for a slot,
// honoring writer/reader turnstile fairness.
func (g *Governor) Acquire(ctx context.Context) (*Permit, error) {
	deadline := ctx
	var cancel context.CancelFunc
	if g.acquireTimeout > 0 {
		deadline, cancel = context.WithTimeout(ctx, g.acquireTimeout)
		defer cancel()
	}

	if g.turnstile != nil {
		if err := g.turnstile.Acquire(deadline, 1); err != nil {
			g.totalTimeouts.Add(1)
			return nil, core.NewPoolSaturatedError(g.hash, g.acquireTimeout.String())
		}
		if !g.holdTurn {
			g.turnstile.Release(1)
		}
	}

	if err := g.slots.Acquire(deadline, 1); err != nil {
		if g.turnstile != nil && g.holdTurn {
			g.turnstile.Release(1)
		}
		g.totalTimeouts.Add(1)
		return nil, core.NewPoolSaturatedError(g.hash, g.acquireTimeout.String())
	}

	g.inUse.Add(1)
	g.totalAcquired.Add(1)
	return &Permit{g: g}, nil
}

// TryAcquire is the non-blocking variant; it never increments the
// timeout counter on failure.
func (g *Governor) TryAcquire() (*Permit, bool) {
	if g.turnstile != nil {
		if !g.turnstile.TryAcquire(1) {
			return nil, false
		}
		if !g.holdTurn {
			g.turnstile.Release(1)
		}
	}
	if !g.slots.TryAcquire(1) {
		if g.turnstile != nil && g.holdTurn {
			g.turnstile.Release(1)
		}
		return nil, false
	}
	g.inUse.Add(1)
	g.totalAcquired.Add(1)
	return &Permit{g: g}, true
}

// Release returns p's slot (and, for a writer governor, the turnstile)
// to the pool. Release is idempotent: a double-release does not
// over-release the underlying semaphores.
func (p *Permit) Release() {
	if p == nil || !p.released.CompareAndSwap(false, true) {
		return
	}
	g := p.g
	g.slots.Release(1)
	if g.turnstile != nil && g.holdTurn {
		g.turnstile.Release(1)
	}
	g.mu.Lock()
	g.inUse.Add(-1)
	g.drainCond.Broadcast()
	g.mu.Unlock()
}

// WaitForDrain blocks until InUse reaches zero, re-checking under the
// same lock that guards the release-side decrement so a concurrent
// Acquire that re-raises InUse immediately after a release cannot
// spuriously wake a drain waiter (the condition variable is only
// signalled while holding the lock that also guards the zero-check).
func (g *Governor) WaitForDrain(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		g.mu.Lock()
		for g.inUse.Load() != 0 {
			g.drainCond.Wait()
		}
		g.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The background waiter goroutine is intentionally leaked until
		// the next release broadcasts it past its Wait; it then observes
		// inUse==0 (or loops again) and exits on its own.
		return ctx.Err()
	}
}

// Dispose has no effect: a semaphore.Weighted holds nothing that needs
// releasing, so neither an owned nor a borrowed turnstile is changed.
func (g *Governor) Dispose() {
	_ = g.ownsTurn
}
