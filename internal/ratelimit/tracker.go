// Package ratelimit provides the per-IP failed-login tracker that fronts the
// durable attempt ledger. The tracker is process-local and best-effort; the
// ledger remains the source of truth across restarts.
package ratelimit

import (
	"sync"
	"time"
)

// Tracker counts failed login attempts per client IP. It is injected behind
// this interface so a multi-instance deployment can swap the in-process map
// for a shared store without touching the guard logic.
type Tracker interface {
	// Check reports whether the IP is currently blocked and, if so, the
	// remaining cooldown.
	Check(ip string) (blocked bool, retryAfter time.Duration)
	// RecordFailure counts one failed attempt against the IP.
	RecordFailure(ip string)
	// Reset drops the bucket for the IP. Called on successful login.
	Reset(ip string)
	// Sweep removes buckets whose window has fully elapsed. Driven by the
	// background maintenance loop, never by request handling.
	Sweep()
}

type bucket struct {
	count       int
	windowStart time.Time
}

// MemoryTracker is the in-process Tracker implementation. State is lost on
// restart; that is acceptable because the email ledger persists.
type MemoryTracker struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	maxFailures int
	window      time.Duration
	now         func() time.Time
}

// NewMemoryTracker creates a tracker blocking an IP after maxFailures failed
// attempts within the window.
func NewMemoryTracker(maxFailures int, window time.Duration) *MemoryTracker {
	return &MemoryTracker{
		buckets:     make(map[string]*bucket),
		maxFailures: maxFailures,
		window:      window,
		now:         time.Now,
	}
}

func (t *MemoryTracker) Check(ip string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[ip]
	if !ok {
		return false, 0
	}

	now := t.now()
	if now.Sub(b.windowStart) >= t.window {
		delete(t.buckets, ip)
		return false, 0
	}

	if b.count >= t.maxFailures {
		retry := b.windowStart.Add(t.window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return true, retry
	}

	return false, 0
}

func (t *MemoryTracker) RecordFailure(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[ip]
	if !ok || now.Sub(b.windowStart) >= t.window {
		t.buckets[ip] = &bucket{count: 1, windowStart: now}
		return
	}
	b.count++
}

func (t *MemoryTracker) Reset(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.buckets, ip)
}

func (t *MemoryTracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for ip, b := range t.buckets {
		if now.Sub(b.windowStart) >= t.window {
			delete(t.buckets, ip)
		}
	}
}
