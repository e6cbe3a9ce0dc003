// Package clocksync implements the client-side Clock Sync component: a
// one-shot learned offset between the server-authored timeline and the
// client's local monotonic clock.
package clocksync

import (
	"sync"
	"sync/atomic"
)

// Sync learns offset_ms = first_server_playout_ts - client_monotonic_now()
// from the first control message carrying a playout_ts, then holds it
// immutable for the remainder of the session — a design choice that trades
// long-session drift accuracy for zero scheduling jitter from re-sync
// events.
type Sync struct {
	once        sync.Once
	nowFn       func() int64
	offsetMS    int64
	initialised atomic.Bool
}

// New returns a Sync using nowFn as the local monotonic clock source
// (milliseconds since an arbitrary epoch, monotonic within the process).
func New(nowFn func() int64) *Sync {
	return &Sync{nowFn: nowFn}
}

// Initialise learns the offset from serverTS if it has not already been
// learned this session. Subsequent calls are no-ops.
func (s *Sync) Initialise(serverTS int64) {
	s.once.Do(func() {
		s.offsetMS = serverTS - s.nowFn()
		s.initialised.Store(true)
	})
}

// Initialised reports whether Initialise has run.
func (s *Sync) Initialised() bool {
	return s.initialised.Load()
}

// Convert translates a server-timeline instant to the local clock,
// assuming Initialise has already run.
func (s *Sync) Convert(serverTS int64) int64 {
	return serverTS - s.offsetMS
}
