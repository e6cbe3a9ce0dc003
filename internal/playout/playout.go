// Package playout implements the Playout Scheduler: the component that
// translates server-timeline instants into local timers using a learned
// clock offset, preloads images ahead of their show time, and performs a
// two-buffer crossfade at the target instant.
package playout

import (
	"sync"
	"time"

	"github.com/omkarlalla-code/kiosk-project/internal/clocksync"
	"github.com/omkarlalla-code/kiosk-project/internal/datachannel"
	"github.com/omkarlalla-code/kiosk-project/internal/logger"
)

// lateShowToleranceDefault matches the spec's late_show_tolerance_ms default.
const lateShowToleranceDefault = 100 * time.Millisecond

// Clock abstracts the local monotonic clock and timer scheduling so tests
// can drive delay/late/drop classification deterministically.
type Clock interface {
	NowMS() int64
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer Scheduler needs.
type Timer interface {
	Stop() bool
}

// ImageFetcher loads image bytes/handle for a preload. The SFU/CDN and
// actual image decode are external collaborators (spec §1); this interface
// is the narrow seam the Scheduler calls through.
type ImageFetcher interface {
	Fetch(cdnURL string) (handle any, err error)
}

// Renderer performs the two-buffer crossfade. The Electron/browser host
// that actually draws pixels is an external collaborator; Renderer is the
// seam the Scheduler drives.
type Renderer interface {
	// Show crossfades to handle over durationMS, captioned by caption.
	Show(handle any, durationMS int64, caption string)
	// ShowFallback crossfades to the configured fallback image.
	ShowFallback(durationMS int64, caption string)
}

type preloadEntry struct {
	handle   any
	ok       bool
	expireAt int64 // local ms, from playout_ts-based ttl
}

// Scheduler holds per-session playout state: the Clock Sync offset, the
// preload store, and the pending-timer store.
type Scheduler struct {
	sync   *clocksync.Sync
	clock  Clock
	fetch  ImageFetcher
	render Renderer

	lateTolerance time.Duration

	mu      sync.Mutex
	preload map[string]preloadEntry
	pending map[string]Timer
}

// New returns a Scheduler. lateTolerance of 0 uses the spec default (100ms).
func New(clock Clock, fetch ImageFetcher, render Renderer, lateTolerance time.Duration) *Scheduler {
	if lateTolerance == 0 {
		lateTolerance = lateShowToleranceDefault
	}
	return &Scheduler{
		sync:          clocksync.New(clock.NowMS),
		clock:         clock,
		fetch:         fetch,
		render:        render,
		lateTolerance: lateTolerance,
		preload:       make(map[string]preloadEntry),
		pending:       make(map[string]Timer),
	}
}

// Preload handles an img_preload Control Message. If sync is not yet
// initialised, this message's playout_ts seeds the offset. A preload never
// happens more than once per id within one session (idempotent).
func (s *Scheduler) Preload(msg datachannel.Message) {
	if !s.sync.Initialised() {
		s.sync.Initialise(msg.PlayoutTS)
	}

	s.mu.Lock()
	if _, exists := s.preload[msg.ID]; exists {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	handle, err := s.fetch.Fetch(msg.CDNURL)
	entry := preloadEntry{expireAt: s.sync.Convert(msg.PlayoutTS) + msg.TTLMS}
	if err != nil {
		logger.Warn("playout: preload_failure, id not registered", "id", msg.ID, "error", err)
		entry.ok = false
	} else {
		entry.handle = handle
		entry.ok = true
	}

	s.mu.Lock()
	s.preload[msg.ID] = entry
	s.mu.Unlock()
}

// ScheduleShow handles an img_show Control Message, classifying it as
// on-time, late-but-tolerated, or dropped per spec §4.7.
func (s *Scheduler) ScheduleShow(msg datachannel.Message) {
	if !s.sync.Initialised() {
		s.sync.Initialise(msg.PlayoutTS)
	}

	localTS := s.sync.Convert(msg.PlayoutTS)
	delay := time.Duration(localTS-s.clock.NowMS()) * time.Millisecond

	switch {
	case delay > 0:
		timer := s.clock.AfterFunc(delay, func() { s.render1(msg) })
		s.mu.Lock()
		s.pending[msg.ID] = timer
		s.mu.Unlock()
	case delay >= -s.lateTolerance:
		logger.Warn("playout: show_late, rendering anyway", "id", msg.ID, "delay_ms", delay.Milliseconds())
		s.render1(msg)
	default:
		logger.Warn("playout: show_late, dropped", "id", msg.ID, "delay_ms", delay.Milliseconds())
	}
}

func (s *Scheduler) render1(msg datachannel.Message) {
	s.mu.Lock()
	delete(s.pending, msg.ID)
	entry, ok := s.preload[msg.ID]
	s.mu.Unlock()

	if !ok || !entry.ok || (entry.expireAt != 0 && s.clock.NowMS() > entry.expireAt) {
		s.render.ShowFallback(msg.DurationMS, msg.Caption)
		return
	}
	s.render.Show(entry.handle, msg.DurationMS, msg.Caption)
}

// ResetSync clears the offset, cancels every pending timer, and empties
// both stores. Invoked on session end or explicit restart, implementing
// the cyclic-ownership teardown described in spec §9.
func (s *Scheduler) ResetSync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	for id := range s.preload {
		delete(s.preload, id)
	}
	s.sync = clocksync.New(s.clock.NowMS)
}
