package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeMinter struct{}

func (fakeMinter) Mint(identity, roomName string, ttl time.Duration) (string, error) {
	return "token-for-" + identity, nil
}

type fakeReleaser struct {
	released []string
}

func (r *fakeReleaser) ReleaseRoom(roomID string) {
	r.released = append(r.released, roomID)
}

func newTestRegistry(t *testing.T, clock *fakeClock, idleTimeout, duration time.Duration) (*Registry, *fakeReleaser) {
	t.Helper()
	releaser := &fakeReleaser{}
	reg := NewRegistry(idleTimeout, duration, time.Minute, fakeMinter{}, "persona prompt", WithClock(clock), WithRoomReleaser(releaser))
	t.Cleanup(reg.Close)
	return reg, releaser
}

func TestRegistry_CreateAndLookup(t *testing.T) {
	clock := newFakeClock(time.Now())
	reg, _ := newTestRegistry(t, clock, time.Minute, time.Hour)

	sessionID, roomID, token, durationS, err := reg.Create("kiosk-1")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)
	require.NotEmpty(t, roomID)
	require.Equal(t, "token-for-"+sessionID, token)
	require.Equal(t, int64(3600), durationS)

	snap, err := reg.Lookup(sessionID)
	require.NoError(t, err)
	require.Equal(t, StateActive, snap.State)
}

func TestRegistry_LookupUnknownReturnsNotFound(t *testing.T) {
	clock := newFakeClock(time.Now())
	reg, _ := newTestRegistry(t, clock, time.Minute, time.Hour)

	_, err := reg.Lookup("does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_IdleTimeoutEndsSession(t *testing.T) {
	clock := newFakeClock(time.Now())
	reg, releaser := newTestRegistry(t, clock, 10*time.Second, time.Hour)

	sessionID, roomID, _, _, err := reg.Create("kiosk-1")
	require.NoError(t, err)

	clock.Advance(11 * time.Second)

	snap, err := reg.Lookup(sessionID)
	require.NoError(t, err)
	require.Equal(t, StateEnded, snap.State)
	require.Equal(t, ReasonTimeout, snap.EndReason)
	require.Contains(t, releaser.released, roomID)
}

func TestRegistry_RefreshResetsIdleTimer(t *testing.T) {
	clock := newFakeClock(time.Now())
	reg, _ := newTestRegistry(t, clock, 10*time.Second, time.Hour)

	sessionID, _, _, _, err := reg.Create("kiosk-1")
	require.NoError(t, err)

	clock.Advance(8 * time.Second)
	reg.Refresh(sessionID)
	clock.Advance(8 * time.Second)

	snap, err := reg.Lookup(sessionID)
	require.NoError(t, err)
	require.Equal(t, StateActive, snap.State, "refresh should have pushed the idle deadline past this point")
}

func TestRegistry_HardDurationEndsSessionRegardlessOfActivity(t *testing.T) {
	clock := newFakeClock(time.Now())
	reg, _ := newTestRegistry(t, clock, time.Hour, 30*time.Second)

	sessionID, _, _, _, err := reg.Create("kiosk-1")
	require.NoError(t, err)

	reg.Refresh(sessionID) // activity does not extend the hard duration
	clock.Advance(31 * time.Second)

	snap, err := reg.Lookup(sessionID)
	require.NoError(t, err)
	require.Equal(t, StateEnded, snap.State)
	require.Equal(t, ReasonDurationExpired, snap.EndReason)
}

func TestRegistry_EndIsIdempotent(t *testing.T) {
	clock := newFakeClock(time.Now())
	reg, releaser := newTestRegistry(t, clock, time.Hour, time.Hour)

	sessionID, _, _, _, err := reg.Create("kiosk-1")
	require.NoError(t, err)

	require.NoError(t, reg.End(sessionID, ReasonManual))
	require.NoError(t, reg.End(sessionID, ReasonOperatorTerminated))

	snap, err := reg.Lookup(sessionID)
	require.NoError(t, err)
	require.Equal(t, ReasonManual, snap.EndReason, "second End call must be a no-op")
	require.Len(t, releaser.released, 1)
}

func TestRegistry_SubscribeTicksEmitsRemainingSeconds(t *testing.T) {
	clock := newFakeClock(time.Now())
	reg, _ := newTestRegistry(t, clock, time.Hour, 100*time.Second)

	sessionID, _, _, _, err := reg.Create("kiosk-1")
	require.NoError(t, err)

	ticks, unsubscribe := reg.SubscribeTicks()
	defer unsubscribe()

	reg.publishTicks(clock.Now().Add(10 * time.Second))

	select {
	case tick := <-ticks:
		require.Equal(t, sessionID, tick.SessionID)
		require.Equal(t, int64(90), tick.RemainingS)
	case <-time.After(time.Second):
		t.Fatal("expected a tick")
	}
}
