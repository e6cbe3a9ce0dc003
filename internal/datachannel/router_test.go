package datachannel

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialRoom(t *testing.T, router *Router, roomID string) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(router.ServeWS(roomID))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestRouter_SendDeliversToJoinedClient(t *testing.T) {
	router := NewRouter()
	conn, cleanup := dialRoom(t, router, "room-1")
	defer cleanup()

	time.Sleep(20 * time.Millisecond) // allow Join to register before Send

	err := router.Send(context.Background(), "room-1", EndChat())
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, TagEndChat, got.Tag)
}

func TestRouter_SendToEmptyRoomReturnsRoomGone(t *testing.T) {
	router := NewRouter()
	err := router.Send(context.Background(), "no-such-room", EndChat())
	require.ErrorIs(t, err, ErrRoomGone)
}

func TestRouter_MessagesArriveInFIFOOrder(t *testing.T) {
	router := NewRouter()
	conn, cleanup := dialRoom(t, router, "room-fifo")
	defer cleanup()

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, router.Send(context.Background(), "room-fifo", ImgPreload("parthenon", "https://cdn/x.jpg", 1000, 5000)))
	require.NoError(t, router.Send(context.Background(), "room-fifo", ImgShow("parthenon", 2000, "fade", 500, "The Parthenon")))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var first, second Message
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	require.Equal(t, TagImgPreload, first.Tag)
	require.Equal(t, TagImgShow, second.Tag)
}

func TestRouter_ScheduleFiresAfterDelay(t *testing.T) {
	router := NewRouter()
	conn, cleanup := dialRoom(t, router, "room-sched")
	defer cleanup()

	time.Sleep(20 * time.Millisecond)

	router.Schedule(context.Background(), "room-sched", EndOfStream("sess-1"), 30*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, TagEndOfStream, got.Tag)
	require.Equal(t, "sess-1", got.SessionID)
}

func TestRouter_ScheduleToRoomGoneByFireTimeIsNonFatal(t *testing.T) {
	router := NewRouter()
	conn, cleanup := dialRoom(t, router, "room-gone-by-fire")
	time.Sleep(20 * time.Millisecond)
	cleanup() // room empties before the timer fires

	router.Schedule(context.Background(), "room-gone-by-fire", EndChat(), 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond) // no panic, no hang: the drop is silent

	_ = conn
}

func TestRouter_CancelRoomStopsPendingTimers(t *testing.T) {
	router := NewRouter()
	conn, cleanup := dialRoom(t, router, "room-cancel")
	defer cleanup()

	time.Sleep(20 * time.Millisecond)

	router.Schedule(context.Background(), "room-cancel", EndChat(), 50*time.Millisecond)
	router.Schedule(context.Background(), "room-cancel", EndOfStream("sess-1"), 50*time.Millisecond)

	router.timersMu.Lock()
	pending := len(router.timers)
	router.timersMu.Unlock()
	require.Equal(t, 2, pending)

	router.CancelRoom("room-cancel")

	router.timersMu.Lock()
	require.Empty(t, router.timers)
	router.timersMu.Unlock()

	// Give the stopped timers a chance to misfire before asserting silence.
	conn.SetReadDeadline(time.Now().Add(80 * time.Millisecond))
	var got Message
	err := conn.ReadJSON(&got)
	require.Error(t, err, "CancelRoom should have stopped both timers before they fired")
}

func TestRouter_ScheduleRemovesOwnTimerEntryAfterFiring(t *testing.T) {
	router := NewRouter()
	conn, cleanup := dialRoom(t, router, "room-self-clean")
	defer cleanup()

	time.Sleep(20 * time.Millisecond)

	router.Schedule(context.Background(), "room-self-clean", EndChat(), 10*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got Message
	require.NoError(t, conn.ReadJSON(&got))

	require.Eventually(t, func() bool {
		router.timersMu.Lock()
		defer router.timersMu.Unlock()
		return len(router.timers) == 0
	}, time.Second, 5*time.Millisecond, "fired timer's map entry should be removed")
}

func TestRouter_LeavePrunesEmptyRoom(t *testing.T) {
	router := NewRouter()
	conn, cleanup := dialRoom(t, router, "room-prune")
	time.Sleep(20 * time.Millisecond)
	cleanup()
	time.Sleep(20 * time.Millisecond)

	err := router.Send(context.Background(), "room-prune", EndChat())
	require.ErrorIs(t, err, ErrRoomGone)

	conn.Close() //nolint:errcheck
}
