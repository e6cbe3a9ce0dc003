package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omkarlalla-code/kiosk-project/internal/datachannel"
	"github.com/omkarlalla-code/kiosk-project/internal/images"
	"github.com/omkarlalla-code/kiosk-project/internal/llm"
	"github.com/omkarlalla-code/kiosk-project/internal/pipeline"
	"github.com/omkarlalla-code/kiosk-project/internal/session"
	"github.com/omkarlalla-code/kiosk-project/internal/tts"
)

type fakeMinter struct{}

func (fakeMinter) Mint(identity, roomName string, ttl time.Duration) (string, error) {
	return "tok-" + identity, nil
}

func newTestServer(t *testing.T) (*Server, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry(time.Hour, time.Hour, time.Minute, fakeMinter{}, "persona")
	t.Cleanup(registry.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collections:\n  landmarks:\n    - id: parthenon\n      title: Parthenon\n      cdn_url: https://cdn/x.jpg\n      keywords: [parthenon]\n      category: landmarks\n"), 0o600))
	store, err := images.NewStore(path)
	require.NoError(t, err)
	resolver := images.NewResolver(store)

	router := datachannel.NewRouter()
	adapter := llm.NewMockAdapter(`{"speech_response":"hello","timeline_events":[],"end_chat":false}`)
	ttsService := tts.NewMockTier("primary", false, tts.Artifact{Audio: []byte("aaa"), ContentType: "audio/wav", DurationMS: 500})

	pipe := pipeline.New(registry, adapter, ttsService, resolver, router, time.Second, 1500*time.Millisecond, 400*time.Millisecond)
	return NewServer(registry, pipe), registry
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleStartSession(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/start_session", startSessionRequest{KioskID: "kiosk-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp startSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	require.NotEmpty(t, resp.Token)
}

func TestHandleStartSession_MissingKioskID(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/start_session", startSessionRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConverse_UnknownSessionReturns404(t *testing.T) {
	server, _ := newTestServer(t)
	rec := doJSON(t, server.Handler(), http.MethodPost, "/converse", converseRequest{SessionID: "nope", Message: "hi"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleConverse_Success(t *testing.T) {
	server, registry := newTestServer(t)
	sessionID, _, _, _, err := registry.Create("kiosk-1")
	require.NoError(t, err)

	rec := doJSON(t, server.Handler(), http.MethodPost, "/converse", converseRequest{SessionID: sessionID, Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp converseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "hello", resp.AssistantResponse)
	require.NotEmpty(t, resp.AudioBase64)
}

func TestHandleEndSession(t *testing.T) {
	server, registry := newTestServer(t)
	sessionID, _, _, _, err := registry.Create("kiosk-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/session/"+sessionID, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	snap, err := registry.Lookup(sessionID)
	require.NoError(t, err)
	require.Equal(t, session.StateEnded, snap.State)
}

func TestHandleGetSession_Unknown(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/session/does-not-exist", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	server, registry := newTestServer(t)
	_, _, _, _, err := registry.Create("kiosk-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, 1, resp.ActiveSessions)
}
