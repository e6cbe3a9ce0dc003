package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omkarlalla-code/kiosk-project/internal/datachannel"
	"github.com/omkarlalla-code/kiosk-project/internal/images"
	"github.com/omkarlalla-code/kiosk-project/internal/llm"
	"github.com/omkarlalla-code/kiosk-project/internal/session"
	"github.com/omkarlalla-code/kiosk-project/internal/tts"
)

var errLLMDown = &llmDownError{}

type llmDownError struct{}

func (*llmDownError) Error() string { return "llm unreachable" }

type fakeMinter struct{}

func (fakeMinter) Mint(identity, roomName string, ttl time.Duration) (string, error) {
	return "token", nil
}

func newTestCatalogue(t *testing.T) *images.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogue.yaml")
	doc := `
collections:
  landmarks:
    - id: parthenon
      title: The Parthenon
      cdn_url: https://cdn.example/parthenon.jpg
      keywords: [parthenon, acropolis]
      category: landmarks
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	store, err := images.NewStore(path)
	require.NoError(t, err)
	return store
}

func newTestPipeline(t *testing.T, adapter llm.Adapter) (*Pipeline, *session.Registry, *datachannel.Router) {
	t.Helper()
	registry := session.NewRegistry(time.Hour, time.Hour, time.Minute, fakeMinter{}, "persona prompt")
	t.Cleanup(registry.Close)

	resolver := images.NewResolver(newTestCatalogue(t))
	router := datachannel.NewRouter()
	ttsService := tts.NewMockTier("primary", false, tts.Artifact{Audio: []byte("audio-bytes"), ContentType: "audio/wav", DurationMS: 1200})

	p := New(registry, adapter, ttsService, resolver, router, time.Second, 1500*time.Millisecond, 400*time.Millisecond)
	return p, registry, router
}

func TestConverse_ColdTurn(t *testing.T) {
	reply := `{"speech_response":"The Parthenon is a temple.","timeline_events":[{"time_offset_ms":2000,"action":{"type":"PRELOAD_IMAGE","payload":{"id":"parthenon"}}}],"end_chat":false}`
	adapter := llm.NewMockAdapter(reply)

	p, registry, _ := newTestPipeline(t, adapter)
	sessionID, _, _, _, err := registry.Create("kiosk-1")
	require.NoError(t, err)

	result, err := p.Converse(context.Background(), sessionID, "Tell me about the Parthenon")
	require.NoError(t, err)
	require.Equal(t, "The Parthenon is a temple.", result.AssistantText)
	require.NotEmpty(t, result.AudioBytes)
	require.Equal(t, 1, result.ScheduledEvents)
	require.False(t, result.EndChat)
	require.False(t, result.TTSError)
}

func TestConverse_UnknownSessionFails(t *testing.T) {
	adapter := llm.NewMockAdapter(`{"speech_response":"hi","timeline_events":[],"end_chat":false}`)
	p, _, _ := newTestPipeline(t, adapter)

	_, err := p.Converse(context.Background(), "no-such-session", "hello")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConverse_LLMFailureReturnsUpstreamError(t *testing.T) {
	adapter := llm.NewMockAdapter("").WithError(0, errLLMDown)
	p, registry, _ := newTestPipeline(t, adapter)
	sessionID, _, _, _, err := registry.Create("kiosk-1")
	require.NoError(t, err)

	_, err = p.Converse(context.Background(), sessionID, "hello")
	require.ErrorIs(t, err, ErrUpstreamLLM)
}

func TestConverse_HistoryGrowsMonotonically(t *testing.T) {
	reply := `{"speech_response":"Hi there","timeline_events":[],"end_chat":false}`
	adapter := llm.NewMockAdapter(reply, reply)
	p, registry, _ := newTestPipeline(t, adapter)
	sessionID, _, _, _, err := registry.Create("kiosk-1")
	require.NoError(t, err)

	sess := registry.Session(sessionID)
	before := sess.History().Len()

	_, err = p.Converse(context.Background(), sessionID, "hello")
	require.NoError(t, err)
	afterFirst := sess.History().Len()
	require.Greater(t, afterFirst, before)

	_, err = p.Converse(context.Background(), sessionID, "hello again")
	require.NoError(t, err)
	afterSecond := sess.History().Len()
	require.Greater(t, afterSecond, afterFirst)
}

func TestConverse_EndChatReplySetsResultEndChat(t *testing.T) {
	reply := `{"speech_response":"Goodbye","timeline_events":[],"end_chat":true}`
	adapter := llm.NewMockAdapter(reply)
	p, registry, _ := newTestPipeline(t, adapter)
	sessionID, _, _, _, err := registry.Create("kiosk-1")
	require.NoError(t, err)

	result, err := p.Converse(context.Background(), sessionID, "bye")
	require.NoError(t, err)
	require.True(t, result.EndChat)
}
