package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPTier_SynthesizeReturnsAudioBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("fake-mp3-bytes"))
	}))
	defer srv.Close()

	tier := NewHTTPTier("primary-cloud", srv.URL, time.Second, 22050, 1, 70)
	artifact, err := tier.Synthesize(context.Background(), "hello there")
	require.NoError(t, err)
	require.Equal(t, []byte("fake-mp3-bytes"), artifact.Audio)
	require.Equal(t, "audio/mpeg", artifact.ContentType)
	require.Equal(t, "primary-cloud", tier.Name())
	require.Greater(t, artifact.DurationMS, int64(0))
}

func TestHTTPTier_NonOKStatusIsRetryableWhenServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tier := NewHTTPTier("secondary-cloud", srv.URL, time.Second, 22050, 1, 70)
	_, err := tier.Synthesize(context.Background(), "hello")
	require.Error(t, err)

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	require.True(t, synthErr.Retryable)
}

func TestHTTPTier_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tier := NewHTTPTier("local-voice", srv.URL, time.Second, 16000, 1, 70)
	_, err := tier.Synthesize(context.Background(), "hello")
	require.Error(t, err)

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	require.False(t, synthErr.Retryable)
}

func TestHTTPTier_UsableAsTieredSynthesiserStage(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("ok-audio"))
	}))
	defer up.Close()

	synth := NewTieredSynthesiser(
		NewHTTPTier("primary-cloud", down.URL, time.Second, 22050, 1, 70),
		NewHTTPTier("secondary-cloud", up.URL, time.Second, 22050, 1, 70),
	)
	artifact, err := synth.Synthesize(context.Background(), "fallback path")
	require.NoError(t, err)
	require.Equal(t, "secondary-cloud", artifact.Tier)
}
