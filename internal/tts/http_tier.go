package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/omkarlalla-code/kiosk-project/internal/llm"
	"github.com/omkarlalla-code/kiosk-project/internal/logger"
)

// HTTPTier implements Service against the outbound contract in spec §6:
// POST /synthesize with {text}, expecting raw audio bytes back with
// Content-Type audio/mpeg or audio/wav. It serves the primary cloud voice,
// secondary cloud voice, and local system voice tiers named in spec §4.4 —
// each is just an HTTPTier pointed at a different endpoint.
type HTTPTier struct {
	name       string
	endpoint   string
	client     *http.Client
	sampleRate int
	channels   int
	msPerChar  int64
}

// NewHTTPTier builds an HTTPTier named name, posting to endpoint. sampleRate
// and channels describe the audio the endpoint is known to return (used only
// to populate Artifact metadata, not to transcode); msPerChar estimates
// DurationMS when the upstream doesn't report duration itself.
func NewHTTPTier(name, endpoint string, timeout time.Duration, sampleRate, channels int, msPerChar int64) *HTTPTier {
	return &HTTPTier{
		name:       name,
		endpoint:   endpoint,
		client:     &http.Client{Timeout: timeout, Transport: llm.NewPooledTransport()},
		sampleRate: sampleRate,
		channels:   channels,
		msPerChar:  msPerChar,
	}
}

// Name implements Service.
func (t *HTTPTier) Name() string { return t.name }

type synthesizeRequest struct {
	Text string `json:"text"`
}

// Synthesize implements Service by POSTing text and reading back raw audio
// bytes.
func (t *HTTPTier) Synthesize(ctx context.Context, text string) (Artifact, error) {
	body := fmt.Sprintf(`{"text":%q}`, text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(body))
	if err != nil {
		return Artifact{}, &SynthesisError{Tier: t.name, Cause: err, Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.UpstreamCall(t.name, t.endpoint, elapsed.Milliseconds(), false, "error", err.Error())
		return Artifact{}, &SynthesisError{Tier: t.name, Cause: err, Retryable: true}
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return Artifact{}, &SynthesisError{Tier: t.name, Cause: err, Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		logger.UpstreamCall(t.name, t.endpoint, elapsed.Milliseconds(), false, "status", resp.StatusCode)
		return Artifact{}, &SynthesisError{
			Tier:      t.name,
			Cause:     fmt.Errorf("tts: %s status %d: %s", t.name, resp.StatusCode, logger.Redact(string(audio))),
			Retryable: resp.StatusCode >= 500,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}
	logger.UpstreamCall(t.name, t.endpoint, elapsed.Milliseconds(), true)

	durationMS := int64(len(text)) * t.msPerChar
	if durationMS <= 0 {
		durationMS = t.msPerChar
	}
	return Artifact{
		Audio:       audio,
		ContentType: contentType,
		SampleRate:  t.sampleRate,
		Channels:    t.channels,
		DurationMS:  durationMS,
	}, nil
}
