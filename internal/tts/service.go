// Package tts implements the TTS Streaming & Cache subsystem: a
// content-addressed cache with at-most-one concurrent synthesis per key,
// and a replaceable Synthesiser with tiered fallback.
package tts

import "context"

// Artifact is the result of a successful synthesis: opaque audio bytes
// plus enough metadata to estimate playout duration without decoding.
type Artifact struct {
	Audio       []byte
	ContentType string // "audio/mpeg" or "audio/wav"
	SampleRate  int
	Channels    int
	DurationMS  int64
	Tier        string // which fallback tier served the request (observability only)
}

// Service synthesises text into audio. Each fallback tier (primary cloud
// voice, secondary cloud voice, local system voice, placeholder) implements
// this same interface so the cache and Synthesiser can treat them
// uniformly.
type Service interface {
	// Name identifies the tier, for observability.
	Name() string
	// Synthesize converts text to a complete audio artifact.
	Synthesize(ctx context.Context, text string) (Artifact, error)
}
