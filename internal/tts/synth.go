package tts

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/omkarlalla-code/kiosk-project/internal/logger"
	"github.com/omkarlalla-code/kiosk-project/internal/metrics"
)

// TieredSynthesiser tries each Service in declared order until one
// succeeds, per spec §4.4: primary cloud voice, secondary cloud voice,
// local system voice, constant-sine placeholder. Open Question (b) is
// resolved by implementing all four named tiers.
type TieredSynthesiser struct {
	tiers []Service
}

// NewTieredSynthesiser returns a synthesiser that tries tiers in order.
func NewTieredSynthesiser(tiers ...Service) *TieredSynthesiser {
	return &TieredSynthesiser{tiers: tiers}
}

// Synthesize implements Service by delegating to the first tier that
// succeeds. The returned Artifact's Tier field identifies which one served
// the request.
func (t *TieredSynthesiser) Synthesize(ctx context.Context, text string) (Artifact, error) {
	if text == "" {
		return Artifact{}, ErrEmptyText
	}

	var errs []error
	for _, tier := range t.tiers {
		start := time.Now()
		artifact, err := tier.Synthesize(ctx, text)
		elapsed := time.Since(start).Seconds()
		if err == nil {
			metrics.RecordTTSSynthesis(tier.Name(), "ok", elapsed)
			artifact.Tier = tier.Name()
			return artifact, nil
		}
		metrics.RecordTTSSynthesis(tier.Name(), "error", elapsed)
		logger.Warn("tts tier failed, falling back", "tier", tier.Name(), "error", err)
		errs = append(errs, &SynthesisError{Tier: tier.Name(), Cause: err, Retryable: true})
	}

	return Artifact{}, errors.Join(append([]error{ErrAllTiersFailed}, errs...)...)
}

// Name implements Service.
func (t *TieredSynthesiser) Name() string { return "tiered" }

// PlaceholderTier is the last-resort tier: a constant-sine WAV of a length
// proportional to the text, guaranteeing the pipeline always has audio to
// return even with every network tier down.
type PlaceholderTier struct {
	SampleRate int
	Frequency  float64
	MSPerChar  int64
}

// NewPlaceholderTier returns a PlaceholderTier with sensible defaults
// (24kHz mono, 440Hz tone, ~60ms of audio per character of input).
func NewPlaceholderTier() *PlaceholderTier {
	return &PlaceholderTier{SampleRate: 24000, Frequency: 440, MSPerChar: 60}
}

// Name implements Service.
func (p *PlaceholderTier) Name() string { return "placeholder" }

// Synthesize implements Service by generating a constant-sine WAV.
func (p *PlaceholderTier) Synthesize(_ context.Context, text string) (Artifact, error) {
	durationMS := int64(len(text)) * p.MSPerChar
	if durationMS <= 0 {
		durationMS = p.MSPerChar
	}
	pcm := generateSinePCM(p.SampleRate, p.Frequency, durationMS)
	wav := WrapPCMAsWAV(pcm, p.SampleRate, 1, 16)
	return Artifact{
		Audio:       wav,
		ContentType: "audio/wav",
		SampleRate:  p.SampleRate,
		Channels:    1,
		DurationMS:  durationMS,
	}, nil
}

func generateSinePCM(sampleRate int, freq float64, durationMS int64) []byte {
	numSamples := int(int64(sampleRate) * durationMS / 1000)
	pcm := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		sample := int16(math.Sin(2*math.Pi*freq*t) * 0.2 * math.MaxInt16)
		pcm[2*i] = byte(sample)
		pcm[2*i+1] = byte(sample >> 8)
	}
	return pcm
}
