// Package pipeline implements the Conversation Pipeline: the per-turn
// orchestration that composes the LLM Adapter, TTS Cache, Image Resolver,
// and Datachannel Router into a single `converse` call.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/omkarlalla-code/kiosk-project/internal/convo"
	"github.com/omkarlalla-code/kiosk-project/internal/datachannel"
	"github.com/omkarlalla-code/kiosk-project/internal/images"
	"github.com/omkarlalla-code/kiosk-project/internal/llm"
	"github.com/omkarlalla-code/kiosk-project/internal/logger"
	"github.com/omkarlalla-code/kiosk-project/internal/metrics"
	"github.com/omkarlalla-code/kiosk-project/internal/session"
	"github.com/omkarlalla-code/kiosk-project/internal/telemetry"
	"github.com/omkarlalla-code/kiosk-project/internal/tts"
)

// Result is what Converse returns: the assistant's text, synthesised
// audio, how many visuals were scheduled, and the end-of-chat bit.
type Result struct {
	AssistantText    string
	AudioBytes       []byte
	AudioContentType string
	ScheduledEvents  int
	EndChat          bool
	TTSError         bool
}

// Clock abstracts server_now(), for deterministic anchor-time tests.
type Clock func() time.Time

// Pipeline composes the collaborators and serializes turns per session.
type Pipeline struct {
	sessions   *session.Registry
	llmAdapter llm.Adapter
	ttsService tts.Service
	resolver   *images.Resolver
	router     *datachannel.Router
	now        Clock

	anchorLead    time.Duration
	preloadLead   time.Duration
	showCrossfade time.Duration

	turnsMu sync.Mutex
	turns   map[string]chan struct{}
}

// New constructs a Pipeline.
func New(
	sessions *session.Registry,
	llmAdapter llm.Adapter,
	ttsService tts.Service,
	resolver *images.Resolver,
	router *datachannel.Router,
	anchorLead, preloadLead, showCrossfade time.Duration,
) *Pipeline {
	return &Pipeline{
		sessions:      sessions,
		llmAdapter:    llmAdapter,
		ttsService:    ttsService,
		resolver:      resolver,
		router:        router,
		now:           time.Now,
		anchorLead:    anchorLead,
		preloadLead:   preloadLead,
		showCrossfade: showCrossfade,
		turns:         make(map[string]chan struct{}),
	}
}

// WithClock substitutes the Pipeline's server_now() source, for tests that
// assert on exact anchor timestamps.
func (p *Pipeline) WithClock(now Clock) *Pipeline {
	p.now = now
	return p
}

// acquireTurn returns a release func once this goroutine holds the
// capacity-1 token for sessionID, serializing turns per session per spec
// §5 ("the Pipeline processes turns serially per session_id"). A second
// concurrent call for the same session blocks here until the first turn
// releases the token (the "queues" option), rather than rejecting outright.
func (p *Pipeline) acquireTurn(ctx context.Context, sessionID string) (func(), error) {
	p.turnsMu.Lock()
	ch, ok := p.turns[sessionID]
	if !ok {
		ch = make(chan struct{}, 1)
		p.turns[sessionID] = ch
	}
	p.turnsMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Converse implements the algorithm in spec §4.2, steps 1-8.
func (p *Pipeline) Converse(ctx context.Context, sessionID, userText string) (Result, error) {
	sess := p.sessions.Session(sessionID)
	if sess == nil {
		return Result{}, ErrSessionNotFound
	}
	snap, err := p.sessions.Lookup(sessionID)
	if err != nil || snap.State != session.StateActive {
		return Result{}, ErrSessionNotFound
	}

	release, err := p.acquireTurn(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	ctx, span := telemetry.StartTurn(ctx, sessionID)
	defer span.End()

	// Step 2: refresh.
	p.sessions.Refresh(sessionID)

	// Step 3: LLM call.
	history := sess.History()
	history.Append(convo.RoleUser, userText)

	llmCtx, llmSpan := telemetry.StartStage(ctx, "llm")
	start := time.Now()
	raw, err := p.llmAdapter.Send(llmCtx, sessionID, history)
	elapsed := time.Since(start)
	metrics.RecordStageDuration("llm", elapsed.Seconds())
	if err != nil {
		metrics.RecordLLMRequest("error", elapsed.Seconds())
		telemetry.EndWithError(llmSpan, err)
		logger.ErrorContext(ctx, "pipeline: llm call failed", "session_id", sessionID, "error", err)
		return Result{}, &StageError{Stage: "llm", Cause: ErrUpstreamLLM}
	}
	metrics.RecordLLMRequest("ok", elapsed.Seconds())
	telemetry.EndWithError(llmSpan, nil)

	reply := llm.ParseReply(raw)
	history.Append(convo.RoleAssistant, reply.SpeechResponse)

	// Step 4: TTS synth or cache hit.
	ttsCtx, ttsSpan := telemetry.StartStage(ctx, "tts")
	start = time.Now()
	artifact, ttsErr := p.ttsService.Synthesize(ttsCtx, reply.SpeechResponse)
	metrics.RecordStageDuration("tts", time.Since(start).Seconds())
	ttsFailed := ttsErr != nil
	if ttsFailed {
		logger.WarnContext(ctx, "pipeline: tts synthesis failed, returning silent turn", "session_id", sessionID, "error", ttsErr)
	}
	telemetry.EndWithError(ttsSpan, ttsErr)

	// Step 5: anchor the timeline.
	now := p.now()
	speechStartTS := now.Add(p.anchorLead).UnixMilli()

	// Step 6: schedule visuals.
	scheduled := 0
	for _, event := range reply.TimelineEvents {
		showAt := speechStartTS + event.TimeOffsetMS
		descriptor, matched := p.resolver.Resolve(event.Action.Payload)
		if !matched {
			logger.WarnContext(ctx, "pipeline: image_unresolved, dispatching fallback descriptor",
				"session_id", sessionID, "ref_id", event.Action.Payload.ID)
		}

		preloadAt := showAt - p.preloadLead.Milliseconds()
		if preloadAt < now.UnixMilli() {
			preloadAt = now.UnixMilli()
		}
		preloadDelay := time.Duration(preloadAt-now.UnixMilli()) * time.Millisecond
		p.router.Schedule(ctx, sess.RoomID,
			datachannel.ImgPreload(descriptor.ID, descriptor.CDNURL, showAt, int64(p.preloadLead.Milliseconds())*4),
			preloadDelay)

		showDelay := time.Duration(showAt-now.UnixMilli()) * time.Millisecond
		p.router.Schedule(ctx, sess.RoomID,
			datachannel.ImgShow(descriptor.ID, showAt, "fade", p.showCrossfade.Milliseconds(), descriptor.Title),
			showDelay)

		scheduled++
	}

	// Step 7: end-chat signalling.
	if reply.EndChat {
		endDelay := time.Duration(artifact.DurationMS)*time.Millisecond + p.anchorLead
		p.router.Schedule(ctx, sess.RoomID, datachannel.EndChat(), endDelay)
	}

	metrics.RecordTurn(outcomeFor(ttsFailed, reply.Degraded))

	return Result{
		AssistantText:    reply.SpeechResponse,
		AudioBytes:       artifact.Audio,
		AudioContentType: artifact.ContentType,
		ScheduledEvents:  scheduled,
		EndChat:          reply.EndChat,
		TTSError:         ttsFailed,
	}, nil
}

func outcomeFor(ttsFailed, degraded bool) string {
	switch {
	case ttsFailed:
		return "tts_error"
	case degraded:
		return "degraded"
	default:
		return "ok"
	}
}
