package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply_BareAndFencedJSONAgree(t *testing.T) {
	bare := `{"speech_response":"Hi","timeline_events":[],"end_chat":true}`
	fenced := "```json\n" + bare + "\n```"

	bareReply := ParseReply(bare)
	fencedReply := ParseReply(fenced)

	require.False(t, bareReply.Degraded)
	require.False(t, fencedReply.Degraded)
	assert.Equal(t, bareReply, fencedReply)
	assert.True(t, fencedReply.EndChat)
	assert.Equal(t, "Hi", fencedReply.SpeechResponse)
	assert.Empty(t, fencedReply.TimelineEvents)
}

func TestParseReply_BareFenceNoLanguageTag(t *testing.T) {
	raw := "```\n{\"speech_response\":\"ok\",\"timeline_events\":[],\"end_chat\":false}\n```"
	reply := ParseReply(raw)
	require.False(t, reply.Degraded)
	assert.Equal(t, "ok", reply.SpeechResponse)
}

func TestParseReply_WithTimelineEvents(t *testing.T) {
	raw := `{"speech_response":"The Parthenon...","timeline_events":[{"time_offset_ms":2000,"action":{"type":"PRELOAD_IMAGE","payload":{"id":"parthenon"}}}],"end_chat":false}`
	reply := ParseReply(raw)
	require.False(t, reply.Degraded)
	require.Len(t, reply.TimelineEvents, 1)
	assert.EqualValues(t, 2000, reply.TimelineEvents[0].TimeOffsetMS)
	assert.Equal(t, "parthenon", reply.TimelineEvents[0].Action.Payload.ID)
}

func TestParseReply_DegradesOnPlainProse(t *testing.T) {
	raw := "I had trouble understanding that, could you repeat it?"
	reply := ParseReply(raw)
	assert.True(t, reply.Degraded)
	assert.Equal(t, raw, reply.SpeechResponse)
	assert.Empty(t, reply.TimelineEvents)
	assert.False(t, reply.EndChat)
}

func TestParseReply_DegradesOnPartialStructure(t *testing.T) {
	// Missing end_chat entirely - must not guess a default.
	raw := `{"speech_response":"Hi","timeline_events":[]}`
	reply := ParseReply(raw)
	assert.True(t, reply.Degraded)
	assert.Equal(t, raw, reply.SpeechResponse)
}
