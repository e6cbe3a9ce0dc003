// Package convo holds the conversation domain types shared by the LLM
// adapter, image resolver, conversation pipeline, and datachannel router:
// messages, history, the structured LLM reply, and timeline events.
package convo

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation history.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History is an append-only, ordered sequence of turns for one session.
// The first entry, when present, is always the persona system prompt.
type History struct {
	messages []Message
}

// NewHistory returns a History seeded with the given persona system prompt.
func NewHistory(personaPrompt string) *History {
	h := &History{}
	if personaPrompt != "" {
		h.messages = append(h.messages, Message{Role: RoleSystem, Text: personaPrompt})
	}
	return h
}

// Append adds a turn to the end of the history.
func (h *History) Append(role Role, text string) {
	h.messages = append(h.messages, Message{Role: role, Text: text})
}

// Messages returns a copy of the ordered messages, safe for the caller to
// range over without racing further appends.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of turns recorded, including the persona prompt.
func (h *History) Len() int {
	return len(h.messages)
}

// ActionType enumerates the kinds of timeline actions a TimelineEvent can
// carry. PRELOAD_IMAGE is currently the only defined type.
type ActionType string

// ActionPreloadImage is the sole timeline action type defined by the spec.
const ActionPreloadImage ActionType = "PRELOAD_IMAGE"

// ImageRef is the abstract, LLM-produced reference to an image: an
// identifier plus optional hints, resolved by the Image Resolver into a
// concrete ImageDescriptor.
type ImageRef struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
}

// Action is a tagged timeline action. Only PRELOAD_IMAGE is defined.
type Action struct {
	Type    ActionType `json:"type"`
	Payload ImageRef   `json:"payload"`
}

// TimelineEvent schedules an Action at an offset from speech playback start.
type TimelineEvent struct {
	TimeOffsetMS int64  `json:"time_offset_ms"`
	Action       Action `json:"action"`
}

// Reply is the LLM's response to one user turn: either a well-formed
// structured reply (parsed fields populated, Degraded false) or a degraded
// reply (raw prose, empty timeline, Degraded true) when structured parsing
// failed. Modeling this as one struct with a Degraded flag, rather than a
// Go interface sum type, keeps callers from having to type-switch for the
// overwhelmingly common case of just wanting SpeechResponse.
type Reply struct {
	SpeechResponse string          `json:"speech_response"`
	TimelineEvents []TimelineEvent `json:"timeline_events"`
	EndChat        bool            `json:"end_chat"`
	Degraded       bool            `json:"-"`
}
