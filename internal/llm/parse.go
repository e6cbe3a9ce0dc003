package llm

import (
	"encoding/json"
	"strings"

	"github.com/omkarlalla-code/kiosk-project/internal/convo"
)

// structuredReply mirrors convo.Reply's wire shape for strict unmarshalling:
// unlike convo.Reply, its fields are pointers, so a field missing from the
// JSON stays nil and ParseReply can reject the partial structure, per
// spec §3's "either all fields parse or the reply is Degraded" rule.
type structuredReply struct {
	SpeechResponse *string                `json:"speech_response"`
	TimelineEvents *[]convo.TimelineEvent `json:"timeline_events"`
	EndChat        *bool                  `json:"end_chat"`
}

// ParseReply parses the LLM's raw text into a convo.Reply. It first strips
// any surrounding fenced-code decoration (```json ... ``` or bare ```...```),
// then attempts a strict JSON decode requiring all three fields to be
// present. On any failure, it returns a degraded reply: the raw text as
// speech, an empty timeline, and end_chat false — the model never guesses
// intent from a partial structure.
func ParseReply(raw string) convo.Reply {
	stripped := stripFence(raw)

	var sr structuredReply
	if err := json.Unmarshal([]byte(stripped), &sr); err == nil &&
		sr.SpeechResponse != nil && sr.TimelineEvents != nil && sr.EndChat != nil {
		return convo.Reply{
			SpeechResponse: *sr.SpeechResponse,
			TimelineEvents: *sr.TimelineEvents,
			EndChat:        *sr.EndChat,
		}
	}

	return convo.Reply{
		SpeechResponse: raw,
		TimelineEvents: nil,
		EndChat:        false,
		Degraded:       true,
	}
}

// stripFence removes a single leading/trailing Markdown fenced-code block
// (```json\n...\n``` or ```\n...\n```) and surrounding whitespace, if
// present. Text that isn't fenced is returned trimmed and otherwise
// untouched.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(s[:nl])
		// A bare language tag ("json") on the fence's opening line has no
		// other content; anything else means the fence didn't have a tag
		// and the first line is already part of the payload.
		if firstLine == "" || isLanguageTag(firstLine) {
			s = s[nl+1:]
		}
	}

	s = strings.TrimSuffix(strings.TrimRight(s, "\n\t "), "```")
	return strings.TrimSpace(s)
}

func isLanguageTag(s string) bool {
	switch strings.ToLower(s) {
	case "json", "js", "javascript":
		return true
	default:
		return false
	}
}
