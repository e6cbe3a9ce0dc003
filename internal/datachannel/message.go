// Package datachannel implements the Datachannel Router: reliable, ordered
// broadcast of JSON Control Messages from server to every client in a room,
// adapted from the teacher's WebSocket hub.
package datachannel

// Tag identifies a Control Message's kind, per spec §3.
type Tag string

const (
	TagImgPreload  Tag = "img_preload"
	TagImgShow     Tag = "img_show"
	TagEndChat     Tag = "end_chat"
	TagEndOfStream Tag = "end_of_stream"
)

// Message is a tagged record written to the datachannel. Only the fields
// relevant to Tag are populated; json marshaling omits zero values via
// omitempty so each wire message carries just its tag's required fields.
type Message struct {
	Tag Tag `json:"tag"`

	// img_preload, img_show
	ID         string `json:"id,omitempty"`
	CDNURL     string `json:"cdn_url,omitempty"`
	PlayoutTS  int64  `json:"playout_ts,omitempty"`
	TTLMS      int64  `json:"ttl_ms,omitempty"`
	Transition string `json:"transition,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Caption    string `json:"caption,omitempty"`

	// end_of_stream
	SessionID string `json:"session_id,omitempty"`
}

// ImgPreload builds an img_preload Control Message.
func ImgPreload(id, cdnURL string, playoutTS, ttlMS int64) Message {
	return Message{Tag: TagImgPreload, ID: id, CDNURL: cdnURL, PlayoutTS: playoutTS, TTLMS: ttlMS}
}

// ImgShow builds an img_show Control Message.
func ImgShow(id string, playoutTS int64, transition string, durationMS int64, caption string) Message {
	return Message{Tag: TagImgShow, ID: id, PlayoutTS: playoutTS, Transition: transition, DurationMS: durationMS, Caption: caption}
}

// EndChat builds an end_chat Control Message (no payload beyond the tag).
func EndChat() Message {
	return Message{Tag: TagEndChat}
}

// EndOfStream builds an end_of_stream Control Message.
func EndOfStream(sessionID string) Message {
	return Message{Tag: TagEndOfStream, SessionID: sessionID}
}
