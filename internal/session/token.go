package session

import (
	"time"

	"github.com/livekit/protocol/auth"
)

// TokenMinter mints short-lived room-join capability tokens. Abstracted so
// tests can substitute a fake instead of needing real LiveKit credentials.
type TokenMinter interface {
	Mint(identity, roomName string, ttl time.Duration) (string, error)
}

// LiveKitMinter mints LiveKit-compatible JWT capability tokens via
// github.com/livekit/protocol/auth, scoped to RoomJoin on a single room for
// the session's identity only — the narrow per-session capability token
// named in spec's Non-goals (no broader multi-tenant authorization).
type LiveKitMinter struct {
	APIKey    string
	APISecret string
}

// NewLiveKitMinter returns a TokenMinter backed by the given LiveKit API
// key/secret pair.
func NewLiveKitMinter(apiKey, apiSecret string) *LiveKitMinter {
	return &LiveKitMinter{APIKey: apiKey, APISecret: apiSecret}
}

// Mint implements TokenMinter.
func (m *LiveKitMinter) Mint(identity, roomName string, ttl time.Duration) (string, error) {
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	token := auth.NewAccessToken(m.APIKey, m.APISecret).
		SetIdentity(identity).
		SetValidFor(ttl).
		AddGrant(grant)
	return token.ToJWT()
}
