package logger

import "context"

// contextKey is a private type for context keys to avoid collisions with
// keys set by other packages.
type contextKey string

const (
	// ContextKeySessionID identifies the kiosk session a log line belongs to.
	ContextKeySessionID contextKey = "session_id"
	// ContextKeyTurnID identifies an individual conversation turn.
	ContextKeyTurnID contextKey = "turn_id"
	// ContextKeyRoomID identifies the datachannel room.
	ContextKeyRoomID contextKey = "room_id"
)

// WithSessionID returns a context carrying the session ID for logging.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithTurnID returns a context carrying the turn ID for logging.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, ContextKeyTurnID, turnID)
}

// WithRoomID returns a context carrying the room ID for logging.
func WithRoomID(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, ContextKeyRoomID, roomID)
}

// FromContext extracts the known logging attributes present in ctx as
// slog-compatible key-value pairs, in the order session_id, turn_id,
// room_id. Missing values are omitted.
func FromContext(ctx context.Context) []any {
	var attrs []any
	if v, ok := ctx.Value(ContextKeySessionID).(string); ok && v != "" {
		attrs = append(attrs, "session_id", v)
	}
	if v, ok := ctx.Value(ContextKeyTurnID).(string); ok && v != "" {
		attrs = append(attrs, "turn_id", v)
	}
	if v, ok := ctx.Value(ContextKeyRoomID).(string); ok && v != "" {
		attrs = append(attrs, "room_id", v)
	}
	return attrs
}

// InfoContext logs an informational message, prepending attributes found in ctx.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.Info(msg, append(FromContext(ctx), args...)...)
}

// WarnContext logs a warning message, prepending attributes found in ctx.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.Warn(msg, append(FromContext(ctx), args...)...)
}

// ErrorContext logs an error message, prepending attributes found in ctx.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.Error(msg, append(FromContext(ctx), args...)...)
}
