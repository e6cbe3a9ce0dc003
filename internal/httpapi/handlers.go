package httpapi

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/omkarlalla-code/kiosk-project/internal/pipeline"
	"github.com/omkarlalla-code/kiosk-project/internal/session"
)

type startSessionRequest struct {
	KioskID string `json:"kiosk_id"`
}

type startSessionResponse struct {
	SessionID       string `json:"session_id"`
	Token           string `json:"token"`
	LiveKitURL      string `json:"livekit_url"`
	RoomName        string `json:"room_name"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// WithLiveKitURL configures the livekit_url surfaced in start_session
// responses.
func WithLiveKitURL(url string) ServerOption {
	return func(s *Server) { s.liveKitURL = url }
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeBody(r, &req); err != nil || req.KioskID == "" {
		writeError(w, http.StatusBadRequest, "missing_kiosk_id")
		return
	}

	sessionID, roomID, token, durationS, err := s.sessions.Create(req.KioskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}

	writeJSON(w, http.StatusOK, startSessionResponse{
		SessionID:       sessionID,
		Token:           token,
		LiveKitURL:      s.liveKitURL,
		RoomName:        roomID,
		DurationSeconds: durationS,
	})
}

type converseRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type converseResponse struct {
	AssistantResponse string `json:"assistant_response"`
	AudioBase64       string `json:"audio_base64"`
	ImagesScheduled   int    `json:"images_scheduled"`
	EndChat           bool   `json:"end_chat"`
	TTSError          bool   `json:"tts_error,omitempty"`
}

func (s *Server) handleConverse(w http.ResponseWriter, r *http.Request) {
	var req converseRequest
	if err := decodeBody(r, &req); err != nil || req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_required_fields")
		return
	}

	result, err := s.pipe.Converse(r.Context(), req.SessionID, req.Message)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, pipeline.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found")
		return
	case errors.Is(err, pipeline.ErrUpstreamLLM):
		writeError(w, http.StatusBadGateway, "upstream_llm")
		return
	case errors.Is(err, pipeline.ErrTurnInProgress):
		writeError(w, http.StatusConflict, "turn_in_progress")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}

	writeJSON(w, http.StatusOK, converseResponse{
		AssistantResponse: result.AssistantText,
		AudioBase64:       base64.StdEncoding.EncodeToString(result.AudioBytes),
		ImagesScheduled:   result.ScheduledEvents,
		EndChat:           result.EndChat,
		TTSError:          result.TTSError,
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.End(id, session.ReasonManual); err != nil {
		writeError(w, http.StatusNotFound, "session_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.sessions.Lookup(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session_not_found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	TotalSessions  int    `json:"total_sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ActiveSessions: s.sessions.ActiveCount(),
		TotalSessions:  s.sessions.TotalCount(),
	})
}
