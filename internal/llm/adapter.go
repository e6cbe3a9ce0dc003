// Package llm provides the LLM Adapter: sending conversation history and a
// user turn to the language model and parsing its structured reply.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/omkarlalla-code/kiosk-project/internal/convo"
	"github.com/omkarlalla-code/kiosk-project/internal/logger"
)

// Adapter sends a conversation turn to the language model and returns its
// raw text reply (which may or may not be well-formed structured JSON —
// parsing is a separate concern, see ParseReply).
type Adapter interface {
	Send(ctx context.Context, sessionID string, history *convo.History) (rawText string, err error)
}

// Pooled transport defaults, mirroring the connection-pooling settings
// production LLM/TTS HTTP clients use to avoid socket exhaustion under load.
const (
	defaultMaxIdleConns        = 1000
	defaultMaxIdleConnsPerHost = 100
	defaultIdleConnTimeout     = 90 * time.Second
	defaultDialTimeout         = 30 * time.Second
	defaultDialKeepAlive       = 30 * time.Second
)

// NewPooledTransport returns an *http.Transport configured for high-throughput
// outbound calls to the LLM and TTS collaborators.
func NewPooledTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: defaultDialKeepAlive,
		}).DialContext,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
}

// HTTPAdapter implements Adapter against the outbound contract in spec §6:
// POST /chat with {session_id, message, stream: false}, expecting a
// `response` field containing the (possibly fenced) structured JSON text.
type HTTPAdapter struct {
	endpoint string
	client   *http.Client
}

// NewHTTPAdapter creates an HTTPAdapter targeting endpoint (e.g.
// "http://llm.internal/chat") with the given call timeout.
func NewHTTPAdapter(endpoint string, timeout time.Duration) *HTTPAdapter {
	return &HTTPAdapter{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: NewPooledTransport(),
		},
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Stream    bool   `json:"stream"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Send implements Adapter. It posts the most recent user turn (history's
// last message) and returns the raw `response` field from the LLM, which
// the caller parses with ParseReply.
func (a *HTTPAdapter) Send(ctx context.Context, sessionID string, history *convo.History) (string, error) {
	msgs := history.Messages()
	if len(msgs) == 0 {
		return "", fmt.Errorf("llm: empty history")
	}
	userText := msgs[len(msgs)-1].Text

	body, err := json.Marshal(chatRequest{SessionID: sessionID, Message: userText, Stream: false})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.UpstreamCall("llm", a.endpoint, elapsed.Milliseconds(), false, "error", err.Error())
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.UpstreamCall("llm", a.endpoint, elapsed.Milliseconds(), false, "status", resp.StatusCode)
		return "", fmt.Errorf("llm: status %d: %s", resp.StatusCode, logger.Redact(string(data)))
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}

	logger.UpstreamCall("llm", a.endpoint, elapsed.Milliseconds(), true)
	return out.Response, nil
}
