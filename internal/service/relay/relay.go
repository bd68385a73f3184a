package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cosentus/cose-chat/backend/internal/logging"
	"github.com/cosentus/cose-chat/backend/internal/model/chat"
)

var (
	// ErrNotConfigured means the chat webhook URL is empty.
	ErrNotConfigured = errors.New("chatbot not configured")
	// ErrServiceUnavailable covers transport failures and non-2xx replies
	// from the chat webhook.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// emptyReplyFallback is shown when the webhook answers 200 with an empty
// body. Client AI backends are heterogeneous; the widget degrades instead of
// erroring.
const emptyReplyFallback = "I received your message! However, I'm having trouble generating a response right now. Please try again."

// Config holds the webhook endpoints and the source tag stamped on every
// outbound event.
type Config struct {
	ChatURL         string
	SessionStartURL string
	SessionEndURL   string
	Source          string
	ChatTimeout     time.Duration
	EventTimeout    time.Duration
}

// Client delivers events to the configured webhooks and normalizes chat
// replies.
type Client struct {
	cfg       Config
	chatHTTP  *http.Client
	eventHTTP *http.Client
	log       *logging.Logger
}

// NewClient builds a relay client. Zero timeouts get the defaults the
// original widget used (30s for chat, 15s for lifecycle events).
func NewClient(cfg Config, log *logging.Logger) *Client {
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = 30 * time.Second
	}
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 15 * time.Second
	}
	return &Client{
		cfg:       cfg,
		chatHTTP:  &http.Client{Timeout: cfg.ChatTimeout},
		eventHTTP: &http.Client{Timeout: cfg.EventTimeout},
		log:       log,
	}
}

// Source returns the configured source tag.
func (c *Client) Source() string { return c.cfg.Source }

// SendMessage posts one user message to the chat webhook and returns the
// normalized AI reply.
func (c *Client) SendMessage(ctx context.Context, message, sessionID string) (string, error) {
	if c.cfg.ChatURL == "" {
		return "", ErrNotConfigured
	}

	event := chat.MessageEvent{
		Message:   strings.TrimSpace(message),
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    c.cfg.Source,
	}

	status, body, err := c.post(ctx, c.chatHTTP, c.cfg.ChatURL, event)
	if err != nil {
		c.log.Error().Err(err).Str("sessionId", sessionID).Msg("chat webhook unreachable")
		return "", ErrServiceUnavailable
	}
	if status < 200 || status > 299 {
		c.log.Error().Int("status", status).Str("sessionId", sessionID).Msg("chat webhook error")
		return "", ErrServiceUnavailable
	}

	return NormalizeReply(body), nil
}

// SendSessionStart posts the session-start event. Failures are logged and
// swallowed; lifecycle delivery never blocks the visitor.
func (c *Client) SendSessionStart(ctx context.Context, event chat.StartEvent) {
	if c.cfg.SessionStartURL == "" {
		c.log.Warn().Msg("session start webhook not configured")
		return
	}
	event.Source = c.cfg.Source
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	status, _, err := c.post(ctx, c.eventHTTP, c.cfg.SessionStartURL, event)
	if err != nil {
		c.log.Error().Err(err).Str("sessionId", event.SessionID).Msg("session start webhook error")
		return
	}
	if status < 200 || status > 299 {
		c.log.Error().Int("status", status).Str("sessionId", event.SessionID).Msg("session start webhook error")
	}
}

// SendSessionEnd posts the session-end event with the full conversation.
// Best-effort, never retried.
func (c *Client) SendSessionEnd(ctx context.Context, event chat.EndEvent) {
	if c.cfg.SessionEndURL == "" {
		c.log.Warn().Msg("session end webhook not configured")
		return
	}
	event.EventType = "session_end"
	event.Source = c.cfg.Source
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	status, _, err := c.post(ctx, c.eventHTTP, c.cfg.SessionEndURL, event)
	if err != nil {
		c.log.Error().Err(err).Str("sessionId", event.SessionID).Msg("session end webhook error")
		return
	}
	if status < 200 || status > 299 {
		c.log.Error().Int("status", status).Str("sessionId", event.SessionID).Msg("session end webhook error")
	}
}

func (c *Client) post(ctx context.Context, client *http.Client, url string, payload any) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, buf.Bytes(), nil
}
