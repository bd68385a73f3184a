package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cosentus/cose-chat/backend/internal/logging"
	"github.com/cosentus/cose-chat/backend/internal/model/chat"
	"github.com/cosentus/cose-chat/backend/internal/service/conversation"
	"github.com/cosentus/cose-chat/backend/internal/storage"
)

const (
	sessionKeyPrefix = "cosentus_chat_session"
	defaultTimeout   = 30 * time.Minute
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session has ended")
	ErrLeadRequired    = errors.New("lead capture required")
	ErrLeadAlreadySet  = errors.New("lead data already captured")
	ErrSendInFlight    = errors.New("a message is already being processed")
	ErrInvalidName     = errors.New("first and last name are required")
	ErrInvalidEmail    = errors.New("invalid email address")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Relay delivers chat messages and lifecycle events to the configured
// webhooks. Lifecycle delivery is fire-and-forget.
type Relay interface {
	SendMessage(ctx context.Context, message, sessionID string) (string, error)
	SendSessionStart(ctx context.Context, event chat.StartEvent)
	SendSessionEnd(ctx context.Context, event chat.EndEvent)
}

// ContactSearcher resolves a CRM contact ID by email. Used only to enrich
// lead data; failures leave the ID empty.
type ContactSearcher interface {
	SearchContact(ctx context.Context, email string) (string, error)
}

// Config tunes the session lifecycle.
type Config struct {
	// Timeout is the inactivity window after which an active session
	// auto-terminates. Defaults to 30 minutes.
	Timeout time.Duration
}

// runtime is the volatile, per-session companion to the stored record: the
// single inactivity timer and the in-flight send guard.
type runtime struct {
	mu        sync.Mutex
	clientKey string
	timer     *time.Timer
	timerGen  uint64
	busy      bool
}

// Manager is the single source of truth for session lifecycle: creation,
// resumption, expiry and termination. Stored records live in the key/value
// store, one per widget instance, overwritten (never removed) when replaced.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*runtime // session ID -> runtime

	kv      storage.Store
	conv    *conversation.Store
	relay   Relay
	crm     ContactSearcher
	timeout time.Duration
	log     *logging.Logger
}

// NewManager wires the session lifecycle engine.
func NewManager(kv storage.Store, conv *conversation.Store, relay Relay, crm ContactSearcher, cfg Config, log *logging.Logger) *Manager {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Manager{
		sessions: make(map[string]*runtime),
		kv:       kv,
		conv:     conv,
		relay:    relay,
		crm:      crm,
		timeout:  timeout,
		log:      log,
	}
}

// Ensure loads the stored session for a widget instance, resuming it when it
// is still fresh and active, and creating a replacement otherwise. Corrupt
// stored data reads as absent. The returned messages are only populated for
// sessions resumed into the active state.
func (m *Manager) Ensure(clientKey string) (chat.Session, State, []chat.Message) {
	stored, ok := m.loadRecord(clientKey)
	now := time.Now()

	fresh := ok && now.UnixMilli()-stored.LastActivityTime < m.timeout.Milliseconds()
	if !ok || !stored.ConversationActive || !fresh {
		if ok {
			// The replaced session can never be addressed again; drop its
			// runtime so the index holds one entry per widget instance.
			m.unregister(stored.SessionID)
		}
		return m.createSession(clientKey), StateLeadPending, nil
	}

	rt := m.register(stored.SessionID, clientKey)

	if stored.LeadData == nil {
		// Fresh but abandoned mid lead-capture: re-prompt for identity.
		return stored, StateLeadPending, nil
	}

	rt.mu.Lock()
	m.scheduleLocked(rt, stored.SessionID)
	rt.mu.Unlock()

	messages := m.conv.Load(stored.SessionID)
	return stored, StateActive, messages
}

// CaptureLead validates and attaches visitor identity, transitioning the
// session from lead-pending to active. The CRM lookup and the session-start
// event are both best-effort.
func (m *Manager) CaptureLead(ctx context.Context, sessionID string, lead chat.LeadData) (chat.Session, error) {
	lead.FirstName = strings.TrimSpace(lead.FirstName)
	lead.LastName = strings.TrimSpace(lead.LastName)
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))

	if lead.FirstName == "" || lead.LastName == "" {
		return chat.Session{}, ErrInvalidName
	}
	if !emailPattern.MatchString(lead.Email) {
		return chat.Session{}, ErrInvalidEmail
	}

	rt := m.lookup(sessionID)
	if rt == nil {
		return chat.Session{}, ErrSessionNotFound
	}

	if m.crm != nil {
		if contactID, err := m.crm.SearchContact(ctx, lead.Email); err == nil {
			lead.HubSpotContactID = contactID
		} else {
			m.log.Debug().Err(err).Str("email", lead.Email).Msg("contact search did not resolve an id")
		}
	}

	rt.mu.Lock()
	record, ok := m.loadRecord(rt.clientKey)
	if !ok || record.SessionID != sessionID {
		rt.mu.Unlock()
		return chat.Session{}, ErrSessionNotFound
	}
	if !record.ConversationActive {
		rt.mu.Unlock()
		return chat.Session{}, ErrSessionEnded
	}
	if record.LeadData != nil {
		rt.mu.Unlock()
		return chat.Session{}, ErrLeadAlreadySet
	}

	record.LeadData = &lead
	record.LastActivityTime = time.Now().UnixMilli()
	m.persistRecord(rt.clientKey, record)
	m.scheduleLocked(rt, sessionID)
	rt.mu.Unlock()

	m.conv.Load(sessionID)

	m.relay.SendSessionStart(ctx, chat.StartEvent{
		SessionID:        sessionID,
		FirstName:        lead.FirstName,
		LastName:         lead.LastName,
		Email:            lead.Email,
		HubSpotContactID: lead.HubSpotContactID,
	})

	m.log.Info().Str("sessionId", sessionID).Msg("session activated")
	return record, nil
}

// Touch refreshes the activity timestamp and reschedules the inactivity
// timer. Ended sessions are terminal and reject the ping.
func (m *Manager) Touch(sessionID string) error {
	rt := m.lookup(sessionID)
	if rt == nil {
		return ErrSessionNotFound
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return m.touchLocked(rt, sessionID)
}

func (m *Manager) touchLocked(rt *runtime, sessionID string) error {
	record, ok := m.loadRecord(rt.clientKey)
	if !ok || record.SessionID != sessionID {
		return ErrSessionNotFound
	}
	if !record.ConversationActive {
		return ErrSessionEnded
	}

	record.LastActivityTime = time.Now().UnixMilli()
	m.persistRecord(rt.clientKey, record)
	if record.LeadData != nil {
		m.scheduleLocked(rt, sessionID)
	}
	return nil
}

// Send relays one user message to the AI webhook and appends both sides of
// the exchange to the conversation. Only one send may be in flight per
// session.
func (m *Manager) Send(ctx context.Context, sessionID, text string) (string, error) {
	rt := m.lookup(sessionID)
	if rt == nil {
		return "", ErrSessionNotFound
	}

	rt.mu.Lock()
	record, ok := m.loadRecord(rt.clientKey)
	if !ok || record.SessionID != sessionID {
		rt.mu.Unlock()
		return "", ErrSessionNotFound
	}
	if !record.ConversationActive {
		rt.mu.Unlock()
		return "", ErrSessionEnded
	}
	if record.LeadData == nil {
		rt.mu.Unlock()
		return "", ErrLeadRequired
	}
	if rt.busy {
		rt.mu.Unlock()
		return "", ErrSendInFlight
	}
	rt.busy = true

	m.conv.Append(sessionID, chat.Message{Text: strings.TrimSpace(text), Sender: chat.SenderUser})
	if err := m.touchLocked(rt, sessionID); err != nil {
		rt.busy = false
		rt.mu.Unlock()
		return "", err
	}
	rt.mu.Unlock()

	reply, err := m.relay.SendMessage(ctx, text, sessionID)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.busy = false
	if err != nil {
		return "", err
	}

	// The inactivity timer may have fired while the request was in flight;
	// an ended session accepts no further messages.
	if record, ok := m.loadRecord(rt.clientKey); !ok || record.SessionID != sessionID || !record.ConversationActive {
		return "", ErrSessionEnded
	}

	m.conv.Append(sessionID, chat.Message{Text: reply, Sender: chat.SenderBot})
	return reply, nil
}

// End terminates the session for the given reason. It attempts delivery of
// the session-end event with the full conversation and computed metadata,
// then marks the session ended and persists it regardless of the delivery
// outcome. Ending an already-ended session is a no-op.
func (m *Manager) End(ctx context.Context, sessionID, reason string) error {
	rt := m.lookup(sessionID)
	if rt == nil {
		return ErrSessionNotFound
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return m.endLocked(ctx, rt, sessionID, reason)
}

// endLocked performs the termination under rt.mu.
func (m *Manager) endLocked(ctx context.Context, rt *runtime, sessionID, reason string) error {
	record, ok := m.loadRecord(rt.clientKey)
	if !ok || record.SessionID != sessionID {
		return ErrSessionNotFound
	}
	if !record.ConversationActive {
		return nil
	}

	if rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}

	messages := m.conv.Messages(sessionID)
	meta := buildMetadata(messages, time.Now())

	m.relay.SendSessionEnd(ctx, chat.EndEvent{
		SessionID:        sessionID,
		LeadData:         record.LeadData,
		Reason:           reason,
		Conversation:     messages,
		ConversationText: m.conv.FormatTranscript(messages, meta, reason),
		Metadata:         meta,
	})

	record.ConversationActive = false
	m.persistRecord(rt.clientKey, record)

	m.log.Info().Str("sessionId", sessionID).Str("reason", reason).Msg("session ended")
	return nil
}

// Shutdown cancels all pending inactivity timers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rt := range m.sessions {
		rt.mu.Lock()
		if rt.timer != nil {
			rt.timer.Stop()
			rt.timer = nil
		}
		rt.mu.Unlock()
	}
}

func (m *Manager) createSession(clientKey string) chat.Session {
	record := chat.Session{
		SessionID:          newSessionID(),
		LastActivityTime:   time.Now().UnixMilli(),
		ConversationActive: true,
	}
	m.persistRecord(clientKey, record)
	m.register(record.SessionID, clientKey)
	m.log.Info().Str("sessionId", record.SessionID).Msg("session created")
	return record
}

// scheduleLocked (re)arms the single inactivity timer for a session. Every
// rescheduling bumps the timer generation, which invalidates any firing that
// is already past Stop and waiting on rt.mu. The caller holds rt.mu.
func (m *Manager) scheduleLocked(rt *runtime, sessionID string) {
	if rt.timer != nil {
		rt.timer.Stop()
	}
	rt.timerGen++
	gen := rt.timerGen
	rt.timer = time.AfterFunc(m.timeout, func() {
		m.expire(sessionID, gen)
	})
}

// expire is the inactivity timer callback. A stale generation means activity
// arrived between the firing and this callback acquiring the lock; the
// session stays alive.
func (m *Manager) expire(sessionID string, gen uint64) {
	rt := m.lookup(sessionID)
	if rt == nil {
		return
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if gen != rt.timerGen {
		return
	}
	if err := m.endLocked(context.Background(), rt, sessionID, chat.ReasonTimeout); err != nil {
		m.log.Warn().Err(err).Str("sessionId", sessionID).Msg("inactivity timeout could not end session")
	}
}

func (m *Manager) register(sessionID, clientKey string) *runtime {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.sessions[sessionID]; ok {
		return rt
	}
	rt := &runtime{clientKey: clientKey}
	m.sessions[sessionID] = rt
	return rt
}

func (m *Manager) unregister(sessionID string) {
	m.mu.Lock()
	rt := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if rt == nil {
		return
	}
	rt.mu.Lock()
	if rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}
	rt.mu.Unlock()
}

func (m *Manager) lookup(sessionID string) *runtime {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

func (m *Manager) loadRecord(clientKey string) (chat.Session, bool) {
	raw, ok := m.kv.Get(recordKey(clientKey))
	if !ok {
		return chat.Session{}, false
	}
	var record chat.Session
	if err := json.Unmarshal(raw, &record); err != nil || record.SessionID == "" {
		// Corrupt stored data is treated identically to no session.
		m.log.Warn().Err(err).Str("clientKey", clientKey).Msg("discarding unparsable session record")
		return chat.Session{}, false
	}
	return record, true
}

func (m *Manager) persistRecord(clientKey string, record chat.Session) {
	encoded, err := json.Marshal(record)
	if err != nil {
		m.log.Error().Err(err).Str("sessionId", record.SessionID).Msg("failed to encode session record")
		return
	}
	m.kv.Set(recordKey(clientKey), encoded)
}

func recordKey(clientKey string) string {
	if clientKey == "" {
		return sessionKeyPrefix
	}
	return sessionKeyPrefix + "_" + clientKey
}

func buildMetadata(messages []chat.Message, endedAt time.Time) chat.Metadata {
	startedAt := endedAt
	minutes := 0
	if len(messages) > 0 {
		if first, err := time.Parse(time.RFC3339, messages[0].Timestamp); err == nil {
			startedAt = first
			minutes = int(endedAt.Sub(first).Round(time.Minute) / time.Minute)
		}
	}
	return chat.Metadata{
		MessageCount: len(messages),
		Duration:     fmt.Sprintf("%d minutes", minutes),
		StartedAt:    startedAt.UTC().Format(time.RFC3339),
		EndedAt:      endedAt.UTC().Format(time.RFC3339),
	}
}

const sessionIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newSessionID mirrors the widget's opaque ID format: timestamp plus a short
// random suffix.
func newSessionID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = sessionIDAlphabet[rand.Intn(len(sessionIDAlphabet))]
	}
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix)
}
