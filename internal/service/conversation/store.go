package conversation

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cosentus/cose-chat/backend/internal/logging"
	"github.com/cosentus/cose-chat/backend/internal/model/chat"
	"github.com/cosentus/cose-chat/backend/internal/storage"
)

const messageKeyPrefix = "cosentus_messages_"

// Config controls welcome-message injection and transcript rendering.
type Config struct {
	WelcomeMessage string
	BotDisplayName string
	// DisplayLocation is the fixed timezone used for transcript timestamps.
	DisplayLocation *time.Location
}

// Store is the ordered, append-only message log, persisted whole per session
// under a storage key derived from the session ID.
type Store struct {
	mu     sync.Mutex
	kv     storage.Store
	cfg    Config
	cache  map[string][]chat.Message
	loaded map[string]bool
	log    *logging.Logger
}

// NewStore creates a conversation store over the given key/value storage.
func NewStore(kv storage.Store, cfg Config, log *logging.Logger) *Store {
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.UTC
	}
	return &Store{
		kv:     kv,
		cfg:    cfg,
		cache:  make(map[string][]chat.Message),
		loaded: make(map[string]bool),
		log:    log,
	}
}

// Load hydrates the persisted sequence for a session. The first load of an
// empty (or unparsable) sequence injects exactly one welcome bot message;
// repeated loads are idempotent and never duplicate it.
func (s *Store) Load(sessionID string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded[sessionID] {
		return copyMessages(s.cache[sessionID])
	}
	s.loaded[sessionID] = true

	var messages []chat.Message
	if raw, ok := s.kv.Get(messageKeyPrefix + sessionID); ok {
		if err := json.Unmarshal(raw, &messages); err != nil {
			// Corrupt history reads as empty.
			s.log.Warn().Err(err).Str("sessionId", sessionID).Msg("discarding unparsable message history")
			messages = nil
		}
	}

	if len(messages) == 0 {
		messages = []chat.Message{{
			ID:        uuid.NewString(),
			Text:      s.cfg.WelcomeMessage,
			Sender:    chat.SenderBot,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}}
		s.persistLocked(sessionID, messages)
	}

	s.cache[sessionID] = messages
	return copyMessages(messages)
}

// Append adds a message to the session log and persists the whole sequence.
// The stored message (with assigned ID and timestamp) is returned.
func (s *Store) Append(sessionID string, msg chat.Message) chat.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[sessionID] = append(s.cache[sessionID], msg)
	s.persistLocked(sessionID, s.cache[sessionID])
	return msg
}

// Messages returns the current in-memory sequence for a session.
func (s *Store) Messages(sessionID string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMessages(s.cache[sessionID])
}

func (s *Store) persistLocked(sessionID string, messages []chat.Message) {
	encoded, err := json.Marshal(messages)
	if err != nil {
		s.log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to encode message history")
		return
	}
	s.kv.Set(messageKeyPrefix+sessionID, encoded)
}

func copyMessages(messages []chat.Message) []chat.Message {
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied
}
