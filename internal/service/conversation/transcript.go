package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/cosentus/cose-chat/backend/internal/model/chat"
)

// Layouts for the human-readable transcript, rendered in the fixed display
// timezone. One-way export artifact, never re-parsed.
const (
	headerTimeLayout  = "1/2/2006, 3:04:05 PM"
	messageTimeLayout = "3:04:05 PM"
)

// FormatTranscript renders the conversation as readable text for the CRM:
// a header block with the end reason and computed metadata, then one entry
// per message.
func (s *Store) FormatTranscript(messages []chat.Message, meta chat.Metadata, reason string) string {
	var b strings.Builder

	b.WriteString("=== CHAT CONVERSATION ===\n\n")
	if reason == chat.ReasonTimeout {
		b.WriteString("Session ended: Due to inactivity\n")
	} else {
		b.WriteString("Session ended: Manually closed\n")
	}
	fmt.Fprintf(&b, "Duration: %s\n", orUnknown(meta.Duration))
	fmt.Fprintf(&b, "Messages: %d\n", meta.MessageCount)
	fmt.Fprintf(&b, "Started: %s\n", s.displayTime(meta.StartedAt, headerTimeLayout))
	fmt.Fprintf(&b, "Ended: %s\n\n", s.displayTime(meta.EndedAt, headerTimeLayout))
	b.WriteString("--- CONVERSATION ---\n\n")

	for _, msg := range messages {
		sender := s.cfg.BotDisplayName
		if msg.Sender == chat.SenderUser {
			sender = "CUSTOMER"
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", s.messageTime(msg.Timestamp), sender, msg.Text)
	}

	return b.String()
}

func (s *Store) displayTime(iso, layout string) string {
	parsed, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return "Unknown"
	}
	return parsed.In(s.cfg.DisplayLocation).Format(layout)
}

func (s *Store) messageTime(iso string) string {
	parsed, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return ""
	}
	return parsed.In(s.cfg.DisplayLocation).Format(messageTimeLayout)
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}
