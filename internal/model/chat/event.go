package chat

// End reasons reported in the session_end event.
const (
	ReasonTimeout = "timeout"
	ReasonManual  = "manual"
)

// Metadata summarizes a finished conversation.
type Metadata struct {
	MessageCount int    `json:"messageCount"`
	Duration     string `json:"duration"`
	StartedAt    string `json:"startedAt"`
	EndedAt      string `json:"endedAt"`
}

// MessageEvent is the payload posted to the chat webhook for each user turn.
type MessageEvent struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// StartEvent is posted to the session-start webhook once lead capture
// completes.
type StartEvent struct {
	SessionID        string `json:"sessionId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	HubSpotContactID string `json:"hubspotContactId,omitempty"`
	Timestamp        string `json:"timestamp"`
	Source           string `json:"source"`
}

// EndEvent is posted to the session-end webhook when a conversation
// terminates, carrying the full transcript.
type EndEvent struct {
	EventType        string    `json:"eventType"`
	SessionID        string    `json:"sessionId"`
	LeadData         *LeadData `json:"leadData"`
	Reason           string    `json:"reason"`
	Timestamp        string    `json:"timestamp"`
	Conversation     []Message `json:"conversation"`
	ConversationText string    `json:"conversationText"`
	Metadata         Metadata  `json:"metadata"`
	Source           string    `json:"source"`
}
