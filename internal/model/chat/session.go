package chat

// Session identifies one visitor's engagement, from lead capture through
// termination. The JSON shape matches the record the widget keeps in
// browser storage.
type Session struct {
	SessionID          string    `json:"sessionId"`
	LastActivityTime   int64     `json:"lastActivityTime"`
	LeadData           *LeadData `json:"leadData,omitempty"`
	ConversationActive bool      `json:"conversationActive"`
}
