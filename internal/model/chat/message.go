package chat

// Sender values for Message.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is one exchanged utterance, stored append-only per session.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}
