package session

// State is the widget-facing lifecycle phase of a session.
type State int

const (
	// StateNew means no usable stored session exists yet.
	StateNew State = iota
	// StateLeadPending means a session exists but identity capture has not
	// completed.
	StateLeadPending
	// StateActive means lead data is present and the conversation accepts
	// messages.
	StateActive
	// StateEnded is terminal: the session never accepts messages or restarts
	// its timer again.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLeadPending:
		return "lead_pending"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
