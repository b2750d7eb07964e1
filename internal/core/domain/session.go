package domain

type SessionEventKind string

const (
	SessionInitial   SessionEventKind = "initial_session"
	SessionSignedIn  SessionEventKind = "signed_in"
	SessionSignedOut SessionEventKind = "signed_out"
)

// SessionEvent is emitted by the auth session observer. An empty UserID
// means the session is anonymous.
type SessionEvent struct {
	Kind   SessionEventKind
	UserID string
}
