package types

// SessionState is the server-side lifecycle of a pairing session.
//
// Valid transitions are PENDING -> BOUND -> COMPLETE and PENDING -> EXPIRED.
type SessionState string

const (
	SessionPending  SessionState = "PENDING"
	SessionBound    SessionState = "BOUND"
	SessionComplete SessionState = "COMPLETE"
	SessionExpired  SessionState = "EXPIRED"
)

// Terminal reports whether no further transition can happen from s.
func (s SessionState) Terminal() bool {
	return s == SessionComplete || s == SessionExpired
}

// SessionStatus is the orchestrator's view of a pairing session. Read-only on the device.
type SessionStatus struct {
	SessionID SessionID    `json:"sessionId"`
	Status    SessionState `json:"status"`
	DeviceID  DeviceID     `json:"deviceId,omitempty"`
	CreatedAt string       `json:"createdAt"`
	ExpiresAt string       `json:"expiresAt"`
	BoundAt   string       `json:"boundAt,omitempty"`
}
