package types

// AuthResult is the orchestrator's answer to a phone authentication.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Token  string `json:"token,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// ClaimRequest binds a device to a pairing session.
type ClaimRequest struct {
	SessionID SessionID `json:"sessionId"`
	Nonce     string    `json:"nonce"`
	DeviceID  DeviceID  `json:"deviceId"`
}

// ClaimResult is the claim_session response. Some servers report BOUND directly,
// others only acknowledge and leave binding to be observed via the status endpoint.
type ClaimResult struct {
	OK       bool         `json:"ok"`
	Status   SessionState `json:"status,omitempty"`
	DeviceID DeviceID     `json:"deviceId,omitempty"`
}
