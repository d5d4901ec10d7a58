package types

// PairingAction is the marker a scanned payload carries when it is a pairing request.
type PairingAction string

const (
	PairingActionPair    PairingAction = "pair"
	PairingActionPairing PairingAction = "pairing"
)

// Valid reports whether a is one of the accepted pairing markers.
func (a PairingAction) Valid() bool {
	return a == PairingActionPair || a == PairingActionPairing
}

// PairingPayload is the structured content of a pairing QR code. It lives for one
// pairing attempt and is never persisted.
type PairingPayload struct {
	SessionID     SessionID     `json:"session_id"`
	Nonce         string        `json:"nonce"`
	Action        PairingAction `json:"action"`
	ServerURL     string        `json:"server_url,omitempty"`
	BrowserOrigin string        `json:"browser_origin,omitempty"`

	// API redirects the wire client's base URL when present.
	API string `json:"api,omitempty"`
}
