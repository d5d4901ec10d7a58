package types

import "encoding/json"

// KeyMaterial is the output of a keygen. Share never leaves the device.
type KeyMaterial struct {
	KeyID     KeyID  `json:"keyId"`
	PublicKey string `json:"publicKey"` // base64
	Share     string `json:"-"`         // base64
}

// Signature is an (r, s, v) triple; r and s are 64 hex characters.
type Signature struct {
	R string `json:"r"`
	S string `json:"s"`
	V int    `json:"v"`
}

// Wallet is the public, address-style identity derived from a key.
type Wallet struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
	KeyID     KeyID  `json:"keyId"`
	ChainID   int64  `json:"chainId"`
	Network   string `json:"network"`
}

// KeygenReport tells the orchestrator a key was generated. Exactly one of ActionID
// (action-driven keygen) and SessionID (pairing-driven keygen) is set.
type KeygenReport struct {
	ActionID  ActionID  `json:"actionId,omitempty"`
	SessionID SessionID `json:"sessionId,omitempty"`
	KeyID     KeyID     `json:"keyId"`
	PublicKey string    `json:"publicKey"`
	Address   string    `json:"address,omitempty"`
	ChainID   int64     `json:"chainId,omitempty"`
	Network   string    `json:"network,omitempty"`
}

// KeygenRecord is the server-defined record returned by keygen_done. Fields the
// device does not interpret are kept verbatim in KeygenData.
type KeygenRecord struct {
	OK         bool            `json:"ok,omitempty"`
	SessionID  SessionID       `json:"sessionId,omitempty"`
	Status     string          `json:"status,omitempty"`
	KeygenData json.RawMessage `json:"keygenData,omitempty"`
}

// SignReport delivers a signature for a sign intent.
type SignReport struct {
	IntentID  string    `json:"intentId"`
	Signature Signature `json:"signature"`
}
