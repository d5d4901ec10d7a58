package types

// DeviceID identifies this install. Generated once and never changed.
type DeviceID string

// String returns the string form of the device identifier.
func (id DeviceID) String() string { return string(id) }

// SessionID identifies a pairing session on the orchestrator.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }

// KeyID identifies a key share held on this device.
type KeyID string

// String returns the string form of the key identifier.
func (id KeyID) String() string { return string(id) }

// ActionID identifies an orchestrator action.
type ActionID string

// String returns the string form of the action identifier.
func (id ActionID) String() string { return string(id) }
