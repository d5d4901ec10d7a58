package interfaces

import domaintypes "cosigner/internal/domain/types"

// SecretStore is the device's protected key/value store. Values are opaque strings
// (base64 key shares, the device identifier). It must survive restarts and must not
// be readable by other users of the machine.
type SecretStore interface {
	// GetOrCreateDeviceID returns the install's device identifier, creating and
	// persisting one on first use. Concurrent first calls agree on one identifier.
	GetOrCreateDeviceID() (domaintypes.DeviceID, error)
	Put(key, value string) error
	Get(key string) (string, bool, error)
	Close() error
}
