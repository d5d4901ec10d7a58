package interfaces

import (
	"context"

	domaintypes "cosigner/internal/domain/types"
)

// TokenProvider supplies short-lived identity tokens for the signed-in user.
// It fails (or returns "") when nobody is signed in.
type TokenProvider interface {
	IDToken(ctx context.Context) (string, error)
}

// KeyOperations creates key shares and signs with them. The demo implementation
// is a placeholder for a threshold-signature scheme.
type KeyOperations interface {
	Keygen() (domaintypes.KeyMaterial, error)
	Sign(keyID domaintypes.KeyID, msgHashHex string) (domaintypes.Signature, error)
	DeriveWallet(km domaintypes.KeyMaterial) (domaintypes.Wallet, error)
}
