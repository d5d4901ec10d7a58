package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"cosigner/internal/domain"
)

// fingerprintBytes is how much of the digest a fingerprint shows.
const fingerprintBytes = 8

// Fingerprint returns a short display form binding a key id to its public key.
// Two keys only share a fingerprint if both the id and the public key match.
//
//	fingerprint = hex(SHA-256(keyId ":" publicKey)[:8]) in 4-char groups joined by ':'
func Fingerprint(keyID domain.KeyID, publicKey string) string {
	sum := sha256.Sum256([]byte(keyID.String() + ":" + publicKey))
	h := hex.EncodeToString(sum[:fingerprintBytes])
	groups := make([]string, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return strings.Join(groups, ":")
}
