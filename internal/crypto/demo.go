package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"

	"github.com/pkg/errors"

	"cosigner/internal/domain"
	"cosigner/internal/util/memzero"
)

const (
	// ShareBytes is the size of a demo key share.
	ShareBytes = 32
	// RecoveryID is the fixed v of every demo signature.
	RecoveryID = 27
)

// Demo implements domain.KeyOperations with hash-based placeholder routines.
type Demo struct {
	// Rand is the share source; nil means crypto/rand.
	Rand io.Reader
}

// NewDemo returns Demo reading shares from crypto/rand.
func NewDemo() *Demo { return &Demo{} }

// Keygen draws a fresh share and derives its public key and key id.
func (d *Demo) Keygen() (domain.KeyMaterial, error) {
	r := d.Rand
	if r == nil {
		r = rand.Reader
	}
	share := make([]byte, ShareBytes)
	defer memzero.Zero(share)
	if _, err := io.ReadFull(r, share); err != nil {
		return domain.KeyMaterial{}, errors.Wrap(err, "read share")
	}
	pub, keyID := DerivePublic(share)
	return domain.KeyMaterial{
		KeyID:     keyID,
		PublicKey: pub,
		Share:     B64(share),
	}, nil
}

// DerivePublic maps a share to its public key (base64) and key id. It is a pure
// function of the share.
//
//	publicKey = SHA-256(hex(share))
//	keyId     = base64url(SHA-256(base64(publicKey)))
func DerivePublic(share []byte) (publicKey string, keyID domain.KeyID) {
	pubSum := sha256.Sum256([]byte(hex.EncodeToString(share)))
	publicKey = B64(pubSum[:])
	idSum := sha256.Sum256([]byte(publicKey))
	return publicKey, domain.KeyID(B64URL(idSum[:]))
}

// ZeroS is the s component of every demo signature: 32 zero bytes in hex.
var ZeroS = strings.Repeat("0", 64)

// Sign returns a deterministic signature over keyID and the lowercased hash.
// r is SHA-256(keyId ":" hash) in hex, s is ZeroS and v is RecoveryID.
func (d *Demo) Sign(keyID domain.KeyID, msgHashHex string) (domain.Signature, error) {
	if keyID == "" {
		return domain.Signature{}, errors.New("sign: empty key id")
	}
	input := []byte(keyID.String() + ":" + strings.ToLower(msgHashHex))
	r := sha256.Sum256(input)
	return domain.Signature{
		R: hex.EncodeToString(r[:]),
		S: ZeroS,
		V: RecoveryID,
	}, nil
}

// ShareFromB64 decodes a stored share, checking its size.
func ShareFromB64(b64 string) ([]byte, error) {
	share, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.Wrap(err, "decode share")
	}
	if len(share) != ShareBytes {
		memzero.Zero(share)
		return nil, errors.Errorf("share: want %d bytes, got %d", ShareBytes, len(share))
	}
	return share, nil
}

// CheckShare reports whether b64 is a well-formed stored share. The decoded
// bytes are wiped before it returns.
func CheckShare(b64 string) error {
	share, err := ShareFromB64(b64)
	if err != nil {
		return err
	}
	memzero.Zero(share)
	return nil
}

// Compile-time assertion that Demo implements domain.KeyOperations.
var _ domain.KeyOperations = (*Demo)(nil)
