package store

import (
	"crypto/rand"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"cosigner/internal/util/memzero"
)

const (
	// The current supported version of the sealed blob format stored on disk.
	sealedFormatVersion = 1
	saltBytes           = 16
)

var (
	// Returned when the passphrase is incorrect or the ciphertext has been modified / corrupted.
	errWrongPassphrase = errors.New("wrong passphrase or corrupted secret")
	errNoPassphrase    = errors.New("store passphrase required")
)

// scryptParams are the tunables for scrypt key derivation.
type scryptParams struct {
	N, R, P int
}

func scryptParamsDefault() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }

func (p scryptParams) key(passphrase string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
}

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase and seals raw into a JSON blob bound to name.
func seal(passphrase, name string, raw []byte, params scryptParams) ([]byte, error) {
	var salt [saltBytes]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := params.key(passphrase, salt[:])
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; salt-bound key is unique per seal
	ct := aead.Seal(nil, nonce[:], raw, associatedData(name, salt[:]))

	return json.Marshal(blob{
		V:      sealedFormatVersion,
		Salt:   salt[:],
		N:      params.N,
		R:      params.R,
		P:      params.P,
		Cipher: ct,
	})
}

// open reverses seal. A blob sealed under another name fails like a wrong passphrase.
func open(passphrase, name string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, errors.Wrap(err, "decode sealed blob")
	}
	if bl.V > sealedFormatVersion {
		return nil, errors.Errorf("unsupported sealed blob version %d", bl.V)
	}

	key, err := scryptParams{N: bl.N, R: bl.R, P: bl.P}.key(passphrase, bl.Salt)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, associatedData(name, bl.Salt))
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}

func associatedData(name string, salt []byte) []byte {
	ad := make([]byte, 0, len(name)+len(salt))
	ad = append(ad, name...)
	return append(ad, salt...)
}
