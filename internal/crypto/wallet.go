package crypto

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"cosigner/internal/domain"
)

const (
	// SepoliaChainID is the chain the demo wallet is labelled for.
	SepoliaChainID = 11155111
	sepoliaNetwork = "sepolia"
)

// DeriveWallet builds the wallet-equivalent identity for km: the address is the
// last 20 bytes of Keccak-256 over the public key, 0x-prefixed.
func (d *Demo) DeriveWallet(km domain.KeyMaterial) (domain.Wallet, error) {
	address, err := Address(km.PublicKey)
	if err != nil {
		return domain.Wallet{}, err
	}
	return domain.Wallet{
		Address:   address,
		PublicKey: km.PublicKey,
		KeyID:     km.KeyID,
		ChainID:   SepoliaChainID,
		Network:   sepoliaNetwork,
	}, nil
}

// Address returns the 0x-prefixed, 40 hex char address of a base64 public key.
func Address(publicKeyB64 string) (string, error) {
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", errors.Wrap(err, "decode public key")
	}
	if len(pub) == 0 {
		return "", errors.New("empty public key")
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:]), nil
}
