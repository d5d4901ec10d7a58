// Package crypto holds the demo key operations used by cosigner.
//
// Contents
//
//   - Keygen: a random 32-byte share, its public key and key id (Demo.Keygen)
//   - Sign: a deterministic, fixed-size (r, s, v) for a key id and message hash (Demo.Sign)
//   - Wallet derivation: a Keccak-256 address for a public key (Demo.DeriveWallet)
//   - Encoding and short fingerprints for display/logging (B64, B64URL, Fingerprint)
//
// # Notes
//
// None of this is production cryptography. Demo stands in for a threshold
// signing scheme behind domain.KeyOperations; its signatures prove nothing.
// Only the share is secret, and it comes from crypto/rand.
package crypto
