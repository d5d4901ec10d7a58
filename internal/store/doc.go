// Package store provides the device's secure key store.
//
// It contains two implementations of domain.SecretStore:
//   - FileStore: one scrypt + ChaCha20-Poly1305 sealed file per key, written
//     atomically with mode 0600.
//   - BadgerStore: a badger database with at-rest encryption keyed from the
//     passphrase.
//
// All methods are concurrency-safe via internal locking. Device id creation is
// serialised so concurrent first calls agree on one identifier. Stored files
// typically live under the user's configured home directory.
package store
