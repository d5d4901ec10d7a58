package store

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/domain"
)

// Well-known keys.
const (
	DeviceIDKey    = "device:id"
	keySharePrefix = "keyshare:"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// KeyShareKey is the store key holding the share for id.
func KeyShareKey(id domain.KeyID) string { return keySharePrefix + id.String() }

// SaveKeyShare persists a base64 share under its key id.
func SaveKeyShare(s domain.SecretStore, id domain.KeyID, shareB64 string) error {
	if id == "" {
		return errors.New("save key share: empty key id")
	}
	return errors.Wrapf(s.Put(KeyShareKey(id), shareB64), "save key share %s", id)
}

// LoadKeyShare returns the share stored for id and whether it exists.
func LoadKeyShare(s domain.SecretStore, id domain.KeyID) (string, bool, error) {
	v, ok, err := s.Get(KeyShareKey(id))
	if err != nil {
		return "", false, errors.Wrapf(err, "load key share %s", id)
	}
	return v, ok, nil
}

// Option tunes a store.
type Option func(*options)

type options struct {
	params scryptParams
	log    zerolog.Logger
}

func buildOptions(opts []Option) options {
	o := options{params: scryptParamsDefault(), log: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithScryptParams overrides the scrypt cost parameters (tests use cheap ones).
func WithScryptParams(n, r, p int) Option {
	return func(o *options) { o.params = scryptParams{N: n, R: r, P: p} }
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Open opens the named backend rooted at home.
func Open(backend, home, passphrase string, opts ...Option) (domain.SecretStore, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(home, "secrets"), passphrase, opts...)
	case BackendBadger:
		return OpenBadgerStore(filepath.Join(home, "keystore"), passphrase, opts...)
	default:
		return nil, errors.Errorf("unknown store backend %q", backend)
	}
}
