package store

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/domain"
)

const (
	badgerIndexCacheSize = 16 << 20
	badgerValueLogSize   = 16 << 20
	maxConflictRetries   = 3
)

// BadgerStore keeps secrets in a badger database encrypted at rest. The
// encryption key is derived from the passphrase with scrypt; its salt lives next
// to the database directory.
type BadgerStore struct {
	db  *badger.DB
	log zerolog.Logger
	mu  sync.Mutex
}

// OpenBadgerStore opens (or creates) the database at dir. A wrong passphrase
// fails here rather than on first read.
func OpenBadgerStore(dir, passphrase string, opts ...Option) (*BadgerStore, error) {
	if passphrase == "" {
		return nil, errNoPassphrase
	}
	o := buildOptions(opts)
	log := o.log.With().Str("component", "store.badger").Logger()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create keystore dir")
	}
	salt, err := loadOrCreateSalt(filepath.Clean(dir) + ".salt")
	if err != nil {
		return nil, err
	}
	key, err := o.params.key(passphrase, salt)
	if err != nil {
		return nil, errors.Wrap(err, "derive keystore key")
	}
	// badger keeps the key for data key rotation, so it is not zeroed here.
	bopts := badger.DefaultOptions(dir).
		WithEncryptionKey(key).
		WithIndexCacheSize(badgerIndexCacheSize).
		WithValueLogFileSize(badgerValueLogSize).
		WithSyncWrites(true).
		WithLogger(badgerLogger{log})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "open keystore")
	}
	return &BadgerStore{db: db, log: log}, nil
}

// GetOrCreateDeviceID reads and, if absent, writes the device id in one transaction.
func (s *BadgerStore) GetOrCreateDeviceID() (domain.DeviceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; ; attempt++ {
		var (
			id      string
			created bool
		)
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(DeviceIDKey))
			switch {
			case err == nil:
				return item.Value(func(v []byte) error {
					id = string(v)
					return nil
				})
			case errors.Is(err, badger.ErrKeyNotFound):
				id, created = uuid.NewString(), true
				return txn.Set([]byte(DeviceIDKey), []byte(id))
			default:
				return err
			}
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "device id")
		}
		if created {
			s.log.Info().Str("device_id", id).Msg("created device id")
		}
		return domain.DeviceID(id), nil
	}
}

// Put writes value under key.
func (s *BadgerStore) Put(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	return errors.Wrapf(err, "put %q", key)
}

// Get returns the value under key and whether it was present.
func (s *BadgerStore) Get(key string) (string, bool, error) {
	var (
		out string
		ok  bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = true
		return item.Value(func(v []byte) error {
			out = string(v)
			return nil
		})
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "get %q", key)
	}
	return out, ok, nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error { return s.db.Close() }

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := readFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read keystore salt")
	}
	if salt != nil {
		if len(salt) != saltBytes {
			return nil, errors.Errorf("keystore salt: want %d bytes, got %d", saltBytes, len(salt))
		}
		return salt, nil
	}
	salt = make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := writeFile(path, salt, 0o600); err != nil {
		return nil, errors.Wrap(err, "write keystore salt")
	}
	return salt, nil
}

// badgerLogger routes badger's internal logging to zerolog. Badger is chatty at
// info level, so info goes to debug.
type badgerLogger struct{ log zerolog.Logger }

func (l badgerLogger) Errorf(f string, args ...interface{})   { l.log.Error().Msg(trim(f, args)) }
func (l badgerLogger) Warningf(f string, args ...interface{}) { l.log.Warn().Msg(trim(f, args)) }
func (l badgerLogger) Infof(f string, args ...interface{})    { l.log.Debug().Msg(trim(f, args)) }
func (l badgerLogger) Debugf(f string, args ...interface{})   { l.log.Trace().Msg(trim(f, args)) }

func trim(f string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(f, args...))
}

// Compile-time assertion that BadgerStore implements domain.SecretStore.
var _ domain.SecretStore = (*BadgerStore)(nil)
