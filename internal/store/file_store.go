package store

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"cosigner/internal/domain"
)

// FileStore keeps each secret in its own sealed file under dir.
type FileStore struct {
	dir        string
	passphrase string
	params     scryptParams
	log        zerolog.Logger
	mu         sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir, creating it with mode 0700.
func NewFileStore(dir, passphrase string, opts ...Option) (*FileStore, error) {
	if passphrase == "" {
		return nil, errNoPassphrase
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create secrets dir")
	}
	o := buildOptions(opts)
	return &FileStore{
		dir:        dir,
		passphrase: passphrase,
		params:     o.params,
		log:        o.log.With().Str("component", "store.file").Logger(),
	}, nil
}

// GetOrCreateDeviceID returns the persisted device id, generating one on first use.
func (s *FileStore) GetOrCreateDeviceID() (domain.DeviceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.get(DeviceIDKey)
	if err != nil {
		return "", err
	}
	if ok {
		return domain.DeviceID(id), nil
	}
	id = uuid.NewString()
	if err := s.put(DeviceIDKey, id); err != nil {
		return "", err
	}
	s.log.Info().Str("device_id", id).Msg("created device id")
	return domain.DeviceID(id), nil
}

// Put seals value and writes it under key, replacing any previous value.
func (s *FileStore) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(key, value)
}

// Get returns the value under key and whether it was present.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key)
}

// Close is a no-op; every write is already durable.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) put(key, value string) error {
	b, err := seal(s.passphrase, key, []byte(value), s.params)
	if err != nil {
		return errors.Wrapf(err, "seal %q", key)
	}
	return errors.Wrapf(writeFile(s.path(key), b, 0o600), "write %q", key)
}

func (s *FileStore) get(key string) (string, bool, error) {
	b, err := readFile(s.path(key))
	if err != nil {
		return "", false, errors.Wrapf(err, "read %q", key)
	}
	if b == nil {
		return "", false, nil
	}
	raw, err := open(s.passphrase, key, b)
	if err != nil {
		return "", false, errors.Wrapf(err, "open %q", key)
	}
	return string(raw), true, nil
}

// path names the file for key by digest so keys never reach the file system verbatim.
func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".enc")
}

// Compile-time assertion that FileStore implements domain.SecretStore.
var _ domain.SecretStore = (*FileStore)(nil)
