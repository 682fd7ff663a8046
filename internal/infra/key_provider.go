package infra

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mosmello93/focus-timer/internal/domain"
)

const (
	storeKeyName = "store.key"
	storeKeyLen  = 32 // SQLCipher raw key
)

// ErrInvalidStoreKey is returned when store.key exists but does not hold a
// usable key. The database cannot be opened without it, so it is never
// replaced automatically.
var ErrInvalidStoreKey = errors.New("invalid store key")

// StoreKeyFile holds the passphrase of focustimer.db as base64 text in
// store.key, in the same data directory as the database.
type StoreKeyFile struct {
	path string
}

// NewStoreKeyFile returns the key file of the encrypted store in dataDir.
func NewStoreKeyFile(dataDir string) *StoreKeyFile {
	return &StoreKeyFile{path: filepath.Join(dataDir, storeKeyName)}
}

// Path returns the key file location.
func (f *StoreKeyFile) Path() string {
	return f.path
}

// KeyExists reports whether store.key is present, valid or not.
func (f *StoreKeyFile) KeyExists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// GetKey reads store.key. Surrounding whitespace, such as the newline an
// editor appends, is ignored.
func (f *StoreKeyFile) GetKey() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return decodeStoreKey(data)
}

// StoreKey writes a new store.key readable by the owner only. An existing
// key is never overwritten: that would orphan the database it encrypts.
func (f *StoreKeyFile) StoreKey(key []byte) error {
	if len(key) != storeKeyLen {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidStoreKey, len(key), storeKeyLen)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", f.path, err)
	}
	_, werr := file.WriteString(base64.StdEncoding.EncodeToString(key) + "\n")
	if cerr := file.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(f.path)
		return fmt.Errorf("failed to write %s: %w", f.path, werr)
	}
	return nil
}

func decodeStoreKey(data []byte) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", ErrInvalidStoreKey)
	}
	if len(key) != storeKeyLen {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidStoreKey, len(key), storeKeyLen)
	}
	return key, nil
}

// GenerateKey returns a random store key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, storeKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate store key: %w", err)
	}
	return key, nil
}

// EnsureKey returns the store key, creating it on first run. When another
// process creates the key first, that key is used.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		if errors.Is(err, os.ErrExist) {
			return provider.GetKey()
		}
		return nil, err
	}
	return key, nil
}

var _ domain.KeyProvider = (*StoreKeyFile)(nil)
