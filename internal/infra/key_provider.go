package infra

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

const (
	statusKeyFile = ".key"
	statusKeySize = 32 // SQLCipher raw key
)

// ErrKeyExists is returned by StoreKey when a status key is already on disk.
// Replacing it would leave status.db unreadable.
var ErrKeyExists = errors.New("status key already exists")

// FileKeyProvider keeps the status database key next to status.db.
// The file holds the key as hex, the same form SQLCipher takes in x'...'.
type FileKeyProvider struct {
	keyPath string
}

func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: filepath.Join(dataDir, statusKeyFile)}
}

func (p *FileKeyProvider) GetKey() ([]byte, error) {
	raw, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("read status key: %w", err)
	}
	key, err := hex.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode status key %s: %w", p.keyPath, err)
	}
	if len(key) != statusKeySize {
		return nil, fmt.Errorf("status key %s: %d bytes, want %d", p.keyPath, len(key), statusKeySize)
	}
	return key, nil
}

// StoreKey writes a new key. It never replaces an existing one.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != statusKeySize {
		return fmt.Errorf("status key: %d bytes, want %d", len(key), statusKeySize)
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.OpenFile(p.keyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return ErrKeyExists
	}
	if err != nil {
		return fmt.Errorf("create status key: %w", err)
	}
	if _, err := f.WriteString(hex.EncodeToString(key)); err != nil {
		f.Close()
		os.Remove(p.keyPath)
		return fmt.Errorf("write status key: %w", err)
	}
	return f.Close()
}

func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

// Path returns the key file location.
func (p *FileKeyProvider) Path() string {
	return p.keyPath
}

// GenerateKey returns a fresh random status key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, statusKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate status key: %w", err)
	}
	return key, nil
}

// EnsureKey returns the status key, minting one when create is set.
// Readers such as `breakmon status` pass create=false and get
// ErrStatusNotFound before the daemon has ever run.
func EnsureKey(provider domain.KeyProvider, create bool) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	if !create {
		return nil, ErrStatusNotFound
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	switch err := provider.StoreKey(key); {
	case errors.Is(err, ErrKeyExists):
		// lost a race with another daemon start; use the winner's key
		return provider.GetKey()
	case err != nil:
		return nil, err
	}
	return key, nil
}

var _ domain.KeyProvider = (*FileKeyProvider)(nil)
