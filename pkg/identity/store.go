// Package identity maps commit author identities to GitHub handles.
package identity

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	prcerrors "thoreinstein.com/prc/pkg/errors"
)

// Store persists email -> handle mappings.
type Store interface {
	Lookup(email string) (string, bool)
	Save(email, handle string) error
}

// handleFile is the on-disk layout of a FileStore.
type handleFile struct {
	Handles map[string]string `toml:"handles"`
}

// FileStore is a Store backed by a TOML file. The file is read once when the
// store is opened; every Save rewrites it.
type FileStore struct {
	path    string
	mu      sync.Mutex
	handles map[string]string
}

// OpenFileStore loads path. A missing file yields an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, handles: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, prcerrors.NewConfigErrorWithCause("identity.store_path", "failed to read handle store", err)
	}

	var f handleFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, prcerrors.NewConfigErrorWithCause("identity.store_path", "failed to parse handle store "+path, err)
	}
	for email, handle := range f.Handles {
		s.handles[normalizeEmail(email)] = handle
	}
	return s, nil
}

// Lookup implements Store.
func (s *FileStore) Lookup(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[normalizeEmail(email)]
	return h, ok
}

// Save implements Store.
func (s *FileStore) Save(email, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handles[normalizeEmail(email)] = handle

	data, err := toml.Marshal(handleFile{Handles: s.handles})
	if err != nil {
		return prcerrors.Wrap(err, "failed to encode handle store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return prcerrors.Wrap(err, "failed to create handle store directory")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return prcerrors.Wrap(err, "failed to write handle store")
	}
	return nil
}

// MemoryStore is an in-memory Store.
type MemoryStore map[string]string

// Lookup implements Store.
func (m MemoryStore) Lookup(email string) (string, bool) {
	h, ok := m[normalizeEmail(email)]
	return h, ok
}

// Save implements Store.
func (m MemoryStore) Save(email, handle string) error {
	m[normalizeEmail(email)] = handle
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
