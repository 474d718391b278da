// Package blob provides the stores that publish processed level archives
// and thumbnails under stable public URLs.
package blob

import (
	"context"
	"strings"
	"sync"

	"zeepdrone/internal/drone"
)

// MemoryStore is an in-memory implementation of the BlobStore interface.
// It keeps all uploaded objects in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	baseURL string
	keys    Keys
	objects map[string][]byte // key -> object data
	mu      sync.RWMutex
}

// Keys derives object keys from level ids. Both prefixes are joined to the
// id with "/" and must not contain a trailing slash.
type Keys struct {
	LevelsPrefix     string
	ThumbnailsPrefix string
}

// LevelKey returns the object key for a level archive.
func (k Keys) LevelKey(id string) string {
	return k.LevelsPrefix + "/" + id + ".zip"
}

// ThumbnailKey returns the object key for a thumbnail.
func (k Keys) ThumbnailKey(id string) string {
	return k.ThumbnailsPrefix + "/" + id + ".jpg"
}

// NewMemoryStore creates a new in-memory store. Uploaded objects report
// URLs under baseURL.
func NewMemoryStore(baseURL string, keys Keys) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		keys:    keys,
		objects: make(map[string][]byte),
	}
}

// UploadLevel stores a level archive and returns its public URL.
func (m *MemoryStore) UploadLevel(ctx context.Context, id string, data []byte) (string, error) {
	return m.put(m.keys.LevelKey(id), data)
}

// UploadThumbnail stores a thumbnail image and returns its public URL.
func (m *MemoryStore) UploadThumbnail(ctx context.Context, id string, data []byte) (string, error) {
	return m.put(m.keys.ThumbnailKey(id), data)
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(ctx context.Context) error {
	return nil
}

// Object returns a stored object by key. Used by tests.
func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	return data, ok
}

func (m *MemoryStore) put(key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: re-uploading the same key overwrites
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = stored
	return m.baseURL + "/" + key, nil
}

// Compile-time check that MemoryStore implements drone.BlobStore
var _ drone.BlobStore = (*MemoryStore)(nil)
