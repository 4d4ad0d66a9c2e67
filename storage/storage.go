// Package storage defines the two small persisted-state interfaces
// the core reads/writes through (spec.md §6): a Blob store for
// attachment content, and an Id-mapping table recording source-id to
// target-id correspondence for one migration run. Neither is owned by
// this package long-term — a real deployment backs them with
// Postgres/Redis/an object store; the in-memory implementations here
// exist for tests and for small, single-process runs.
package storage

import (
	"context"
	"sync"

	"github.com/heymumford/skidbladnir/apierrors"
)

// BlobStore holds attachment content addressed by an opaque key.
type BlobStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// IDMappingTable records the source-id to target-id correspondence
// produced while loading one migration run's entities into a target
// provider. The table itself is owned by the caller's migration-status
// record (spec.md §3); this interface is just the shape the core
// writes through.
type IDMappingTable interface {
	Put(ctx context.Context, sourceID, targetID string) error
	Get(ctx context.Context, sourceID string) (string, bool, error)
	Iterate(ctx context.Context) (map[string]string, error)
}

// memoryBlob is an in-memory BlobStore, keyed by caller-supplied key.
type memoryBlob struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlobEntry
}

type memoryBlobEntry struct {
	content     []byte
	contentType string
}

// NewMemoryBlobStore builds an in-memory BlobStore.
func NewMemoryBlobStore() BlobStore {
	return &memoryBlob{blobs: make(map[string]memoryBlobEntry)}
}

func (m *memoryBlob) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	if key == "" {
		return "", apierrors.New("storage", apierrors.Validation, "blob key must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(content))
	copy(cp, content)
	m.blobs[key] = memoryBlobEntry{content: cp, contentType: contentType}
	return key, nil
}

func (m *memoryBlob) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.blobs[key]
	if !ok {
		return nil, apierrors.New("storage", apierrors.NotFound, "no blob with that key")
	}
	cp := make([]byte, len(entry.content))
	copy(cp, entry.content)
	return cp, nil
}

func (m *memoryBlob) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

// memoryIDMapping is an in-memory IDMappingTable for one migration run.
type memoryIDMapping struct {
	mu       sync.RWMutex
	mappings map[string]string
}

// NewMemoryIDMappingTable builds an in-memory IDMappingTable.
func NewMemoryIDMappingTable() IDMappingTable {
	return &memoryIDMapping{mappings: make(map[string]string)}
}

func (m *memoryIDMapping) Put(ctx context.Context, sourceID, targetID string) error {
	if sourceID == "" {
		return apierrors.New("storage", apierrors.Validation, "source id must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings[sourceID] = targetID
	return nil
}

func (m *memoryIDMapping) Get(ctx context.Context, sourceID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	targetID, ok := m.mappings[sourceID]
	return targetID, ok, nil
}

func (m *memoryIDMapping) Iterate(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.mappings))
	for k, v := range m.mappings {
		out[k] = v
	}
	return out, nil
}
