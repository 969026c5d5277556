package cache

import (
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/models"
)

// MemIndex is an in-memory Index. It backs tests and one-off tooling
// that runs the store without Postgres; the daemon always uses the
// repository implementation.
type MemIndex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*models.CacheEntry
}

func NewMemIndex() *MemIndex {
	return &MemIndex{entries: make(map[uuid.UUID]*models.CacheEntry)}
}

func (m *MemIndex) Create(entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.FirstUsedAt = time.Now()
	entry.LastUsedAt = entry.FirstUsedAt
	clone := *entry
	m.entries[entry.ID] = &clone
	return nil
}

func (m *MemIndex) GetByID(id uuid.UUID) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	clone := *entry
	return &clone, nil
}

func (m *MemIndex) GetByStrongHash(hash string) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		if entry.StrongHash == hash {
			clone := *entry
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *MemIndex) ListByEntityKind(entityID string, kind models.AssetKind) ([]*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CacheEntry
	for _, entry := range m.entries {
		if entry.EntityID == entityID && entry.Kind == kind && entry.SoftDeletedAt == nil {
			clone := *entry
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MemIndex) AddReference(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[id]; ok {
		entry.RefCount++
		entry.SoftDeletedAt = nil
		entry.LastUsedAt = time.Now()
	}
	return nil
}

func (m *MemIndex) TouchLastUsed(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[id]; ok {
		entry.LastUsedAt = time.Now()
	}
	return nil
}

// Release mirrors the repository contract: an unknown id, or an entry
// already at zero references, reports sql.ErrNoRows.
func (m *MemIndex) Release(id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok || entry.RefCount == 0 {
		return 0, sql.ErrNoRows
	}
	entry.RefCount--
	if entry.RefCount == 0 {
		now := time.Now()
		entry.SoftDeletedAt = &now
	}
	return entry.RefCount, nil
}

func (m *MemIndex) ListExpired(cutoff time.Time) ([]*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CacheEntry
	for _, entry := range m.entries {
		if entry.RefCount == 0 && entry.SoftDeletedAt != nil && entry.SoftDeletedAt.Before(cutoff) {
			clone := *entry
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MemIndex) DeleteIfUnchanged(id uuid.UUID, softDeletedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok || entry.RefCount != 0 || entry.SoftDeletedAt == nil || !entry.SoftDeletedAt.Equal(softDeletedAt) {
		return false, nil
	}
	delete(m.entries, id)
	return true, nil
}
