package cache

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/fingerprint"
	"github.com/mediakeep/mediakeep/internal/fsutil"
	"github.com/mediakeep/mediakeep/internal/models"
)

var (
	// ErrNotFound means the index has no entry for the requested ID.
	ErrNotFound = errors.New("cache: entry not found")
	// ErrTooLarge means the asset exceeds the configured size ceiling.
	ErrTooLarge = errors.New("cache: asset exceeds size ceiling")
)

// CorruptionError means the index has an entry but the blob behind it
// is missing or its bytes no longer match the recorded strong hash.
// Callers must treat it differently from ErrNotFound: the index said
// yes and the disk said no.
type CorruptionError struct {
	EntryID   uuid.UUID
	Path      string
	EventType models.IntegrityEventType
	Detail    string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("cache: corrupt entry %s (%s): %s", e.EntryID, e.EventType, e.Detail)
}

func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// Index is the persistent side of the store. CacheRepository implements
// it over Postgres; tests use an in-memory map.
type Index interface {
	Create(entry *models.CacheEntry) error
	GetByID(id uuid.UUID) (*models.CacheEntry, error)
	GetByStrongHash(hash string) (*models.CacheEntry, error)
	ListByEntityKind(entityID string, kind models.AssetKind) ([]*models.CacheEntry, error)
	AddReference(id uuid.UUID) error
	TouchLastUsed(id uuid.UUID) error
	Release(id uuid.UUID) (int, error)
	ListExpired(cutoff time.Time) ([]*models.CacheEntry, error)
	DeleteIfUnchanged(id uuid.UUID, softDeletedAt time.Time) (bool, error)
}

// Store is the content-addressable asset cache. Blobs live under root
// in two-character shard directories named by strong-hash prefix; the
// index carries identity, reference counts and lifecycle state.
type Store struct {
	root             string
	index            Index
	maxAssetBytes    int64
	phashMaxDistance int
}

func NewStore(root string, index Index, maxAssetBytes int64, phashMaxDistance int) *Store {
	return &Store{
		root:             root,
		index:            index,
		maxAssetBytes:    maxAssetBytes,
		phashMaxDistance: phashMaxDistance,
	}
}

// Put stores an in-memory payload for (entity, kind). Byte-identical
// content dedupes globally on the strong hash; images additionally
// dedupe against near-identical variants already cached for the same
// entity and kind. Either way the winning entry gains a reference.
// The size ceiling guards artwork and sidecars; video kinds are exempt.
func (s *Store) Put(entityID string, kind models.AssetKind, ext string, data []byte) (*models.CacheEntry, error) {
	if s.maxAssetBytes > 0 && !kind.IsVideo() && int64(len(data)) > s.maxAssetBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), s.maxAssetBytes)
	}

	strong := fingerprint.StrongHashBytes(data)
	if entry, err := s.reuseExisting(strong, entityID, kind, data); entry != nil || err != nil {
		return entry, err
	}

	var phash *string
	if kind.IsImage() {
		if p, err := fingerprint.PerceptualHashBytes(data); err == nil {
			phash = &p
		} else {
			log.Printf("Cache: perceptual hash failed for %s asset: %v", kind, err)
		}
	}

	entry := s.newEntry(entityID, kind, strong, phash, ext, int64(len(data)))
	shard, name := filepath.Split(entry.StoragePath)
	if err := fsutil.WriteFileAtomic(filepath.Join(s.root, shard), name, data, 0o644); err != nil {
		return nil, fmt.Errorf("write blob: %w", err)
	}
	if err := s.index.Create(entry); err != nil {
		os.Remove(filepath.Join(s.root, entry.StoragePath))
		return nil, err
	}
	log.Printf("Cache: stored %s asset %s (%d bytes)", kind, entry.ID, entry.ByteSize)
	return entry, nil
}

// PutFile stores a file by path without loading it into memory, for
// main videos and other large assets. Image near-duplicate matching
// still reads the file once for the perceptual hash.
func (s *Store) PutFile(entityID string, kind models.AssetKind, srcPath string) (*models.CacheEntry, error) {
	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, err
	}
	if s.maxAssetBytes > 0 && !kind.IsVideo() && info.Size() > s.maxAssetBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, info.Size(), s.maxAssetBytes)
	}

	strong, err := fingerprint.StrongHashFile(srcPath)
	if err != nil {
		return nil, err
	}

	var imageBytes []byte
	if kind.IsImage() {
		if imageBytes, err = os.ReadFile(srcPath); err != nil {
			return nil, err
		}
	}
	if entry, err := s.reuseExisting(strong, entityID, kind, imageBytes); entry != nil || err != nil {
		return entry, err
	}

	var phash *string
	if kind.IsImage() {
		if p, err := fingerprint.PerceptualHashBytes(imageBytes); err == nil {
			phash = &p
		} else {
			log.Printf("Cache: perceptual hash failed for %s: %v", srcPath, err)
		}
	}

	entry := s.newEntry(entityID, kind, strong, phash, filepath.Ext(srcPath), info.Size())
	shard, name := filepath.Split(entry.StoragePath)
	if err := fsutil.CopyFileAtomic(srcPath, filepath.Join(s.root, shard), name); err != nil {
		return nil, fmt.Errorf("copy blob: %w", err)
	}
	if err := s.index.Create(entry); err != nil {
		os.Remove(filepath.Join(s.root, entry.StoragePath))
		return nil, err
	}
	log.Printf("Cache: stored %s asset %s (%d bytes)", kind, entry.ID, entry.ByteSize)
	return entry, nil
}

// reuseExisting returns an already-cached entry that can absorb the new
// payload: an exact strong-hash match anywhere, or for images a
// near-duplicate within the same (entity, kind). The imageBytes slice
// may be nil for non-image kinds.
func (s *Store) reuseExisting(strong, entityID string, kind models.AssetKind, imageBytes []byte) (*models.CacheEntry, error) {
	existing, err := s.index.GetByStrongHash(strong)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.index.AddReference(existing.ID); err != nil {
			return nil, err
		}
		log.Printf("Cache: dedup hit on strong hash for entry %s", existing.ID)
		return s.index.GetByID(existing.ID)
	}

	if !kind.IsImage() || len(imageBytes) == 0 {
		return nil, nil
	}
	phash, err := fingerprint.PerceptualHashBytes(imageBytes)
	if err != nil {
		return nil, nil
	}
	siblings, err := s.index.ListByEntityKind(entityID, kind)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib.PerceptualHash == nil {
			continue
		}
		if fingerprint.IsNearDuplicate(phash, *sib.PerceptualHash, s.phashMaxDistance) {
			if err := s.index.AddReference(sib.ID); err != nil {
				return nil, err
			}
			log.Printf("Cache: near-duplicate %s image folded into entry %s", kind, sib.ID)
			return s.index.GetByID(sib.ID)
		}
	}
	return nil, nil
}

func (s *Store) newEntry(entityID string, kind models.AssetKind, strong string, phash *string, ext string, size int64) *models.CacheEntry {
	id := uuid.New()
	return &models.CacheEntry{
		ID:             id,
		EntityID:       entityID,
		Kind:           kind,
		StrongHash:     strong,
		PerceptualHash: phash,
		StoragePath:    filepath.Join(strong[:2], id.String()+ext),
		ByteSize:       size,
		RefCount:       1,
	}
}

// Get returns the entry and its verified bytes. A missing index row is
// ErrNotFound; a missing or drifted blob is a CorruptionError.
func (s *Store) Get(id uuid.UUID) (*models.CacheEntry, []byte, error) {
	entry, err := s.index.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if entry == nil {
		return nil, nil, ErrNotFound
	}

	path := filepath.Join(s.root, entry.StoragePath)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return entry, nil, &CorruptionError{
			EntryID: entry.ID, Path: path,
			EventType: models.EventBlobMissing,
			Detail:    "blob file missing from cache directory",
		}
	}
	if err != nil {
		return entry, nil, err
	}
	if got := fingerprint.StrongHashBytes(data); got != entry.StrongHash {
		return entry, nil, &CorruptionError{
			EntryID: entry.ID, Path: path,
			EventType: models.EventHashMismatch,
			Detail:    fmt.Sprintf("blob hash %s does not match indexed %s", got[:12], entry.StrongHash[:12]),
		}
	}

	if err := s.index.TouchLastUsed(entry.ID); err != nil {
		log.Printf("Cache: touch failed for %s: %v", entry.ID, err)
	}
	return entry, data, nil
}

// Lookup returns the index entry without touching the blob.
func (s *Store) Lookup(id uuid.UUID) (*models.CacheEntry, error) {
	entry, err := s.index.GetByID(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// BlobPath returns the absolute path of an entry's blob, for callers
// that stream instead of loading into memory.
func (s *Store) BlobPath(entry *models.CacheEntry) string {
	return filepath.Join(s.root, entry.StoragePath)
}

// VerifyEntry re-hashes an entry's blob against the index.
func (s *Store) VerifyEntry(entry *models.CacheEntry) error {
	path := filepath.Join(s.root, entry.StoragePath)
	got, err := fingerprint.StrongHashFile(path)
	if os.IsNotExist(err) {
		return &CorruptionError{
			EntryID: entry.ID, Path: path,
			EventType: models.EventBlobMissing,
			Detail:    "blob file missing from cache directory",
		}
	}
	if err != nil {
		return err
	}
	if got != entry.StrongHash {
		return &CorruptionError{
			EntryID: entry.ID, Path: path,
			EventType: models.EventHashMismatch,
			Detail:    fmt.Sprintf("blob hash %s does not match indexed %s", got[:12], entry.StrongHash[:12]),
		}
	}
	return nil
}

// Release drops one reference. The entry and blob stay on disk until
// the retention window elapses and GC collects them.
func (s *Store) Release(id uuid.UUID) error {
	remaining, err := s.index.Release(id)
	if err != nil {
		return err
	}
	if remaining == 0 {
		log.Printf("Cache: entry %s reached zero references, soft-deleted", id)
	}
	return nil
}

// GarbageCollect deletes entries that have sat soft-deleted for longer
// than the retention window. The index row goes first under a
// compare-and-delete on the observed soft-delete timestamp, so an entry
// revived by a concurrent put is left alone; the blob follows only
// after the row is gone. Returns the number of entries collected.
func (s *Store) GarbageCollect(retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	expired, err := s.index.ListExpired(cutoff)
	if err != nil {
		return 0, err
	}

	collected := 0
	for _, entry := range expired {
		if entry.SoftDeletedAt == nil {
			continue
		}
		deleted, err := s.index.DeleteIfUnchanged(entry.ID, *entry.SoftDeletedAt)
		if err != nil {
			return collected, err
		}
		if !deleted {
			log.Printf("Cache: GC skipped %s, entry changed since candidate scan", entry.ID)
			continue
		}
		path := filepath.Join(s.root, entry.StoragePath)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Cache: GC failed to remove blob %s: %v", path, err)
		}
		collected++
	}
	if collected > 0 {
		log.Printf("Cache: GC collected %d expired entries", collected)
	}
	return collected, nil
}
