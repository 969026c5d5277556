package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/models"
)

type CacheRepository struct {
	db *sql.DB
}

func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// cacheColumns is the standard SELECT list for cache_entries
const cacheColumns = `id, entity_id, kind, strong_hash, perceptual_hash,
	storage_path, byte_size, ref_count, first_used_at, last_used_at, soft_deleted_at`

func scanCacheEntry(row interface{ Scan(dest ...interface{}) error }) (*models.CacheEntry, error) {
	entry := &models.CacheEntry{}
	err := row.Scan(
		&entry.ID, &entry.EntityID, &entry.Kind, &entry.StrongHash, &entry.PerceptualHash,
		&entry.StoragePath, &entry.ByteSize, &entry.RefCount,
		&entry.FirstUsedAt, &entry.LastUsedAt, &entry.SoftDeletedAt,
	)
	return entry, err
}

func (r *CacheRepository) Create(entry *models.CacheEntry) error {
	query := `
		INSERT INTO cache_entries (
			id, entity_id, kind, strong_hash, perceptual_hash,
			storage_path, byte_size, ref_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING first_used_at, last_used_at`

	return r.db.QueryRow(query,
		entry.ID, entry.EntityID, entry.Kind, entry.StrongHash, entry.PerceptualHash,
		entry.StoragePath, entry.ByteSize, entry.RefCount,
	).Scan(&entry.FirstUsedAt, &entry.LastUsedAt)
}

func (r *CacheRepository) GetByID(id uuid.UUID) (*models.CacheEntry, error) {
	query := `SELECT ` + cacheColumns + ` FROM cache_entries WHERE id = $1`
	entry, err := scanCacheEntry(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

func (r *CacheRepository) GetByStrongHash(hash string) (*models.CacheEntry, error) {
	query := `SELECT ` + cacheColumns + ` FROM cache_entries WHERE strong_hash = $1 LIMIT 1`
	entry, err := scanCacheEntry(r.db.QueryRow(query, hash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// ListByEntityKind returns live entries for one (entity, kind) pair. Used
// to bound the perceptual-duplicate scan for images.
func (r *CacheRepository) ListByEntityKind(entityID string, kind models.AssetKind) ([]*models.CacheEntry, error) {
	query := `SELECT ` + cacheColumns + `
		FROM cache_entries
		WHERE entity_id = $1 AND kind = $2 AND soft_deleted_at IS NULL`

	rows, err := r.db.Query(query, entityID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AddReference increments the reference count and clears any soft-delete
// marker; a re-referenced entry is no longer a GC candidate.
func (r *CacheRepository) AddReference(id uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE cache_entries
		SET ref_count = ref_count + 1, soft_deleted_at = NULL, last_used_at = now()
		WHERE id = $1`, id)
	return err
}

func (r *CacheRepository) TouchLastUsed(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE cache_entries SET last_used_at = now() WHERE id = $1`, id)
	return err
}

// Release decrements the reference count and returns the remaining count.
// At zero the soft-delete timestamp is set; physical deletion is GC's job.
func (r *CacheRepository) Release(id uuid.UUID) (int, error) {
	var remaining int
	err := r.db.QueryRow(`
		UPDATE cache_entries
		SET ref_count = ref_count - 1
		WHERE id = $1 AND ref_count > 0
		RETURNING ref_count`, id).Scan(&remaining)
	if err == sql.ErrNoRows {
		return 0, sql.ErrNoRows
	}
	if err != nil {
		return 0, err
	}
	if remaining == 0 {
		_, err = r.db.Exec(`
			UPDATE cache_entries
			SET soft_deleted_at = now()
			WHERE id = $1 AND soft_deleted_at IS NULL`, id)
	}
	return remaining, err
}

// ListExpired returns entries soft-deleted before the cutoff with no
// remaining references.
func (r *CacheRepository) ListExpired(cutoff time.Time) ([]*models.CacheEntry, error) {
	query := `SELECT ` + cacheColumns + `
		FROM cache_entries
		WHERE ref_count = 0 AND soft_deleted_at IS NOT NULL AND soft_deleted_at < $1`

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CacheEntry
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteIfUnchanged removes an entry only if its soft-delete timestamp is
// still the one observed when the GC candidate set was queried. A
// concurrent re-put clears the timestamp and the delete claims nothing.
func (r *CacheRepository) DeleteIfUnchanged(id uuid.UUID, softDeletedAt time.Time) (bool, error) {
	res, err := r.db.Exec(`
		DELETE FROM cache_entries
		WHERE id = $1 AND ref_count = 0 AND soft_deleted_at = $2`, id, softDeletedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
