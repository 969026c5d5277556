package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/models"
)

type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

func (r *LibraryRepository) CreatePublish(record *models.PublishRecord) error {
	query := `
		INSERT INTO publish_records (id, entity_id, library_dir)
		VALUES ($1, $2, $3)
		RETURNING created_at`
	return r.db.QueryRow(query, record.ID, record.EntityID, record.LibraryDir).Scan(&record.CreatedAt)
}

func (r *LibraryRepository) CreateEntry(entry *models.LibraryEntry) error {
	query := `
		INSERT INTO library_entries (id, publish_id, cache_entry_id, library_path, published_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING published_at`
	return r.db.QueryRow(query,
		entry.ID, entry.PublishID, entry.CacheEntryID, entry.LibraryPath, entry.PublishedHash,
	).Scan(&entry.PublishedAt)
}

// GetLatestPublish returns the newest completed publish record for an
// entity, or nil when the entity has never been fully published.
// Records without completed_at are abandoned partial passes and never
// count as "latest".
func (r *LibraryRepository) GetLatestPublish(entityID string) (*models.PublishRecord, error) {
	record := &models.PublishRecord{}
	err := r.db.QueryRow(`
		SELECT id, entity_id, library_dir, created_at, completed_at
		FROM publish_records
		WHERE entity_id = $1 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT 1`, entityID).Scan(&record.ID, &record.EntityID, &record.LibraryDir,
		&record.CreatedAt, &record.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CompletePublish marks a publish record as fully written. Until this
// runs the record is invisible to GetLatestPublish.
func (r *LibraryRepository) CompletePublish(id uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE publish_records
		SET completed_at = now()
		WHERE id = $1 AND completed_at IS NULL`, id)
	return err
}

func (r *LibraryRepository) ListEntriesByPublish(publishID uuid.UUID) ([]*models.LibraryEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, publish_id, cache_entry_id, library_path, published_hash, published_at
		FROM library_entries
		WHERE publish_id = $1
		ORDER BY library_path`, publishID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LibraryEntry
	for rows.Next() {
		entry := &models.LibraryEntry{}
		if err := rows.Scan(&entry.ID, &entry.PublishID, &entry.CacheEntryID,
			&entry.LibraryPath, &entry.PublishedHash, &entry.PublishedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// TouchEntry refreshes the publish hash and timestamp after a restore
// rewrote the library file from cache.
func (r *LibraryRepository) TouchEntry(id uuid.UUID, publishedHash string) error {
	_, err := r.db.Exec(`
		UPDATE library_entries
		SET published_hash = $2, published_at = now()
		WHERE id = $1`, id, publishedHash)
	return err
}

// ListPublishedEntities returns every entity with at least one
// completed publish record, for maintenance sweeps.
func (r *LibraryRepository) ListPublishedEntities() ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT entity_id FROM publish_records
		WHERE completed_at IS NOT NULL
		ORDER BY entity_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
