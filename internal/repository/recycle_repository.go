package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/models"
)

type RecycleRepository struct {
	db *sql.DB
}

func NewRecycleRepository(db *sql.DB) *RecycleRepository {
	return &RecycleRepository{db: db}
}

func (r *RecycleRepository) Create(record *models.RecycleRecord) error {
	query := `
		INSERT INTO recycle_records (id, entity_id, original_path, recycle_path, restorable)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING recycled_at`
	return r.db.QueryRow(query,
		record.ID, record.EntityID, record.OriginalPath, record.RecyclePath, record.Restorable,
	).Scan(&record.RecycledAt)
}

func (r *RecycleRepository) GetByID(id uuid.UUID) (*models.RecycleRecord, error) {
	record := &models.RecycleRecord{}
	err := r.db.QueryRow(`
		SELECT id, entity_id, original_path, recycle_path, recycled_at, restorable, purged_at
		FROM recycle_records WHERE id = $1`, id).Scan(
		&record.ID, &record.EntityID, &record.OriginalPath, &record.RecyclePath,
		&record.RecycledAt, &record.Restorable, &record.PurgedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *RecycleRepository) ListByEntity(entityID string) ([]*models.RecycleRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, entity_id, original_path, recycle_path, recycled_at, restorable, purged_at
		FROM recycle_records
		WHERE entity_id = $1
		ORDER BY recycled_at DESC`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.RecycleRecord
	for rows.Next() {
		record := &models.RecycleRecord{}
		if err := rows.Scan(&record.ID, &record.EntityID, &record.OriginalPath,
			&record.RecyclePath, &record.RecycledAt, &record.Restorable, &record.PurgedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *RecycleRepository) MarkPurged(id uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE recycle_records
		SET restorable = FALSE, purged_at = now()
		WHERE id = $1`, id)
	return err
}
