package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/models"
)

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(item *models.ReviewItem) error {
	evidence := item.Evidence
	if len(evidence) == 0 {
		evidence = json.RawMessage("{}")
	}
	query := `
		INSERT INTO review_queue (id, entity_id, directory, reason, evidence)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	return r.db.QueryRow(query,
		item.ID, item.EntityID, item.Directory, item.Reason, []byte(evidence),
	).Scan(&item.CreatedAt)
}

func (r *ReviewRepository) ListUnresolved(limit int) ([]*models.ReviewItem, error) {
	rows, err := r.db.Query(`
		SELECT id, entity_id, directory, reason, evidence, created_at, resolved_at
		FROM review_queue
		WHERE resolved_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.ReviewItem
	for rows.Next() {
		item := &models.ReviewItem{}
		var evidence []byte
		if err := rows.Scan(&item.ID, &item.EntityID, &item.Directory, &item.Reason,
			&evidence, &item.CreatedAt, &item.ResolvedAt); err != nil {
			return nil, err
		}
		item.Evidence = json.RawMessage(evidence)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Resolve marks every open review item for an entity as handled; called
// when a later scan of the same directory succeeds.
func (r *ReviewRepository) Resolve(entityID string) error {
	_, err := r.db.Exec(`
		UPDATE review_queue
		SET resolved_at = now()
		WHERE entity_id = $1 AND resolved_at IS NULL`, entityID)
	return err
}

// ──────────────────── Integrity events ────────────────────

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Record(event *models.IntegrityEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	query := `
		INSERT INTO integrity_events (id, cache_entry_id, library_path, event_type, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	return r.db.QueryRow(query,
		event.ID, event.CacheEntryID, event.LibraryPath, event.EventType, event.Detail,
	).Scan(&event.CreatedAt)
}
