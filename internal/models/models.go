package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

// AssetKind names the semantic role a cached file plays for a media item.
type AssetKind string

const (
	AssetMainVideo AssetKind = "main_video"
	AssetTrailer   AssetKind = "trailer"
	AssetPoster    AssetKind = "poster"
	AssetFanart    AssetKind = "fanart"
	AssetBanner    AssetKind = "banner"
	AssetClearLogo AssetKind = "clearlogo"
	AssetClearArt  AssetKind = "clearart"
	AssetDiscArt   AssetKind = "discart"
	AssetThumb     AssetKind = "thumb"
	AssetKeyart    AssetKind = "keyart"
	AssetNFO       AssetKind = "nfo"
	AssetSubtitle  AssetKind = "subtitle"

	// AssetExtra marks excluded videos that stay in their directory.
	// Never cached, never published.
	AssetExtra AssetKind = "extra"
)

// IsImage reports whether the kind is a picture asset. Image kinds get a
// perceptual hash on top of the strong hash.
func (k AssetKind) IsImage() bool {
	switch k {
	case AssetPoster, AssetFanart, AssetBanner, AssetClearLogo,
		AssetClearArt, AssetDiscArt, AssetThumb, AssetKeyart:
		return true
	}
	return false
}

// IsVideo reports whether the kind is a video asset. Video assets are
// exempt from the artwork size ceiling.
func (k AssetKind) IsVideo() bool {
	return k == AssetMainVideo || k == AssetTrailer
}

type IntegrityEventType string

const (
	EventHashMismatch IntegrityEventType = "hash_mismatch"
	EventBlobMissing  IntegrityEventType = "blob_missing"
)

// ──────────────────── Cache ────────────────────

// CacheEntry is one physical blob in the content-addressable cache.
// StoragePath and the bytes behind it are immutable after creation;
// only the reference count, usage timestamps and the soft-delete marker
// ever change.
type CacheEntry struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	EntityID       string     `json:"entity_id" db:"entity_id"`
	Kind           AssetKind  `json:"kind" db:"kind"`
	StrongHash     string     `json:"strong_hash" db:"strong_hash"`
	PerceptualHash *string    `json:"perceptual_hash,omitempty" db:"perceptual_hash"`
	StoragePath    string     `json:"storage_path" db:"storage_path"`
	ByteSize       int64      `json:"byte_size" db:"byte_size"`
	RefCount       int        `json:"ref_count" db:"ref_count"`
	FirstUsedAt    time.Time  `json:"first_used_at" db:"first_used_at"`
	LastUsedAt     time.Time  `json:"last_used_at" db:"last_used_at"`
	SoftDeletedAt  *time.Time `json:"soft_deleted_at,omitempty" db:"soft_deleted_at"`
}

// ──────────────────── Publish ────────────────────

// PublishRecord groups the library entries written by one publish pass
// for one media item. CompletedAt is set only after every entry copied;
// restore works from the newest completed record per entity, so a pass
// that died partway never shadows the last good one.
type PublishRecord struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	EntityID    string     `json:"entity_id" db:"entity_id"`
	LibraryDir  string     `json:"library_dir" db:"library_dir"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// LibraryEntry records one cache entry copied into the player-facing
// library, with the strong hash the bytes had at publish time.
type LibraryEntry struct {
	ID            uuid.UUID `json:"id" db:"id"`
	PublishID     uuid.UUID `json:"publish_id" db:"publish_id"`
	CacheEntryID  uuid.UUID `json:"cache_entry_id" db:"cache_entry_id"`
	LibraryPath   string    `json:"library_path" db:"library_path"`
	PublishedHash string    `json:"published_hash" db:"published_hash"`
	PublishedAt   time.Time `json:"published_at" db:"published_at"`
}

// ──────────────────── Recycle ────────────────────

type RecycleRecord struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	EntityID     string     `json:"entity_id" db:"entity_id"`
	OriginalPath string     `json:"original_path" db:"original_path"`
	RecyclePath  string     `json:"recycle_path" db:"recycle_path"`
	RecycledAt   time.Time  `json:"recycled_at" db:"recycled_at"`
	Restorable   bool       `json:"restorable" db:"restorable"`
	PurgedAt     *time.Time `json:"purged_at,omitempty" db:"purged_at"`
}

// ──────────────────── Review ────────────────────

// ReviewItem is a directory that could not be processed automatically.
// Evidence carries the full classifier reasoning for human disambiguation.
type ReviewItem struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Directory  string          `json:"directory" db:"directory"`
	Reason     string          `json:"reason" db:"reason"`
	Evidence   json.RawMessage `json:"evidence" db:"evidence"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// IntegrityEvent is a logged corruption signal: a published file whose
// hash drifted from the cache, or an indexed blob missing from disk.
type IntegrityEvent struct {
	ID           uuid.UUID          `json:"id" db:"id"`
	CacheEntryID *uuid.UUID         `json:"cache_entry_id,omitempty" db:"cache_entry_id"`
	LibraryPath  *string            `json:"library_path,omitempty" db:"library_path"`
	EventType    IntegrityEventType `json:"event_type" db:"event_type"`
	Detail       string             `json:"detail" db:"detail"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
}

// ──────────────────── Scan input ────────────────────

// ScanHint is optional advisory input from the caller. Both fields are
// confidence boosters only; scanning never requires them.
type ScanHint struct {
	ExpectedFilename string `json:"expected_filename,omitempty"`
	ProviderID       string `json:"provider_id,omitempty"`
}
