package publish

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/classify"
	"github.com/mediakeep/mediakeep/internal/fsutil"
	"github.com/mediakeep/mediakeep/internal/models"
)

// Ledger is the persistent publish bookkeeping. LibraryRepository
// implements it over Postgres. GetLatestPublish must return only
// completed records.
type Ledger interface {
	CreatePublish(record *models.PublishRecord) error
	CreateEntry(entry *models.LibraryEntry) error
	CompletePublish(id uuid.UUID) error
	GetLatestPublish(entityID string) (*models.PublishRecord, error)
	ListEntriesByPublish(publishID uuid.UUID) ([]*models.LibraryEntry, error)
	TouchEntry(id uuid.UUID, publishedHash string) error
}

// BlobSource is the cache-side surface the publisher needs: entry
// lookup, blob location, integrity verification, and reference release
// when a publish supersedes an older one.
type BlobSource interface {
	Lookup(id uuid.UUID) (*models.CacheEntry, error)
	BlobPath(entry *models.CacheEntry) string
	VerifyEntry(entry *models.CacheEntry) error
	Release(id uuid.UUID) error
}

// Publisher copies cached assets into the player-facing library under
// deterministic filenames and records what it wrote. The copy is one
// way: the library is a disposable projection of the cache.
type Publisher struct {
	ledger Ledger
	blobs  BlobSource
}

func NewPublisher(ledger Ledger, blobs BlobSource) *Publisher {
	return &Publisher{ledger: ledger, blobs: blobs}
}

// kindOrder fixes the numbering order when several assets share a kind.
var kindOrder = map[models.AssetKind]int{
	models.AssetMainVideo: 0,
	models.AssetTrailer:   1,
	models.AssetPoster:    2,
	models.AssetFanart:    3,
	models.AssetBanner:    4,
	models.AssetClearLogo: 5,
	models.AssetClearArt:  6,
	models.AssetDiscArt:   7,
	models.AssetThumb:     8,
	models.AssetKeyart:    9,
	models.AssetNFO:       10,
	models.AssetSubtitle:  11,
}

// Publish copies every entry into libraryDir and records one publish
// pass. mainBase is the filename stem shared by the item's files in
// regular naming; short naming (disc items) drops the stem.
//
// The record is marked complete only after the last entry copies, so a
// pass that dies partway leaves the previous completed record as the
// restore source. The caller holds one cache reference per entry from
// ingest; on completion the references held by the superseded record
// are handed back, which lets entries dropped from the item reach zero
// and become GC candidates.
func (p *Publisher) Publish(entityID, libraryDir, mainBase string, mode classify.NamingMode, entries []*models.CacheEntry) (*models.PublishRecord, error) {
	prev, err := p.ledger.GetLatestPublish(entityID)
	if err != nil {
		return nil, err
	}

	sorted := make([]*models.CacheEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if kindOrder[sorted[i].Kind] != kindOrder[sorted[j].Kind] {
			return kindOrder[sorted[i].Kind] < kindOrder[sorted[j].Kind]
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	record := &models.PublishRecord{
		ID:         uuid.New(),
		EntityID:   entityID,
		LibraryDir: libraryDir,
	}
	if err := p.ledger.CreatePublish(record); err != nil {
		return nil, err
	}

	perKind := make(map[models.AssetKind]int)
	for _, entry := range sorted {
		if err := p.blobs.VerifyEntry(entry); err != nil {
			return nil, fmt.Errorf("publish %s: %w", entry.ID, err)
		}
		name := LibraryFileName(mainBase, entry.Kind, perKind[entry.Kind], filepath.Ext(entry.StoragePath), mode)
		perKind[entry.Kind]++

		if err := fsutil.CopyFileAtomic(p.blobs.BlobPath(entry), libraryDir, name); err != nil {
			return nil, fmt.Errorf("publish %s: %w", entry.ID, err)
		}
		libEntry := &models.LibraryEntry{
			ID:            uuid.New(),
			PublishID:     record.ID,
			CacheEntryID:  entry.ID,
			LibraryPath:   filepath.Join(libraryDir, name),
			PublishedHash: entry.StrongHash,
		}
		if err := p.ledger.CreateEntry(libEntry); err != nil {
			return nil, err
		}
	}
	if err := p.ledger.CompletePublish(record.ID); err != nil {
		return nil, err
	}
	p.releaseSuperseded(prev)
	log.Printf("Publish: wrote %d assets for %s to %s", len(sorted), entityID, libraryDir)
	return record, nil
}

// releaseSuperseded hands back the cache references the previous
// publish record held. The new record's entries were re-referenced
// during ingest, so entries still in use keep a stable count while
// dropped ones head toward soft-delete. Release failures are logged,
// not fatal: the publish itself already completed.
func (p *Publisher) releaseSuperseded(prev *models.PublishRecord) {
	if prev == nil {
		return
	}
	entries, err := p.ledger.ListEntriesByPublish(prev.ID)
	if err != nil {
		log.Printf("Publish: cannot list superseded entries for %s: %v", prev.ID, err)
		return
	}
	for _, e := range entries {
		if err := p.blobs.Release(e.CacheEntryID); err != nil {
			log.Printf("Publish: release of superseded entry %s failed: %v", e.CacheEntryID, err)
		}
	}
}

// LibraryFileName is the library naming convention. The image
// classifier recognizes the same convention in reverse when scanning
// pre-existing files, so the two must stay in lockstep.
//
// Regular: Base.mkv, Base-trailer.mkv, Base-poster.jpg, Base-fanart1.jpg
// Short:   movie.nfo, poster.jpg, fanart1.jpg
func LibraryFileName(mainBase string, kind models.AssetKind, index int, ext string, mode classify.NamingMode) string {
	suffix := ""
	if index > 0 {
		suffix = fmt.Sprint(index)
	}
	switch kind {
	case models.AssetMainVideo:
		return mainBase + ext
	case models.AssetNFO:
		if mode == classify.NamingShort {
			return "movie" + suffix + ext
		}
		return mainBase + suffix + ext
	case models.AssetSubtitle:
		return mainBase + suffix + ext
	case models.AssetTrailer:
		if mode == classify.NamingShort {
			return "trailer" + suffix + ext
		}
		return mainBase + "-trailer" + suffix + ext
	default:
		token := string(kind)
		if mode == classify.NamingShort {
			return token + suffix + ext
		}
		return mainBase + "-" + token + suffix + ext
	}
}
