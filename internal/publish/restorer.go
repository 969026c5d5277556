package publish

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mediakeep/mediakeep/internal/cache"
	"github.com/mediakeep/mediakeep/internal/fingerprint"
	"github.com/mediakeep/mediakeep/internal/fsutil"
	"github.com/mediakeep/mediakeep/internal/models"
)

// ErrNeverPublished means restore was asked for an entity with no
// publish record to restore from.
var ErrNeverPublished = errors.New("publish: entity has never been published")

// EventSink receives integrity events. EventRepository implements it.
type EventSink interface {
	Record(event *models.IntegrityEvent) error
}

// Restorer repairs a library directory from the cache: every file of
// the last successful publish that is missing or whose bytes drifted
// is re-copied from its blob. Files that still match are skipped.
type Restorer struct {
	ledger Ledger
	blobs  BlobSource
	events EventSink
}

func NewRestorer(ledger Ledger, blobs BlobSource, events EventSink) *Restorer {
	return &Restorer{ledger: ledger, blobs: blobs, events: events}
}

// Outcome summarizes one restore pass.
type Outcome struct {
	Checked  int
	Repaired int
	Failed   int
}

// Restore walks the entity's last publish record and heals drifted or
// missing library files. A corrupt cache blob cannot heal its file;
// that is recorded as an integrity event and counted as a failure, and
// the pass continues with the remaining files.
func (r *Restorer) Restore(entityID string) (Outcome, error) {
	record, err := r.ledger.GetLatestPublish(entityID)
	if err != nil {
		return Outcome{}, err
	}
	if record == nil {
		return Outcome{}, ErrNeverPublished
	}
	entries, err := r.ledger.ListEntriesByPublish(record.ID)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	for _, libEntry := range entries {
		out.Checked++
		drift, err := r.libraryFileDrifted(libEntry)
		if err != nil {
			return out, err
		}
		if drift == "" {
			continue
		}
		if err := r.heal(libEntry, drift); err != nil {
			out.Failed++
			log.Printf("Restore: cannot heal %s: %v", libEntry.LibraryPath, err)
			continue
		}
		out.Repaired++
	}
	if out.Repaired > 0 || out.Failed > 0 {
		log.Printf("Restore: entity %s checked=%d repaired=%d failed=%d",
			entityID, out.Checked, out.Repaired, out.Failed)
	}
	if out.Failed > 0 {
		return out, fmt.Errorf("restore %s: %d of %d files could not be healed", entityID, out.Failed, out.Checked)
	}
	return out, nil
}

// libraryFileDrifted returns a non-empty drift description when the
// library file needs re-copying, or "" when its bytes still match.
func (r *Restorer) libraryFileDrifted(libEntry *models.LibraryEntry) (string, error) {
	got, err := fingerprint.StrongHashFile(libEntry.LibraryPath)
	if os.IsNotExist(err) {
		return "library file missing", nil
	}
	if err != nil {
		return "", err
	}
	if got != libEntry.PublishedHash {
		return "library file hash drifted", nil
	}
	return "", nil
}

func (r *Restorer) heal(libEntry *models.LibraryEntry, drift string) error {
	entry, err := r.blobs.Lookup(libEntry.CacheEntryID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			r.recordEvent(libEntry, models.EventBlobMissing, "cache entry gone, library file unrecoverable")
		}
		return err
	}
	if err := r.blobs.VerifyEntry(entry); err != nil {
		var ce *cache.CorruptionError
		if errors.As(err, &ce) {
			r.recordEvent(libEntry, ce.EventType, "cache blob corrupt, library file unrecoverable: "+ce.Detail)
		}
		return err
	}

	// A missing library file is routine repair; drifted bytes are an
	// integrity violation worth a persistent event.
	if drift == "library file hash drifted" {
		r.recordEvent(libEntry, models.EventHashMismatch, drift+", re-copied from cache")
	}
	dir, name := filepath.Split(libEntry.LibraryPath)
	if err := fsutil.CopyFileAtomic(r.blobs.BlobPath(entry), dir, name); err != nil {
		return err
	}
	return r.ledger.TouchEntry(libEntry.ID, entry.StrongHash)
}

func (r *Restorer) recordEvent(libEntry *models.LibraryEntry, eventType models.IntegrityEventType, detail string) {
	event := &models.IntegrityEvent{
		CacheEntryID: &libEntry.CacheEntryID,
		LibraryPath:  &libEntry.LibraryPath,
		EventType:    eventType,
		Detail:       detail,
	}
	if err := r.events.Record(event); err != nil {
		log.Printf("Restore: failed to record integrity event: %v", err)
	}
}
