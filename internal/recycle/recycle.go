package recycle

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/fsutil"
	"github.com/mediakeep/mediakeep/internal/models"
)

// UnsafeRecycleError means a caller tried to recycle the resolved main
// video. The guard is unconditional: no flag, setting or code path may
// bypass it.
type UnsafeRecycleError struct {
	Path string
}

func (e *UnsafeRecycleError) Error() string {
	return fmt.Sprintf("recycle: refusing to recycle resolved main video %q", e.Path)
}

func IsUnsafeRecycle(err error) bool {
	var e *UnsafeRecycleError
	return errors.As(err, &e)
}

var (
	ErrRecordNotFound = errors.New("recycle: record not found")
	ErrNotRestorable  = errors.New("recycle: record already purged")
)

// Journal is the persistent recycle bookkeeping. RecycleRepository
// implements it.
type Journal interface {
	Create(record *models.RecycleRecord) error
	GetByID(id uuid.UUID) (*models.RecycleRecord, error)
	ListByEntity(entityID string) ([]*models.RecycleRecord, error)
	MarkPurged(id uuid.UUID) error
}

// Recycler moves files and directories into a timestamped per-item
// holding area instead of deleting them. Everything it takes stays
// restorable until explicitly purged.
type Recycler struct {
	root    string
	journal Journal
	now     func() time.Time
}

func New(root string, journal Journal) *Recycler {
	return &Recycler{root: root, journal: journal, now: time.Now}
}

// holdingDir is RECYCLE_DIR/<entity>/<timestamp>/; one batch per scan
// pass shares a timestamp directory.
func (r *Recycler) holdingDir(entityID string, at time.Time) string {
	return filepath.Join(r.root, entityID, at.UTC().Format("20060102-150405"))
}

// Recycle moves one file or whole directory into the holding area.
// mainVideoPath is the resolved main video of the item; recycling it,
// or anything containing it, is rejected before any filesystem work.
func (r *Recycler) Recycle(entityID, target, mainVideoPath string) (*models.RecycleRecord, error) {
	if err := guard(target, mainVideoPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}

	dest := filepath.Join(r.holdingDir(entityID, r.now()), filepath.Base(target))
	if info.IsDir() {
		// Legacy directories move as one unit.
		err = fsutil.MoveDir(target, dest)
	} else {
		err = fsutil.MoveFile(target, dest)
	}
	if err != nil {
		return nil, err
	}

	record := &models.RecycleRecord{
		ID:           uuid.New(),
		EntityID:     entityID,
		OriginalPath: target,
		RecyclePath:  dest,
		Restorable:   true,
	}
	if err := r.journal.Create(record); err != nil {
		return nil, err
	}
	log.Printf("Recycle: moved %q to holding area for %s", target, entityID)
	return record, nil
}

// guard rejects the main video itself and any directory that holds it.
func guard(target, mainVideoPath string) error {
	if mainVideoPath == "" {
		return nil
	}
	cleanTarget := filepath.Clean(target)
	cleanMain := filepath.Clean(mainVideoPath)
	if cleanTarget == cleanMain {
		return &UnsafeRecycleError{Path: target}
	}
	rel, err := filepath.Rel(cleanTarget, cleanMain)
	if err == nil && rel != ".." && !filepath.IsAbs(rel) &&
		!strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &UnsafeRecycleError{Path: target}
	}
	return nil
}

// Restore moves a recycled item back to its original path.
func (r *Recycler) Restore(id uuid.UUID) error {
	record, err := r.journal.GetByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrRecordNotFound
	}
	if !record.Restorable || record.PurgedAt != nil {
		return ErrNotRestorable
	}

	info, err := os.Stat(record.RecyclePath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		err = fsutil.MoveDir(record.RecyclePath, record.OriginalPath)
	} else {
		err = fsutil.MoveFile(record.RecyclePath, record.OriginalPath)
	}
	if err != nil {
		return err
	}
	log.Printf("Recycle: restored %q for %s", record.OriginalPath, record.EntityID)
	return r.journal.MarkPurged(id)
}

// Purge permanently deletes a recycled item from the holding area.
func (r *Recycler) Purge(id uuid.UUID) error {
	record, err := r.journal.GetByID(id)
	if err != nil {
		return err
	}
	if record == nil {
		return ErrRecordNotFound
	}
	if record.PurgedAt != nil {
		return nil
	}
	if err := os.RemoveAll(record.RecyclePath); err != nil {
		return err
	}
	log.Printf("Recycle: purged %q for %s", record.RecyclePath, record.EntityID)
	return r.journal.MarkPurged(id)
}
