package recycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakeep/mediakeep/internal/models"
)

type memJournal struct {
	records map[uuid.UUID]*models.RecycleRecord
}

func newMemJournal() *memJournal {
	return &memJournal{records: make(map[uuid.UUID]*models.RecycleRecord)}
}

func (m *memJournal) Create(record *models.RecycleRecord) error {
	record.RecycledAt = time.Now()
	m.records[record.ID] = record
	return nil
}

func (m *memJournal) GetByID(id uuid.UUID) (*models.RecycleRecord, error) {
	record, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (m *memJournal) ListByEntity(entityID string) ([]*models.RecycleRecord, error) {
	var out []*models.RecycleRecord
	for _, record := range m.records {
		if record.EntityID == entityID {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memJournal) MarkPurged(id uuid.UUID) error {
	record := m.records[id]
	record.Restorable = false
	now := time.Now()
	record.PurgedAt = &now
	return nil
}

func newTestRecycler(t *testing.T) (*Recycler, *memJournal) {
	t.Helper()
	journal := newMemJournal()
	return New(t.TempDir(), journal), journal
}

func TestRecycleMovesFileIntoHoldingArea(t *testing.T) {
	rec, _ := newTestRecycler(t)
	itemDir := t.TempDir()
	target := filepath.Join(itemDir, "mystery.bin")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	record, err := rec.Recycle("tt1234567", target, filepath.Join(itemDir, "Movie.mkv"))
	require.NoError(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
	data, err := os.ReadFile(record.RecyclePath)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.True(t, record.Restorable)
	assert.Equal(t, target, record.OriginalPath)
	assert.Contains(t, record.RecyclePath, "tt1234567")
}

func TestRecycleMovesDirectoryAsOneUnit(t *testing.T) {
	rec, _ := newTestRecycler(t)
	itemDir := t.TempDir()
	legacy := filepath.Join(itemDir, "extrafanarts")
	require.NoError(t, os.MkdirAll(legacy, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(legacy, "fanart9.jpg"), []byte("a"), 0o644))

	record, err := rec.Recycle("tt1234567", legacy, filepath.Join(itemDir, "Movie.mkv"))
	require.NoError(t, err)

	_, statErr := os.Stat(legacy)
	assert.True(t, os.IsNotExist(statErr))
	_, err = os.Stat(filepath.Join(record.RecyclePath, "fanart9.jpg"))
	assert.NoError(t, err)
}

func TestRecycleRefusesMainVideo(t *testing.T) {
	rec, journal := newTestRecycler(t)
	itemDir := t.TempDir()
	main := filepath.Join(itemDir, "Movie.mkv")
	require.NoError(t, os.WriteFile(main, []byte("v"), 0o644))

	_, err := rec.Recycle("tt1234567", main, main)
	assert.True(t, IsUnsafeRecycle(err))

	// The file is untouched and nothing was journaled.
	_, statErr := os.Stat(main)
	assert.NoError(t, statErr)
	assert.Empty(t, journal.records)
}

func TestRecycleRefusesDirectoryContainingMainVideo(t *testing.T) {
	rec, _ := newTestRecycler(t)
	itemDir := t.TempDir()
	main := filepath.Join(itemDir, "Movie.mkv")
	require.NoError(t, os.WriteFile(main, []byte("v"), 0o644))

	_, err := rec.Recycle("tt1234567", itemDir, main)
	assert.True(t, IsUnsafeRecycle(err))
}

func TestRecycleSiblingOfMainVideoIsAllowed(t *testing.T) {
	rec, _ := newTestRecycler(t)
	itemDir := t.TempDir()
	main := filepath.Join(itemDir, "Movie.mkv")
	sibling := filepath.Join(itemDir, "junk.dat")
	require.NoError(t, os.WriteFile(main, []byte("v"), 0o644))
	require.NoError(t, os.WriteFile(sibling, []byte("j"), 0o644))

	_, err := rec.Recycle("tt1234567", sibling, main)
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	rec, journal := newTestRecycler(t)
	itemDir := t.TempDir()
	target := filepath.Join(itemDir, "mystery.bin")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	record, err := rec.Recycle("tt1234567", target, "")
	require.NoError(t, err)

	require.NoError(t, rec.Restore(record.ID))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	// A restored record cannot be restored again.
	assert.ErrorIs(t, rec.Restore(record.ID), ErrNotRestorable)
	assert.NotNil(t, journal.records[record.ID].PurgedAt)
}

func TestPurge(t *testing.T) {
	rec, journal := newTestRecycler(t)
	itemDir := t.TempDir()
	target := filepath.Join(itemDir, "mystery.bin")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	record, err := rec.Recycle("tt1234567", target, "")
	require.NoError(t, err)
	require.NoError(t, rec.Purge(record.ID))

	_, statErr := os.Stat(record.RecyclePath)
	assert.True(t, os.IsNotExist(statErr))
	assert.False(t, journal.records[record.ID].Restorable)

	// Purge is idempotent.
	assert.NoError(t, rec.Purge(record.ID))
	assert.ErrorIs(t, rec.Restore(record.ID), ErrNotRestorable)
}

func TestRestoreUnknownRecord(t *testing.T) {
	rec, _ := newTestRecycler(t)
	assert.ErrorIs(t, rec.Restore(uuid.New()), ErrRecordNotFound)
	assert.ErrorIs(t, rec.Purge(uuid.New()), ErrRecordNotFound)
}
