package publish

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakeep/mediakeep/internal/cache"
	"github.com/mediakeep/mediakeep/internal/classify"
	"github.com/mediakeep/mediakeep/internal/fingerprint"
	"github.com/mediakeep/mediakeep/internal/models"
)

// ──────────────────── fakes ────────────────────

type memLedger struct {
	publishes []*models.PublishRecord
	entries   map[uuid.UUID][]*models.LibraryEntry
	touched   map[uuid.UUID]string
}

func newMemLedger() *memLedger {
	return &memLedger{
		entries: make(map[uuid.UUID][]*models.LibraryEntry),
		touched: make(map[uuid.UUID]string),
	}
}

func (m *memLedger) CreatePublish(record *models.PublishRecord) error {
	record.CreatedAt = time.Now()
	m.publishes = append(m.publishes, record)
	return nil
}

func (m *memLedger) CreateEntry(entry *models.LibraryEntry) error {
	entry.PublishedAt = time.Now()
	m.entries[entry.PublishID] = append(m.entries[entry.PublishID], entry)
	return nil
}

func (m *memLedger) CompletePublish(id uuid.UUID) error {
	for _, record := range m.publishes {
		if record.ID == id {
			now := time.Now()
			record.CompletedAt = &now
		}
	}
	return nil
}

func (m *memLedger) GetLatestPublish(entityID string) (*models.PublishRecord, error) {
	for i := len(m.publishes) - 1; i >= 0; i-- {
		if m.publishes[i].EntityID == entityID && m.publishes[i].CompletedAt != nil {
			return m.publishes[i], nil
		}
	}
	return nil, nil
}

func (m *memLedger) ListEntriesByPublish(publishID uuid.UUID) ([]*models.LibraryEntry, error) {
	return m.entries[publishID], nil
}

func (m *memLedger) TouchEntry(id uuid.UUID, publishedHash string) error {
	m.touched[id] = publishedHash
	return nil
}

type fakeBlobs struct {
	root     string
	entries  map[uuid.UUID]*models.CacheEntry
	released []uuid.UUID
}

func newFakeBlobs(t *testing.T) *fakeBlobs {
	return &fakeBlobs{root: t.TempDir(), entries: make(map[uuid.UUID]*models.CacheEntry)}
}

func (f *fakeBlobs) add(t *testing.T, kind models.AssetKind, ext string, data []byte) *models.CacheEntry {
	t.Helper()
	id := uuid.New()
	entry := &models.CacheEntry{
		ID:          id,
		EntityID:    "tt1234567",
		Kind:        kind,
		StrongHash:  fingerprint.StrongHashBytes(data),
		StoragePath: id.String() + ext,
		ByteSize:    int64(len(data)),
		RefCount:    1,
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.root, entry.StoragePath), data, 0o644))
	f.entries[id] = entry
	return entry
}

func (f *fakeBlobs) Lookup(id uuid.UUID) (*models.CacheEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return entry, nil
}

func (f *fakeBlobs) BlobPath(entry *models.CacheEntry) string {
	return filepath.Join(f.root, entry.StoragePath)
}

func (f *fakeBlobs) VerifyEntry(entry *models.CacheEntry) error {
	got, err := fingerprint.StrongHashFile(f.BlobPath(entry))
	if os.IsNotExist(err) {
		return &cache.CorruptionError{EntryID: entry.ID, EventType: models.EventBlobMissing, Detail: "missing"}
	}
	if err != nil {
		return err
	}
	if got != entry.StrongHash {
		return &cache.CorruptionError{EntryID: entry.ID, EventType: models.EventHashMismatch, Detail: "drifted"}
	}
	return nil
}

func (f *fakeBlobs) Release(id uuid.UUID) error {
	f.released = append(f.released, id)
	return nil
}

type memEvents struct {
	events []*models.IntegrityEvent
}

func (m *memEvents) Record(event *models.IntegrityEvent) error {
	m.events = append(m.events, event)
	return nil
}

// ──────────────────── publisher ────────────────────

func TestLibraryFileName(t *testing.T) {
	tests := []struct {
		kind  models.AssetKind
		index int
		ext   string
		mode  classify.NamingMode
		want  string
	}{
		{models.AssetMainVideo, 0, ".mkv", classify.NamingRegular, "Movie (2009).mkv"},
		{models.AssetTrailer, 0, ".mp4", classify.NamingRegular, "Movie (2009)-trailer.mp4"},
		{models.AssetTrailer, 1, ".mp4", classify.NamingRegular, "Movie (2009)-trailer1.mp4"},
		{models.AssetPoster, 0, ".jpg", classify.NamingRegular, "Movie (2009)-poster.jpg"},
		{models.AssetFanart, 1, ".jpg", classify.NamingRegular, "Movie (2009)-fanart1.jpg"},
		{models.AssetNFO, 0, ".nfo", classify.NamingRegular, "Movie (2009).nfo"},
		{models.AssetSubtitle, 0, ".srt", classify.NamingRegular, "Movie (2009).srt"},
		{models.AssetPoster, 0, ".jpg", classify.NamingShort, "poster.jpg"},
		{models.AssetFanart, 2, ".jpg", classify.NamingShort, "fanart2.jpg"},
		{models.AssetNFO, 0, ".nfo", classify.NamingShort, "movie.nfo"},
	}
	for _, tt := range tests {
		got := LibraryFileName("Movie (2009)", tt.kind, tt.index, tt.ext, tt.mode)
		assert.Equal(t, tt.want, got)
	}
}

func TestPublishWritesDeterministicNames(t *testing.T) {
	ledger := newMemLedger()
	blobs := newFakeBlobs(t)
	pub := NewPublisher(ledger, blobs)

	entries := []*models.CacheEntry{
		blobs.add(t, models.AssetFanart, ".jpg", []byte("fanart-b")),
		blobs.add(t, models.AssetMainVideo, ".mkv", []byte("video")),
		blobs.add(t, models.AssetFanart, ".jpg", []byte("fanart-a")),
		blobs.add(t, models.AssetPoster, ".jpg", []byte("poster")),
		blobs.add(t, models.AssetNFO, ".nfo", []byte("<movie/>")),
	}

	libDir := t.TempDir()
	record, err := pub.Publish("tt1234567", libDir, "Movie (2009)", classify.NamingRegular, entries)
	require.NoError(t, err)

	names, err := os.ReadDir(libDir)
	require.NoError(t, err)
	var got []string
	for _, e := range names {
		got = append(got, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"Movie (2009).mkv",
		"Movie (2009)-poster.jpg",
		"Movie (2009)-fanart.jpg",
		"Movie (2009)-fanart1.jpg",
		"Movie (2009).nfo",
	}, got)

	libEntries, err := ledger.ListEntriesByPublish(record.ID)
	require.NoError(t, err)
	assert.Len(t, libEntries, 5)
	for _, le := range libEntries {
		onDisk, err := fingerprint.StrongHashFile(le.LibraryPath)
		require.NoError(t, err)
		assert.Equal(t, le.PublishedHash, onDisk)
	}
}

func TestPublishRefusesCorruptBlob(t *testing.T) {
	ledger := newMemLedger()
	blobs := newFakeBlobs(t)
	pub := NewPublisher(ledger, blobs)

	entry := blobs.add(t, models.AssetPoster, ".jpg", []byte("poster"))
	require.NoError(t, os.WriteFile(blobs.BlobPath(entry), []byte("tampered"), 0o644))

	_, err := pub.Publish("tt1234567", t.TempDir(), "Movie", classify.NamingRegular, []*models.CacheEntry{entry})
	assert.True(t, cache.IsCorruption(err))
}

func TestPublishReleasesSupersededReferences(t *testing.T) {
	ledger := newMemLedger()
	blobs := newFakeBlobs(t)
	pub := NewPublisher(ledger, blobs)

	video := blobs.add(t, models.AssetMainVideo, ".mkv", []byte("video"))
	oldPoster := blobs.add(t, models.AssetPoster, ".jpg", []byte("old poster"))

	libDir := t.TempDir()
	_, err := pub.Publish("tt1234567", libDir, "Movie", classify.NamingRegular,
		[]*models.CacheEntry{video, oldPoster})
	require.NoError(t, err)
	assert.Empty(t, blobs.released, "first publish supersedes nothing")

	// The next scan re-references the video and ingests a new poster.
	newPoster := blobs.add(t, models.AssetPoster, ".jpg", []byte("new poster"))
	_, err = pub.Publish("tt1234567", libDir, "Movie", classify.NamingRegular,
		[]*models.CacheEntry{video, newPoster})
	require.NoError(t, err)

	// Every reference the first record held is handed back; the dropped
	// poster can now reach zero and be garbage collected.
	assert.ElementsMatch(t, []uuid.UUID{video.ID, oldPoster.ID}, blobs.released)
}

func TestFailedPublishDoesNotShadowLastGoodRecord(t *testing.T) {
	ledger := newMemLedger()
	blobs := newFakeBlobs(t)
	events := &memEvents{}
	pub := NewPublisher(ledger, blobs)

	video := blobs.add(t, models.AssetMainVideo, ".mkv", []byte("video"))
	poster := blobs.add(t, models.AssetPoster, ".jpg", []byte("poster"))
	libDir := t.TempDir()
	good, err := pub.Publish("tt1234567", libDir, "Movie", classify.NamingRegular,
		[]*models.CacheEntry{video, poster})
	require.NoError(t, err)

	// A later pass dies on a corrupt blob, leaving a partial record.
	bad := blobs.add(t, models.AssetFanart, ".jpg", []byte("fanart"))
	require.NoError(t, os.WriteFile(blobs.BlobPath(bad), []byte("rotten"), 0o644))
	_, err = pub.Publish("tt1234567", libDir, "Movie", classify.NamingRegular,
		[]*models.CacheEntry{video, poster, bad})
	require.Error(t, err)

	latest, err := ledger.GetLatestPublish("tt1234567")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, good.ID, latest.ID)
	assert.Empty(t, blobs.released, "a failed pass releases nothing")

	// Restore still heals files from the last good record.
	missing := filepath.Join(libDir, "Movie-poster.jpg")
	require.NoError(t, os.Remove(missing))
	out, err := NewRestorer(ledger, blobs, events).Restore("tt1234567")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Checked)
	assert.Equal(t, 1, out.Repaired)
	data, err := os.ReadFile(missing)
	require.NoError(t, err)
	assert.Equal(t, "poster", string(data))
}

// ──────────────────── restorer ────────────────────

func publishFixture(t *testing.T) (*memLedger, *fakeBlobs, *memEvents, string) {
	t.Helper()
	ledger := newMemLedger()
	blobs := newFakeBlobs(t)
	pub := NewPublisher(ledger, blobs)

	entries := []*models.CacheEntry{
		blobs.add(t, models.AssetMainVideo, ".mkv", []byte("video")),
		blobs.add(t, models.AssetPoster, ".jpg", []byte("poster")),
		blobs.add(t, models.AssetNFO, ".nfo", []byte("<movie/>")),
	}
	libDir := t.TempDir()
	_, err := pub.Publish("tt1234567", libDir, "Movie (2009)", classify.NamingRegular, entries)
	require.NoError(t, err)
	return ledger, blobs, &memEvents{}, libDir
}

func TestRestoreSkipsMatchingFiles(t *testing.T) {
	ledger, blobs, events, _ := publishFixture(t)
	res := NewRestorer(ledger, blobs, events)

	out, err := res.Restore("tt1234567")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Checked)
	assert.Equal(t, 0, out.Repaired)
	assert.Empty(t, ledger.touched)
	assert.Empty(t, events.events)
}

func TestRestoreRecopiesMissingFile(t *testing.T) {
	ledger, blobs, events, libDir := publishFixture(t)
	missing := filepath.Join(libDir, "Movie (2009)-poster.jpg")
	require.NoError(t, os.Remove(missing))

	out, err := NewRestorer(ledger, blobs, events).Restore("tt1234567")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Repaired)

	data, err := os.ReadFile(missing)
	require.NoError(t, err)
	assert.Equal(t, "poster", string(data))
	// Plain loss is repaired without an integrity event.
	assert.Empty(t, events.events)
	assert.Len(t, ledger.touched, 1)
}

func TestRestoreHealsDriftedFileAndRecordsEvent(t *testing.T) {
	ledger, blobs, events, libDir := publishFixture(t)
	drifted := filepath.Join(libDir, "Movie (2009).nfo")
	require.NoError(t, os.WriteFile(drifted, []byte("scribbled over"), 0o644))

	out, err := NewRestorer(ledger, blobs, events).Restore("tt1234567")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Repaired)

	data, err := os.ReadFile(drifted)
	require.NoError(t, err)
	assert.Equal(t, "<movie/>", string(data))

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventHashMismatch, events.events[0].EventType)
	require.NotNil(t, events.events[0].LibraryPath)
	assert.Equal(t, drifted, *events.events[0].LibraryPath)
}

func TestRestoreCannotHealFromCorruptCache(t *testing.T) {
	ledger, blobs, events, libDir := publishFixture(t)
	require.NoError(t, os.Remove(filepath.Join(libDir, "Movie (2009)-poster.jpg")))

	// Corrupt the cache blob behind the missing library file.
	for _, entry := range blobs.entries {
		if entry.Kind == models.AssetPoster {
			require.NoError(t, os.WriteFile(blobs.BlobPath(entry), []byte("rotten"), 0o644))
		}
	}

	out, err := NewRestorer(ledger, blobs, events).Restore("tt1234567")
	assert.Error(t, err)
	assert.Equal(t, 1, out.Failed)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventHashMismatch, events.events[0].EventType)
	assert.Contains(t, events.events[0].Detail, "unrecoverable")
}

func TestRestoreNeverPublished(t *testing.T) {
	ledger := newMemLedger()
	_, err := NewRestorer(ledger, newFakeBlobs(t), &memEvents{}).Restore("tt9999999")
	assert.ErrorIs(t, err, ErrNeverPublished)
}
