// Package scanner drives the per-directory pipeline: probe every file,
// detect disc layouts, classify, then either ingest-and-publish or park
// the directory in the review queue. Directories are independent; any
// number of scans may run concurrently as long as they target different
// directories.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep/internal/cache"
	"github.com/mediakeep/mediakeep/internal/classify"
	"github.com/mediakeep/mediakeep/internal/disc"
	"github.com/mediakeep/mediakeep/internal/models"
	"github.com/mediakeep/mediakeep/internal/probe"
	"github.com/mediakeep/mediakeep/internal/publish"
	"github.com/mediakeep/mediakeep/internal/recycle"
)

// legacyDirNames are sidecar directories written by older tooling.
// Their contents are probed and classified like root files so useful
// artwork gets cached, then the whole directory is recycled as one
// unit so it is never rescanned.
var legacyDirNames = map[string]bool{
	"extrafanarts": true,
	"extrathumbs":  true,
}

// ReviewSink is the manual-review side of the pipeline.
// ReviewRepository implements it.
type ReviewSink interface {
	Create(item *models.ReviewItem) error
	Resolve(entityID string) error
}

type Scanner struct {
	prober      *probe.Prober
	store       *cache.Store
	publisher   *publish.Publisher
	recycler    *recycle.Recycler
	reviews     ReviewSink
	libraryRoot string
}

func New(prober *probe.Prober, store *cache.Store, publisher *publish.Publisher, recycler *recycle.Recycler, reviews ReviewSink, libraryRoot string) *Scanner {
	return &Scanner{
		prober:      prober,
		store:       store,
		publisher:   publisher,
		recycler:    recycler,
		reviews:     reviews,
		libraryRoot: libraryRoot,
	}
}

// Report summarizes one directory scan.
type Report struct {
	Directory string
	Status    classify.Status
	EntityID  string
	Reason    string
	Cached    int
	Recycled  int
	Publish   *models.PublishRecord
}

// ScanDirectory runs the full pipeline on one item directory.
// Classification failures park the directory for review and return a
// nil error; only infrastructure failures (cache, publish, recycle)
// are errors.
func (s *Scanner) ScanDirectory(ctx context.Context, dir string, hint models.ScanHint) (*Report, error) {
	files, legacyDirs, err := s.listDirectory(dir)
	if err != nil {
		return nil, err
	}

	d := disc.Detect(dir)
	if d != nil {
		// Disc NFOs live inside the disc tree; pull the expected
		// locations into the probe set.
		for _, p := range d.NFOPaths {
			if _, err := os.Stat(p); err == nil {
				files = append(files, p)
			}
		}
	}

	facts := s.prober.Directory(ctx, files)

	videos := byKind(facts, probe.KindVideo)
	images := byKind(facts, probe.KindImage)
	texts := byKind(facts, probe.KindText)
	other := byKind(facts, probe.KindOther)

	videoOut := classify.ClassifyVideo(videos, hint, d)

	mode := classify.NamingRegular
	mainBase := filepath.Base(dir)
	if d != nil {
		mode = classify.NamingShort
	} else if videoOut.Main != nil {
		mainBase = stem(videoOut.Main.File.Name)
	}

	textOut := classify.ClassifyText(texts)
	imageOut := classify.ClassifyImages(images, mode, mainBase)

	result := classify.Decide(videoOut, textOut, imageOut, other, d, hint)

	entityID := result.ProviderID
	if entityID == "" {
		entityID = "unidentified:" + filepath.Base(dir)
	}

	report := &Report{
		Directory: dir,
		Status:    result.Status,
		EntityID:  entityID,
		Reason:    result.Reason,
	}

	if result.Status == classify.StatusManualRequired {
		item := &models.ReviewItem{
			ID:        uuid.New(),
			EntityID:  entityID,
			Directory: dir,
			Reason:    result.Reason,
			Evidence:  result.Evidence.JSON(),
		}
		if err := s.reviews.Create(item); err != nil {
			return nil, fmt.Errorf("queue review for %s: %w", dir, err)
		}
		log.Printf("Scanner: %s needs manual review: %s", dir, result.Reason)
		return report, nil
	}

	if err := s.ingest(dir, entityID, mainBase, mode, d, &result, report); err != nil {
		return nil, err
	}
	if err := s.cleanup(entityID, d, &result, legacyDirs, report); err != nil {
		return nil, err
	}

	if err := s.reviews.Resolve(entityID); err != nil {
		log.Printf("Scanner: failed to resolve review items for %s: %v", entityID, err)
	}
	log.Printf("Scanner: %s processed as %s (%s, cached=%d recycled=%d)",
		dir, entityID, result.Status, report.Cached, report.Recycled)
	return report, nil
}

// listDirectory returns the top-level regular files, the full contents
// of any legacy sidecar directories, and the legacy directories
// themselves. Disc trees and unrecognized subdirectories are left
// untouched.
func (s *Scanner) listDirectory(dir string) (files, legacyDirs []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		if entry.IsDir() {
			if legacyDirNames[strings.ToLower(name)] {
				legacyDirs = append(legacyDirs, path)
			}
			continue
		}
		files = append(files, path)
	}
	for _, legacy := range legacyDirs {
		walkErr := filepath.WalkDir(legacy, func(path string, entry fs.DirEntry, err error) error {
			if err != nil || entry.IsDir() {
				return err
			}
			files = append(files, path)
			return nil
		})
		if walkErr != nil {
			return nil, nil, walkErr
		}
	}
	return files, legacyDirs, nil
}

// ingest copies every classified asset into the cache and publishes
// the set into the library.
func (s *Scanner) ingest(dir, entityID, mainBase string, mode classify.NamingMode, d *disc.Structure, result *classify.Result, report *Report) error {
	var assets []classify.Item
	if d == nil && result.MainVideo != nil {
		assets = append(assets, *result.MainVideo)
	}
	assets = append(assets, result.Trailers...)
	assets = append(assets, result.Images...)
	assets = append(assets, result.Texts...)

	var entries []*models.CacheEntry
	for _, item := range assets {
		entry, err := s.store.PutFile(entityID, item.Kind, item.File.Path)
		if err != nil {
			return fmt.Errorf("cache %s: %w", item.File.Path, err)
		}
		entries = append(entries, entry)
		report.Cached++
	}

	if len(entries) == 0 {
		return nil
	}
	libraryDir := filepath.Join(s.libraryRoot, filepath.Base(dir))
	record, err := s.publisher.Publish(entityID, libraryDir, mainBase, mode, entries)
	if err != nil {
		return fmt.Errorf("publish %s: %w", entityID, err)
	}
	report.Publish = record
	return nil
}

// cleanup recycles unknown files and legacy directories. Excluded
// extras stay in place; the disc tree and the main video are protected
// by the recycler's guard.
func (s *Scanner) cleanup(entityID string, d *disc.Structure, result *classify.Result, legacyDirs []string, report *Report) error {
	mainPath := ""
	if result.MainVideo != nil {
		mainPath = result.MainVideo.File.Path
	}

	for _, f := range result.Unknown {
		// Unknowns inside a legacy directory ride along when the
		// directory itself is recycled.
		if underAny(f.Path, legacyDirs) {
			continue
		}
		if _, err := s.recycler.Recycle(entityID, f.Path, mainPath); err != nil {
			return fmt.Errorf("recycle %s: %w", f.Path, err)
		}
		report.Recycled++
	}
	for _, legacy := range legacyDirs {
		if _, err := s.recycler.Recycle(entityID, legacy, mainPath); err != nil {
			return fmt.Errorf("recycle %s: %w", legacy, err)
		}
		report.Recycled++
	}
	return nil
}

func underAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func byKind(facts []*probe.FileFacts, kind probe.FileKind) []*probe.FileFacts {
	var out []*probe.FileFacts
	for _, f := range facts {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
