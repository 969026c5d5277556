package jobs

import (
	"log"
	"time"

	"github.com/mediakeep/mediakeep/internal/cache"
	"github.com/mediakeep/mediakeep/internal/models"
	"github.com/mediakeep/mediakeep/internal/publish"
	"github.com/mediakeep/mediakeep/internal/scanner"
)

// ──────────────────── Payloads ────────────────────

type ScanDirectoryPayload struct {
	Directory string          `json:"directory"`
	Hint      models.ScanHint `json:"hint,omitempty"`
}

type RestoreItemPayload struct {
	EntityID string `json:"entity_id"`
}

type VerifySweepPayload struct{}

type GarbageSweepPayload struct{}

// EventNotifier receives processing milestones. The daemon runs with
// the log-backed notifier; an embedding application can supply its own.
type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// LogNotifier writes every event to the process log.
type LogNotifier struct{}

func (LogNotifier) Broadcast(event string, data interface{}) {
	log.Printf("Event: %s %+v", event, data)
}

// PublishedEntityLister narrows LibraryRepository for the verify sweep.
type PublishedEntityLister interface {
	ListPublishedEntities() ([]string, error)
}

// ──────────────────── Register all handlers ────────────────────

func RegisterHandlers(q *Queue, sc *scanner.Scanner, restorer *publish.Restorer,
	store *cache.Store, entities PublishedEntityLister, notifier EventNotifier,
	gcRetention time.Duration) {

	q.RegisterHandler(TaskScanDirectory, NewScanDirectoryHandler(sc, notifier))
	q.RegisterHandler(TaskRestoreItem, NewRestoreItemHandler(restorer, notifier))
	q.RegisterHandler(TaskVerifySweep, NewVerifySweepHandler(entities, restorer, notifier))
	q.RegisterHandler(TaskGarbageSweep, NewGarbageSweepHandler(store, gcRetention, notifier))
}
