package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mediakeep/mediakeep/internal/cache"
	"github.com/mediakeep/mediakeep/internal/publish"
)

// VerifySweepHandler walks every published entity and heals drifted or
// missing library files from the cache. Per-entity failures are logged
// and counted; the sweep always visits everything.
type VerifySweepHandler struct {
	entities PublishedEntityLister
	restorer *publish.Restorer
	notifier EventNotifier
}

func NewVerifySweepHandler(entities PublishedEntityLister, restorer *publish.Restorer, notifier EventNotifier) *VerifySweepHandler {
	return &VerifySweepHandler{entities: entities, restorer: restorer, notifier: notifier}
}

func (h *VerifySweepHandler) ProcessTask(_ context.Context, _ *asynq.Task) error {
	ids, err := h.entities.ListPublishedEntities()
	if err != nil {
		return fmt.Errorf("list published entities: %w", err)
	}

	repaired, failed := 0, 0
	for _, id := range ids {
		out, err := h.restorer.Restore(id)
		if errors.Is(err, publish.ErrNeverPublished) {
			continue
		}
		if err != nil {
			failed++
			log.Printf("Jobs: verify sweep failed for %s: %v", id, err)
		}
		repaired += out.Repaired
	}
	log.Printf("Jobs: verify sweep done, entities=%d repaired=%d failed=%d", len(ids), repaired, failed)
	h.notifier.Broadcast("maintenance:verify_done", map[string]interface{}{
		"entities": len(ids),
		"repaired": repaired,
		"failed":   failed,
	})
	return nil
}

// GarbageSweepHandler collects cache entries past the retention window.
type GarbageSweepHandler struct {
	store     *cache.Store
	retention time.Duration
	notifier  EventNotifier
}

func NewGarbageSweepHandler(store *cache.Store, retention time.Duration, notifier EventNotifier) *GarbageSweepHandler {
	return &GarbageSweepHandler{store: store, retention: retention, notifier: notifier}
}

func (h *GarbageSweepHandler) ProcessTask(_ context.Context, _ *asynq.Task) error {
	collected, err := h.store.GarbageCollect(h.retention)
	if err != nil {
		return fmt.Errorf("garbage collect: %w", err)
	}
	h.notifier.Broadcast("maintenance:gc_done", map[string]interface{}{
		"collected": collected,
	})
	return nil
}
