package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mediakeep/mediakeep/internal/publish"
)

// RestoreItemHandler heals one entity's library files from the cache.
type RestoreItemHandler struct {
	restorer *publish.Restorer
	notifier EventNotifier
}

func NewRestoreItemHandler(restorer *publish.Restorer, notifier EventNotifier) *RestoreItemHandler {
	return &RestoreItemHandler{restorer: restorer, notifier: notifier}
}

func (h *RestoreItemHandler) ProcessTask(_ context.Context, t *asynq.Task) error {
	var payload RestoreItemPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal restore payload: %w", err)
	}

	out, err := h.restorer.Restore(payload.EntityID)
	if err != nil {
		return fmt.Errorf("restore %s: %w", payload.EntityID, err)
	}
	if out.Repaired > 0 {
		h.notifier.Broadcast("restore:repaired", map[string]interface{}{
			"entity_id": payload.EntityID,
			"repaired":  out.Repaired,
		})
	}
	return nil
}
