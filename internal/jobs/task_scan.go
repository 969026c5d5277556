package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/mediakeep/mediakeep/internal/classify"
	"github.com/mediakeep/mediakeep/internal/scanner"
)

// ScanDirectoryHandler runs the full pipeline on one item directory.
type ScanDirectoryHandler struct {
	scanner  *scanner.Scanner
	notifier EventNotifier
}

func NewScanDirectoryHandler(sc *scanner.Scanner, notifier EventNotifier) *ScanDirectoryHandler {
	return &ScanDirectoryHandler{scanner: sc, notifier: notifier}
}

func (h *ScanDirectoryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ScanDirectoryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal scan payload: %w", err)
	}

	log.Printf("Jobs: scanning directory %s", payload.Directory)
	report, err := h.scanner.ScanDirectory(ctx, payload.Directory, payload.Hint)
	if err != nil {
		return fmt.Errorf("scan %s: %w", payload.Directory, err)
	}

	switch report.Status {
	case classify.StatusManualRequired:
		h.notifier.Broadcast("scan:manual_required", map[string]interface{}{
			"directory": report.Directory,
			"reason":    report.Reason,
		})
	default:
		h.notifier.Broadcast("scan:completed", map[string]interface{}{
			"directory": report.Directory,
			"entity_id": report.EntityID,
			"status":    string(report.Status),
			"cached":    report.Cached,
			"recycled":  report.Recycled,
		})
	}
	return nil
}
