// Package classify turns per-file facts into semantic roles. Every
// stage is pure: immutable facts in, immutable result out, so the whole
// decision tree is testable without a filesystem.
package classify

import (
	"encoding/json"

	"github.com/mediakeep/mediakeep/internal/disc"
	"github.com/mediakeep/mediakeep/internal/models"
	"github.com/mediakeep/mediakeep/internal/probe"
)

type Status string

const (
	StatusCanProcess             Status = "can_process"
	StatusCanProcessWithUnknowns Status = "can_process_with_unknowns"
	StatusManualRequired         Status = "manual_required"
)

// Confidence thresholds. At or above AutoThreshold an item is handled
// without human review; the main video additionally has its own bar.
const (
	AutoThreshold      = 80
	MainVideoThreshold = 90
)

// Item is one classified file.
type Item struct {
	File       *probe.FileFacts
	Kind       models.AssetKind
	Confidence int
}

// Result is the complete outcome for one directory scan. Produced once,
// consumed immediately, never persisted (evidence excepted).
type Result struct {
	Status     Status
	Disc       *disc.Structure
	MainVideo  *Item
	Trailers   []Item
	Extras     []Item // excluded-keyword videos other than trailers; left in place
	Images     []Item
	Texts      []Item
	Unknown    []*probe.FileFacts
	ProviderID string
	Reason     string
	Evidence   Evidence
}

// Evidence records the classifier's reasoning for human disambiguation.
// Serialized into the review queue when the result is MANUAL_REQUIRED.
type Evidence struct {
	Candidates []CandidateEvidence `json:"candidates,omitempty"`
	Excluded   []CandidateEvidence `json:"excluded,omitempty"`
	Images     []ImageEvidence     `json:"images,omitempty"`
	Unknown    []string            `json:"unknown,omitempty"`
}

type CandidateEvidence struct {
	Name            string  `json:"name"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	ByteSize        int64   `json:"byte_size"`
	Keyword         string  `json:"exclusion_keyword,omitempty"`
	Probed          bool    `json:"probed"`
	Confidence      int     `json:"confidence,omitempty"`
}

type ImageEvidence struct {
	Name       string `json:"name"`
	Kind       string `json:"kind,omitempty"`
	Confidence int    `json:"confidence"`
}

func (e Evidence) JSON() json.RawMessage {
	b, err := json.Marshal(e)
	if err != nil {
		return json.RawMessage("{}")
	}
	return json.RawMessage(b)
}

func candidateEvidence(f *probe.FileFacts) CandidateEvidence {
	ev := CandidateEvidence{
		Name:     f.Name,
		ByteSize: f.Size,
		Keyword:  f.NameFacts.ExclusionKeyword,
		Probed:   f.Video != nil,
	}
	if f.Video != nil {
		ev.DurationSeconds = f.Video.DurationSeconds
	}
	return ev
}
