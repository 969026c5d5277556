package classify

import (
	"fmt"
	"math"

	"github.com/mediakeep/mediakeep/internal/disc"
	"github.com/mediakeep/mediakeep/internal/models"
	"github.com/mediakeep/mediakeep/internal/probe"
)

// durationTieTolerance: two candidates whose probed durations differ by
// less than this are a tie, and a tie is never broken by guessing.
const durationTieTolerance = 1.0 // seconds

// VideoOutcome is the video stage's contribution to the scan result.
type VideoOutcome struct {
	Main     *Item
	Trailers []Item
	Extras   []Item
	Unknown  []*probe.FileFacts
	Reason   string // non-empty when Main is nil
	Evidence Evidence
}

// ClassifyVideo resolves which video file, if any, is the main feature.
// The decision tree is strictly ordered; the first matching rule wins.
// File size and resolution are never consulted: a trailer can out-size
// and out-resolve the feature, but it is never longer.
func ClassifyVideo(files []*probe.FileFacts, hint models.ScanHint, d *disc.Structure) VideoOutcome {
	videos := filterKind(files, probe.KindVideo)

	// Rule 1: a disc structure is the main video, confidence 100.
	if d != nil {
		out := sortExtras(videos, nil)
		out.Main = &Item{
			File: &probe.FileFacts{
				Path: d.Root,
				Name: d.Root,
				Kind: probe.KindVideo,
			},
			Kind:       models.AssetMainVideo,
			Confidence: 100,
		}
		return out
	}

	// Rule 2: the caller named the exact expected file.
	if hint.ExpectedFilename != "" {
		for _, f := range videos {
			if f.Name == hint.ExpectedFilename {
				return finish(videos, f, 100)
			}
		}
	}

	// Rule 3: nothing to pick from.
	if len(videos) == 0 {
		return VideoOutcome{Reason: "no video files in directory"}
	}

	// Rule 4: a single video file is the feature unless its own name
	// disqualifies it.
	if len(videos) == 1 {
		only := videos[0]
		if only.NameFacts.Excluded {
			out := sortExtras(videos, nil)
			out.Reason = fmt.Sprintf("only video file %q carries exclusion keyword %q", only.Name, only.NameFacts.ExclusionKeyword)
			out.Evidence.Excluded = []CandidateEvidence{candidateEvidence(only)}
			return out
		}
		return finish(videos, only, 100)
	}

	// Rule 5: drop exclusion-keyword files; a single survivor wins.
	var candidates []*probe.FileFacts
	for _, f := range videos {
		if !f.NameFacts.Excluded {
			candidates = append(candidates, f)
		}
	}

	// Rule 7 (checked early: the candidate list is already empty).
	if len(candidates) == 0 {
		out := sortExtras(videos, nil)
		out.Reason = "all video files carry exclusion keywords"
		for _, f := range videos {
			out.Evidence.Excluded = append(out.Evidence.Excluded, candidateEvidence(f))
		}
		return out
	}

	if len(candidates) == 1 {
		return finish(videos, candidates[0], 95)
	}

	// Rule 6: several plausible features; the longest probed duration
	// decides. Equal durations within tolerance mean a human decides.
	longest, runnerUp := longestTwo(candidates)
	if longest == nil || longest.Video == nil {
		out := sortExtras(videos, candidates)
		out.Reason = "multiple candidates but no probed durations to compare"
		return out
	}
	if runnerUp != nil && runnerUp.Video != nil &&
		math.Abs(longest.Video.DurationSeconds-runnerUp.Video.DurationSeconds) < durationTieTolerance {
		out := sortExtras(videos, candidates)
		out.Reason = fmt.Sprintf("ambiguous main video: tied duration (%q vs %q)", longest.Name, runnerUp.Name)
		return out
	}
	return finish(videos, longest, 90)
}

// finish runs post-selection validation, then buckets the remaining
// videos. An invalid selection is discarded, not repaired.
func finish(videos []*probe.FileFacts, selected *probe.FileFacts, confidence int) VideoOutcome {
	if selected.NameFacts.Excluded {
		out := sortExtras(videos, nil)
		out.Reason = fmt.Sprintf("selected file %q failed validation: exclusion keyword %q", selected.Name, selected.NameFacts.ExclusionKeyword)
		out.Evidence.Excluded = append(out.Evidence.Excluded, candidateEvidence(selected))
		return out
	}
	if selected.Video == nil || !selected.Video.HasVideoStream {
		out := sortExtras(videos, nil)
		out.Reason = fmt.Sprintf("selected file %q failed validation: no probed video stream", selected.Name)
		out.Evidence.Candidates = append(out.Evidence.Candidates, candidateEvidence(selected))
		return out
	}

	out := sortExtras(videos, nil)
	out.Main = &Item{File: selected, Kind: models.AssetMainVideo, Confidence: confidence}

	// The selected file must not also appear as an extra or unknown.
	out.Trailers = removeFile(out.Trailers, selected)
	out.Unknown = removeFacts(out.Unknown, selected)
	return out
}

// sortExtras buckets every non-main video: trailer-keyword files are a
// cacheable asset, other exclusion keywords are extras left in place,
// and the rest stays unknown. Candidate evidence is recorded for all.
func sortExtras(videos []*probe.FileFacts, candidates []*probe.FileFacts) VideoOutcome {
	var out VideoOutcome
	for _, f := range videos {
		switch {
		case f.NameFacts.ExclusionKeyword == "trailer":
			out.Trailers = append(out.Trailers, Item{File: f, Kind: models.AssetTrailer, Confidence: 90})
		case f.NameFacts.Excluded:
			out.Extras = append(out.Extras, Item{File: f, Kind: models.AssetExtra, Confidence: AutoThreshold})
		default:
			out.Unknown = append(out.Unknown, f)
		}
	}
	for _, f := range candidates {
		out.Evidence.Candidates = append(out.Evidence.Candidates, candidateEvidence(f))
	}
	return out
}

// longestTwo returns the two candidates with the longest probed
// durations. Candidates without a probed duration can never win.
func longestTwo(candidates []*probe.FileFacts) (longest, runnerUp *probe.FileFacts) {
	for _, f := range candidates {
		if f.Video == nil {
			continue
		}
		switch {
		case longest == nil || f.Video.DurationSeconds > longest.Video.DurationSeconds:
			runnerUp = longest
			longest = f
		case runnerUp == nil || f.Video.DurationSeconds > runnerUp.Video.DurationSeconds:
			runnerUp = f
		}
	}
	return longest, runnerUp
}

func filterKind(files []*probe.FileFacts, kind probe.FileKind) []*probe.FileFacts {
	var out []*probe.FileFacts
	for _, f := range files {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func removeFile(items []Item, f *probe.FileFacts) []Item {
	var out []Item
	for _, it := range items {
		if it.File != f {
			out = append(out, it)
		}
	}
	return out
}

func removeFacts(facts []*probe.FileFacts, f *probe.FileFacts) []*probe.FileFacts {
	var out []*probe.FileFacts
	for _, x := range facts {
		if x != f {
			out = append(out, x)
		}
	}
	return out
}
