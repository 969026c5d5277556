package classify

import (
	"github.com/mediakeep/mediakeep/internal/disc"
	"github.com/mediakeep/mediakeep/internal/models"
	"github.com/mediakeep/mediakeep/internal/probe"
)

// Decide reduces the three stage outcomes to the final processing
// decision. leftovers are files no classifier claimed (unrecognized
// extensions). Automation needs two things: a resolved main video and
// a provider identifier from any source. Unknown leftovers downgrade
// the status but never block.
func Decide(video VideoOutcome, text TextOutcome, images ImageOutcome, leftovers []*probe.FileFacts, d *disc.Structure, hint models.ScanHint) Result {
	result := Result{
		Disc:      d,
		MainVideo: video.Main,
		Trailers:  video.Trailers,
		Extras:    video.Extras,
		Images:    images.Images,
		Texts:     text.Texts,
		Evidence:  video.Evidence,
	}
	result.Unknown = append(result.Unknown, video.Unknown...)
	result.Unknown = append(result.Unknown, text.Unknown...)
	result.Unknown = append(result.Unknown, images.Unknown...)
	result.Unknown = append(result.Unknown, leftovers...)
	result.Evidence.Images = images.Evidence
	for _, f := range result.Unknown {
		result.Evidence.Unknown = append(result.Evidence.Unknown, f.Name)
	}

	result.ProviderID = hint.ProviderID
	if result.ProviderID == "" {
		result.ProviderID = text.ProviderID
	}

	switch {
	case result.MainVideo == nil:
		result.Status = StatusManualRequired
		result.Reason = video.Reason
	case result.MainVideo.Confidence < MainVideoThreshold:
		result.Status = StatusManualRequired
		result.Reason = "main video confidence below threshold"
	case result.ProviderID == "":
		result.Status = StatusManualRequired
		result.Reason = "no provider identifier from any source"
	case len(result.Unknown) > 0:
		result.Status = StatusCanProcessWithUnknowns
	default:
		result.Status = StatusCanProcess
	}
	return result
}
