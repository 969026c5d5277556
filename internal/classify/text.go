package classify

import (
	"github.com/mediakeep/mediakeep/internal/models"
	"github.com/mediakeep/mediakeep/internal/probe"
)

// TextOutcome is the text stage's contribution to the scan result.
type TextOutcome struct {
	Texts      []Item
	Unknown    []*probe.FileFacts
	ProviderID string // first provider id found in any verified NFO
}

// ClassifyText resolves NFO and subtitle sidecars. Classification is
// extension-gated and then content-verified: an .nfo without XML or a
// provider id, or an .srt without timestamps, stays unknown rather than
// being forced into a role.
func ClassifyText(files []*probe.FileFacts) TextOutcome {
	var out TextOutcome
	for _, f := range filterKind(files, probe.KindText) {
		if f.Text == nil {
			// Probe failed; without content there is no verification.
			out.Unknown = append(out.Unknown, f)
			continue
		}

		switch {
		case probe.IsNFOExt(f.NameFacts.Ext) && f.Text.LooksLikeNFO:
			out.Texts = append(out.Texts, Item{File: f, Kind: models.AssetNFO, Confidence: 90})
			if out.ProviderID == "" && f.Text.HasProviderID {
				out.ProviderID = f.Text.ProviderID
			}
		case probe.IsSubtitleExt(f.NameFacts.Ext) && f.Text.LooksLikeSubtitle:
			out.Texts = append(out.Texts, Item{File: f, Kind: models.AssetSubtitle, Confidence: 90})
		default:
			out.Unknown = append(out.Unknown, f)
		}
	}
	return out
}
