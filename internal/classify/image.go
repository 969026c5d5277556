package classify

import (
	"strings"

	"github.com/mediakeep/mediakeep/internal/models"
	"github.com/mediakeep/mediakeep/internal/probe"
)

// NamingMode selects the artwork filename convention in effect.
type NamingMode int

const (
	// NamingRegular expects "{mainBase}-{assetType}[N].ext".
	NamingRegular NamingMode = iota
	// NamingShort expects "{assetType}[N].ext" (disc layouts).
	NamingShort
)

// imageSpec is one asset type's matching rules: the alternate generic
// stems that directly identify it, and the aspect/dimension check that
// upgrades a weak keyword match.
type imageSpec struct {
	kind       models.AssetKind
	alternates []string
	check      func(probe.ImageFacts) bool
}

// imageSpecs is evaluated in this fixed priority order. A file is
// assigned to the first type it satisfies at or above AutoThreshold and
// is never re-scored against later types.
var imageSpecs = []imageSpec{
	{
		kind:       models.AssetPoster,
		alternates: []string{"poster", "folder", "cover", "movie"},
		check:      func(f probe.ImageFacts) bool { return between(f.AspectRatio(), 0.6, 0.75) },
	},
	{
		kind:       models.AssetFanart,
		alternates: []string{"fanart", "backdrop", "background"},
		check:      func(f probe.ImageFacts) bool { return between(f.AspectRatio(), 1.6, 1.9) && f.Width >= 1280 },
	},
	{
		kind:       models.AssetBanner,
		alternates: []string{"banner"},
		check:      func(f probe.ImageFacts) bool { return f.AspectRatio() >= 3.5 },
	},
	{
		kind:       models.AssetClearLogo,
		alternates: []string{"clearlogo", "logo"},
		check:      func(f probe.ImageFacts) bool { return f.AspectRatio() >= 2 && f.HasAlpha },
	},
	{
		kind:       models.AssetClearArt,
		alternates: []string{"clearart"},
		check:      func(f probe.ImageFacts) bool { return between(f.AspectRatio(), 1.5, 2.2) && f.HasAlpha },
	},
	{
		kind:       models.AssetDiscArt,
		alternates: []string{"discart", "disc"},
		check:      func(f probe.ImageFacts) bool { return between(f.AspectRatio(), 0.95, 1.05) && f.HasAlpha },
	},
	{
		kind:       models.AssetThumb,
		alternates: []string{"thumb", "landscape"},
		check:      func(f probe.ImageFacts) bool { return between(f.AspectRatio(), 1.6, 1.9) },
	},
	{
		kind:       models.AssetKeyart,
		alternates: []string{"keyart"},
		check:      func(f probe.ImageFacts) bool { return between(f.AspectRatio(), 0.6, 0.75) },
	},
}

// ImageOutcome is the image stage's contribution to the scan result.
type ImageOutcome struct {
	Images   []Item
	Unknown  []*probe.FileFacts
	Evidence []ImageEvidence
}

// ClassifyImages assigns artwork roles. mainBase is the main video's
// base name (without extension); it is ignored under NamingShort.
// Multiple files may land on the same asset type (fanart, fanart1,
// fanart2) — that is expected, not an error.
func ClassifyImages(files []*probe.FileFacts, mode NamingMode, mainBase string) ImageOutcome {
	var out ImageOutcome
	for _, f := range filterKind(files, probe.KindImage) {
		item, confidence := scoreImage(f, mode, mainBase)
		if item != nil {
			out.Images = append(out.Images, *item)
			out.Evidence = append(out.Evidence, ImageEvidence{Name: f.Name, Kind: string(item.Kind), Confidence: item.Confidence})
		} else {
			out.Unknown = append(out.Unknown, f)
			out.Evidence = append(out.Evidence, ImageEvidence{Name: f.Name, Confidence: confidence})
		}
	}
	return out
}

// scoreImage walks the priority order and stops at the first spec the
// file satisfies at AutoThreshold. Returns the best sub-threshold score
// for evidence when nothing matches.
func scoreImage(f *probe.FileFacts, mode NamingMode, mainBase string) (*Item, int) {
	best := 0
	for i := range imageSpecs {
		spec := &imageSpecs[i]
		score := scoreAgainst(f, spec, mode, mainBase)
		if score >= AutoThreshold {
			return &Item{File: f, Kind: spec.kind, Confidence: score}, score
		}
		if score > best {
			best = score
		}
	}
	return nil, best
}

func scoreAgainst(f *probe.FileFacts, spec *imageSpec, mode NamingMode, mainBase string) int {
	base := strings.ToLower(f.NameFacts.Base)
	stem := strings.ToLower(f.NameFacts.Stem)
	kind := string(spec.kind)

	expected := kind
	if mode == NamingRegular {
		expected = strings.ToLower(mainBase) + "-" + kind
	}

	// Exact expected name.
	if base == expected {
		return 90
	}
	// Numbered variant of the expected name.
	if f.NameFacts.VariantNumber > 0 && stem == expected {
		return 85
	}
	// Known generic alternate at the directory root ("poster.jpg").
	for _, alt := range spec.alternates {
		if base == alt || (f.NameFacts.VariantNumber > 0 && stem == alt) {
			return 80
		}
	}
	// Weakest signal: the asset type's own token somewhere in the name.
	// Alternates are too generic to use as substrings ("movie", "disc").
	// The aspect/dimension table upgrades the match to auto-accept.
	if strings.Contains(base, kind) {
		score := 60
		if f.Image != nil && spec.check(*f.Image) {
			score += 20
		}
		return score
	}
	return 0
}

func between(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
