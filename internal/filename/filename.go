// Package filename extracts classification signals from a file name
// alone. Analysis is pure: no filesystem access, same input always
// yields the same Facts.
package filename

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Facts is everything the classifier learns from a name. Filenames are
// untrustworthy, so each field is a signal, never a verdict.
type Facts struct {
	Base             string   // name without extension
	Stem             string   // Base without a trailing variant number
	Ext              string   // lowercase extension including the dot
	Year             int      // 0 when absent
	Resolution       string   // normalized token such as "1080p", "" when absent
	QualityTags      []string // release-source tokens found in the name
	VariantNumber    int      // fanart2 -> 2; 0 when the name is unnumbered
	Excluded         bool     // carries an exclusion keyword
	ExclusionKeyword string   // which keyword matched, "" when none
}

// exclusionKeywords disqualify a video from being the main feature when
// they appear as a hyphen/underscore-delimited suffix.
var exclusionKeywords = []string{
	"trailer", "sample", "behindthescenes", "deleted",
	"featurette", "interview", "scene", "short",
}

var yearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\((\d{4})\)`),           // Movie Title (2020)
	regexp.MustCompile(`\[(\d{4})\]`),           // Movie Title [2020]
	regexp.MustCompile(`[.\s_-](\d{4})[.\s_-]`), // Movie.Title.2020.1080p
}

var resolutionPattern = regexp.MustCompile(`(?i)\b(4320p|2160p|1080p|720p|576p|540p|480p|4k|8k|uhd)\b`)

var qualityPattern = regexp.MustCompile(`(?i)\b(bluray|blu-ray|brrip|bdrip|remux|web-dl|webdl|webrip|hdtv|hdrip|dvdrip|x264|x265|h264|h265|hevc|proper|repack|extended|unrated)\b`)

var variantPattern = regexp.MustCompile(`^(.*?[^\d])(\d{1,2})$`)

// Analyze parses one file name into Facts.
func Analyze(name string) Facts {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	facts := Facts{
		Base: base,
		Stem: base,
		Ext:  ext,
	}

	for _, pattern := range yearPatterns {
		if m := pattern.FindStringSubmatch(base); len(m) >= 2 {
			if year, err := strconv.Atoi(m[1]); err == nil && year >= 1900 && year <= 2100 {
				facts.Year = year
				break
			}
		}
	}

	if m := resolutionPattern.FindString(base); m != "" {
		facts.Resolution = normalizeResolution(m)
	}

	for _, m := range qualityPattern.FindAllString(base, -1) {
		facts.QualityTags = append(facts.QualityTags, strings.ToLower(m))
	}

	if m := variantPattern.FindStringSubmatch(base); len(m) == 3 {
		if n, err := strconv.Atoi(m[2]); err == nil {
			facts.Stem = strings.TrimRight(m[1], " ")
			facts.VariantNumber = n
		}
	}

	facts.ExclusionKeyword = findExclusionKeyword(base)
	facts.Excluded = facts.ExclusionKeyword != ""

	return facts
}

func normalizeResolution(token string) string {
	switch strings.ToLower(token) {
	case "4k", "uhd":
		return "2160p"
	case "8k":
		return "4320p"
	default:
		return strings.ToLower(token)
	}
}

func findExclusionKeyword(base string) string {
	lower := strings.ToLower(base)

	// Delimited suffix form: "Movie-trailer", "Movie_sample2".
	for _, kw := range exclusionKeywords {
		for _, sep := range []string{"-", "_"} {
			idx := strings.LastIndex(lower, sep+kw)
			if idx < 0 {
				continue
			}
			rest := lower[idx+len(sep)+len(kw):]
			if rest == "" || isDigits(rest) {
				return kw
			}
		}
	}

	// Bare "sample" anywhere in the name, token-delimited.
	for _, token := range strings.FieldsFunc(lower, isSeparator) {
		if token == "sample" {
			return "sample"
		}
	}
	return ""
}

func isSeparator(r rune) bool {
	switch r {
	case '.', ' ', '_', '-', '[', ']', '(', ')':
		return true
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
