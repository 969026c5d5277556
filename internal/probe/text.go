package probe

import (
	"io"
	"log"
	"os"
	"regexp"
	"strings"
)

// textSampleBytes bounds how much of a text file is read. Sidecar files
// are small; anything informative sits in the first chunk.
const textSampleBytes = 64 << 10

var providerIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btt\d{7,}\b`),
	regexp.MustCompile(`(?i)\b(?:tmdb|themoviedb|tvdb|thetvdb)\b[^0-9]{0,16}(\d{1,10})`),
	regexp.MustCompile(`(?i)<uniqueid[^>]*>\s*([^<\s]+)\s*</uniqueid>`),
}

// xmlRootPattern accepts an optional XML declaration followed by a root
// element.
var xmlRootPattern = regexp.MustCompile(`(?s)^\s*(?:<\?xml[^>]*\?>\s*)?(?:<!--.*?-->\s*)*<[A-Za-z]`)

var subtitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}[,.]\d{2,3}\s*-->\s*\d{1,2}:\d{2}:\d{2}[,.]\d{2,3}`), // SRT/VTT cue
	regexp.MustCompile(`(?m)^Dialogue:`), // ASS/SSA event
}

func probeText(path string) *TextFacts {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("Probe: open failed for %s: %v", path, err)
		return nil
	}
	defer f.Close()

	buf := make([]byte, textSampleBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		log.Printf("Probe: read failed for %s: %v", path, err)
		return nil
	}
	sample := string(stripBOM(buf[:n]))

	facts := &TextFacts{Sample: sample}
	facts.ProviderID = FindProviderID(sample)
	facts.HasProviderID = facts.ProviderID != ""
	facts.LooksLikeNFO = xmlRootPattern.MatchString(sample) || facts.HasProviderID
	facts.LooksLikeSubtitle = looksLikeSubtitle(sample)
	return facts
}

// FindProviderID returns the first provider identifier found in the
// sample, "" when none. The id itself is opaque to this layer.
func FindProviderID(sample string) string {
	for _, pattern := range providerIDPatterns {
		m := pattern.FindStringSubmatch(sample)
		if m == nil {
			continue
		}
		if len(m) > 1 && m[1] != "" {
			return m[1]
		}
		return m[0]
	}
	return ""
}

func looksLikeSubtitle(sample string) bool {
	if strings.HasPrefix(strings.TrimSpace(sample), "WEBVTT") {
		return true
	}
	for _, pattern := range subtitlePatterns {
		if pattern.MatchString(sample) {
			return true
		}
	}
	return false
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
