package probe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeText(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProbeTextNFO(t *testing.T) {
	nfo := `<?xml version="1.0" encoding="UTF-8"?>
<movie>
  <title>Some Movie</title>
  <uniqueid type="imdb" default="true">tt1234567</uniqueid>
</movie>`

	facts := probeText(writeText(t, "movie.nfo", nfo))
	require.NotNil(t, facts)
	assert.True(t, facts.LooksLikeNFO)
	assert.True(t, facts.HasProviderID)
	assert.Equal(t, "tt1234567", facts.ProviderID)
	assert.False(t, facts.LooksLikeSubtitle)
}

func TestProbeTextBareIMDbURL(t *testing.T) {
	facts := probeText(writeText(t, "movie.nfo", "https://www.imdb.com/title/tt0111161/\n"))
	require.NotNil(t, facts)
	assert.True(t, facts.HasProviderID)
	assert.Equal(t, "tt0111161", facts.ProviderID)
	// A provider id alone marks the file as NFO-worthy content.
	assert.True(t, facts.LooksLikeNFO)
}

func TestProbeTextSubtitleSRT(t *testing.T) {
	srt := `1
00:00:01,000 --> 00:00:04,000
Hello there.

2
00:00:05,000 --> 00:00:07,500
General Kenobi.`

	facts := probeText(writeText(t, "movie.srt", srt))
	require.NotNil(t, facts)
	assert.True(t, facts.LooksLikeSubtitle)
	assert.False(t, facts.LooksLikeNFO)
}

func TestProbeTextSubtitleASS(t *testing.T) {
	ass := `[Events]
Format: Layer, Start, End, Style, Text
Dialogue: 0,0:00:01.00,0:00:04.00,Default,Hello`

	facts := probeText(writeText(t, "movie.ass", ass))
	require.NotNil(t, facts)
	assert.True(t, facts.LooksLikeSubtitle)
}

func TestProbeTextPlainGarbage(t *testing.T) {
	facts := probeText(writeText(t, "movie.nfo", "just some notes, nothing structured"))
	require.NotNil(t, facts)
	assert.False(t, facts.LooksLikeNFO)
	assert.False(t, facts.LooksLikeSubtitle)
	assert.False(t, facts.HasProviderID)
}

func TestFindProviderID(t *testing.T) {
	tests := []struct {
		sample string
		want   string
	}{
		{"tt1234567", "tt1234567"},
		{"tmdb id: 550", "550"},
		{"themoviedb.org/movie/550", "550"},
		{`<uniqueid type="tmdb">603</uniqueid>`, "603"},
		{"tt123", ""}, // too short for an IMDb id
		{"no ids here", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FindProviderID(tt.sample), tt.sample)
	}
}
