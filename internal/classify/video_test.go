package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakeep/mediakeep/internal/disc"
	"github.com/mediakeep/mediakeep/internal/filename"
	"github.com/mediakeep/mediakeep/internal/models"
	"github.com/mediakeep/mediakeep/internal/probe"
)

func videoFile(name string, duration float64, size int64) *probe.FileFacts {
	return &probe.FileFacts{
		Path:      "/library/item/" + name,
		Name:      name,
		Kind:      probe.KindVideo,
		Size:      size,
		NameFacts: filename.Analyze(name),
		Video: &probe.VideoFacts{
			DurationSeconds: duration,
			HasVideoStream:  true,
			HasAudioStream:  true,
		},
	}
}

func unprobedVideo(name string, size int64) *probe.FileFacts {
	return &probe.FileFacts{
		Path:      "/library/item/" + name,
		Name:      name,
		Kind:      probe.KindVideo,
		Size:      size,
		NameFacts: filename.Analyze(name),
	}
}

func TestSingleVideoAlwaysSelected(t *testing.T) {
	files := []*probe.FileFacts{videoFile("Movie.mkv", 5400, 1000)}
	out := ClassifyVideo(files, models.ScanHint{}, nil)

	require.NotNil(t, out.Main)
	assert.Equal(t, "Movie.mkv", out.Main.File.Name)
	assert.Equal(t, 100, out.Main.Confidence)
}

func TestSingleExcludedVideoFails(t *testing.T) {
	files := []*probe.FileFacts{videoFile("Movie-sample.mkv", 120, 1000)}
	out := ClassifyVideo(files, models.ScanHint{}, nil)

	assert.Nil(t, out.Main)
	assert.Contains(t, out.Reason, "exclusion keyword")
	require.Len(t, out.Evidence.Excluded, 1)
	assert.Equal(t, "sample", out.Evidence.Excluded[0].Keyword)
}

func TestSingleSurvivorAfterExclusions(t *testing.T) {
	files := []*probe.FileFacts{
		videoFile("Movie.mkv", 5400, 1000),
		videoFile("Movie-trailer.mkv", 120, 500),
	}
	out := ClassifyVideo(files, models.ScanHint{}, nil)

	require.NotNil(t, out.Main)
	assert.Equal(t, "Movie.mkv", out.Main.File.Name)
	assert.Equal(t, 95, out.Main.Confidence)
	require.Len(t, out.Trailers, 1)
	assert.Equal(t, models.AssetTrailer, out.Trailers[0].Kind)
}

func TestLongestDurationWinsRegardlessOfSize(t *testing.T) {
	// The "trailer" here carries no exclusion keyword and is both larger
	// and higher-resolution; only duration may decide.
	feature := videoFile("Feature.mkv", 5400, 1_000)
	extra := videoFile("Extra.mkv", 600, 50_000)
	extra.Video.Width = 3840
	extra.Video.Height = 2160

	out := ClassifyVideo([]*probe.FileFacts{extra, feature}, models.ScanHint{}, nil)
	require.NotNil(t, out.Main)
	assert.Equal(t, "Feature.mkv", out.Main.File.Name)
	assert.Equal(t, 90, out.Main.Confidence)
}

func TestDurationTieIsManual(t *testing.T) {
	a := videoFile("CD1.mkv", 5400.0, 1000)
	b := videoFile("CD2.mkv", 5400.4, 1000) // within the 1s tolerance

	out := ClassifyVideo([]*probe.FileFacts{a, b}, models.ScanHint{}, nil)
	assert.Nil(t, out.Main)
	assert.Contains(t, out.Reason, "tied duration")
	assert.Len(t, out.Evidence.Candidates, 2)
}

func TestDurationJustOutsideToleranceSelects(t *testing.T) {
	a := videoFile("A.mkv", 5400.0, 1000)
	b := videoFile("B.mkv", 5401.5, 1000)

	out := ClassifyVideo([]*probe.FileFacts{a, b}, models.ScanHint{}, nil)
	require.NotNil(t, out.Main)
	assert.Equal(t, "B.mkv", out.Main.File.Name)
}

func TestAllExcludedFails(t *testing.T) {
	files := []*probe.FileFacts{
		videoFile("Movie-trailer.mkv", 120, 100),
		videoFile("Movie-sample.mkv", 30, 50),
	}
	out := ClassifyVideo(files, models.ScanHint{}, nil)
	assert.Nil(t, out.Main)
	assert.Equal(t, "all video files carry exclusion keywords", out.Reason)
	assert.Len(t, out.Evidence.Excluded, 2)
}

func TestNoVideoFilesFails(t *testing.T) {
	out := ClassifyVideo(nil, models.ScanHint{}, nil)
	assert.Nil(t, out.Main)
	assert.Equal(t, "no video files in directory", out.Reason)
}

func TestHintSelectsExactName(t *testing.T) {
	files := []*probe.FileFacts{
		videoFile("A.mkv", 5400, 1000),
		videoFile("B.mkv", 5400, 1000), // would otherwise tie
	}
	out := ClassifyVideo(files, models.ScanHint{ExpectedFilename: "B.mkv"}, nil)
	require.NotNil(t, out.Main)
	assert.Equal(t, "B.mkv", out.Main.File.Name)
	assert.Equal(t, 100, out.Main.Confidence)
}

func TestDiscStructureShortCircuits(t *testing.T) {
	d := &disc.Structure{Type: disc.TypeBluRay, Root: "/library/item"}
	out := ClassifyVideo(nil, models.ScanHint{}, d)

	require.NotNil(t, out.Main)
	assert.Equal(t, 100, out.Main.Confidence)
	assert.Equal(t, "/library/item", out.Main.File.Path)
}

func TestPostSelectionValidationRejectsUnprobedStream(t *testing.T) {
	only := unprobedVideo("Movie.mkv", 1000)
	out := ClassifyVideo([]*probe.FileFacts{only}, models.ScanHint{}, nil)

	assert.Nil(t, out.Main)
	assert.Contains(t, out.Reason, "no probed video stream")
}

func TestUnprobedCandidateCannotWinOnDuration(t *testing.T) {
	probed := videoFile("A.mkv", 3600, 1000)
	unprobed := unprobedVideo("B.mkv", 90_000) // bigger, but no duration fact

	out := ClassifyVideo([]*probe.FileFacts{probed, unprobed}, models.ScanHint{}, nil)
	require.NotNil(t, out.Main)
	assert.Equal(t, "A.mkv", out.Main.File.Name)
}

func TestClassificationIsDeterministic(t *testing.T) {
	files := func() []*probe.FileFacts {
		return []*probe.FileFacts{
			videoFile("Movie.mkv", 5400, 1000),
			videoFile("Movie-trailer.mkv", 120, 500),
			videoFile("Other.mkv", 1200, 800),
		}
	}
	first := ClassifyVideo(files(), models.ScanHint{}, nil)
	second := ClassifyVideo(files(), models.ScanHint{}, nil)

	require.NotNil(t, first.Main)
	require.NotNil(t, second.Main)
	assert.Equal(t, first.Main.File.Name, second.Main.File.Name)
	assert.Equal(t, first.Main.Confidence, second.Main.Confidence)
}
