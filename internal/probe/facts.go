package probe

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/mediakeep/mediakeep/internal/filename"
)

// FileKind partitions directory entries by extension before any content
// is read.
type FileKind string

const (
	KindVideo FileKind = "video"
	KindImage FileKind = "image"
	KindText  FileKind = "text"
	KindOther FileKind = "other"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".m4v": true, ".wmv": true, ".flv": true, ".webm": true,
	".ts": true, ".m2ts": true, ".mpg": true, ".mpeg": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tiff": true, ".tif": true,
}

var nfoExtensions = map[string]bool{
	".nfo": true, ".xml": true,
}

var subtitleExtensions = map[string]bool{
	".srt": true, ".sub": true, ".ssa": true, ".ass": true, ".vtt": true,
}

func KindOf(name string) FileKind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case videoExtensions[ext]:
		return KindVideo
	case imageExtensions[ext]:
		return KindImage
	case nfoExtensions[ext] || subtitleExtensions[ext]:
		return KindText
	default:
		return KindOther
	}
}

func IsNFOExt(ext string) bool      { return nfoExtensions[strings.ToLower(ext)] }
func IsSubtitleExt(ext string) bool { return subtitleExtensions[strings.ToLower(ext)] }

// VideoFacts are best-effort results from an ffprobe run.
type VideoFacts struct {
	DurationSeconds float64
	HasVideoStream  bool
	HasAudioStream  bool
	VideoCodec      string
	Width           int
	Height          int
	Languages       []string
}

// ImageFacts come from decoding the image header.
type ImageFacts struct {
	Width    int
	Height   int
	Format   string
	HasAlpha bool
}

// AspectRatio returns width/height, 0 for degenerate dimensions.
func (f ImageFacts) AspectRatio() float64 {
	if f.Height <= 0 {
		return 0
	}
	return float64(f.Width) / float64(f.Height)
}

// TextFacts come from sampling the head of a text file.
type TextFacts struct {
	Sample            string
	HasProviderID     bool
	ProviderID        string
	LooksLikeNFO      bool
	LooksLikeSubtitle bool
}

// FileFacts is the complete per-file evidence bundle for one scan pass.
// Probe sub-results are nil when the probe failed or did not apply; a
// failed probe never fails the directory. The rank fields are zero until
// the directory context is computed.
type FileFacts struct {
	Path    string
	Name    string
	Kind    FileKind
	Size    int64
	ModTime time.Time

	NameFacts filename.Facts
	Video     *VideoFacts
	Image     *ImageFacts
	Text      *TextFacts

	// Directory-relative, valid only after ComputeDirectoryContext.
	SizeRank     int
	DurationRank int
	IsLargest    bool
	IsLongest    bool
}
