package probe

import (
	"context"
	"image"
	"image/color"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/mediakeep/mediakeep/internal/ffmpeg"
	"github.com/mediakeep/mediakeep/internal/filename"
)

// VideoProber abstracts the ffprobe binary so tests can stub durations.
type VideoProber interface {
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}

type Prober struct {
	video        VideoProber
	videoTimeout time.Duration
	workers      int
}

func New(video VideoProber, videoTimeout time.Duration, workers int) *Prober {
	if workers <= 0 {
		workers = 1
	}
	return &Prober{video: video, videoTimeout: videoTimeout, workers: workers}
}

// File probes a single path. Probes are read-only and fail soft: a
// corrupt file yields facts with the failed sub-result absent, never an
// error that aborts the caller.
func (p *Prober) File(ctx context.Context, path string) *FileFacts {
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("Probe: stat failed for %s: %v", path, err)
		return nil
	}

	name := info.Name()
	facts := &FileFacts{
		Path:      path,
		Name:      name,
		Kind:      KindOf(name),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		NameFacts: filename.Analyze(name),
	}

	switch facts.Kind {
	case KindVideo:
		facts.Video = p.probeVideo(ctx, path)
	case KindImage:
		facts.Image = probeImage(path)
	case KindText:
		facts.Text = probeText(path)
	}
	return facts
}

// Directory probes every path concurrently, joins on all probes, then
// computes the cross-file rankings. The join is a hard barrier: ranks
// are only meaningful once every sibling has reported.
func (p *Prober) Directory(ctx context.Context, paths []string) []*FileFacts {
	results := make([]*FileFacts, len(paths))

	work := make(chan int, len(paths))
	for i := range paths {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = p.File(ctx, paths[i])
			}
		}()
	}
	wg.Wait()

	// Drop files that vanished between listing and probing.
	facts := make([]*FileFacts, 0, len(results))
	for _, f := range results {
		if f != nil {
			facts = append(facts, f)
		}
	}

	ComputeDirectoryContext(facts)
	return facts
}

func (p *Prober) probeVideo(ctx context.Context, path string) *VideoFacts {
	probeCtx, cancel := context.WithTimeout(ctx, p.videoTimeout)
	defer cancel()

	result, err := p.video.Probe(probeCtx, path)
	if err != nil {
		log.Printf("Probe: ffprobe failed for %s: %v", path, err)
		return nil
	}

	facts := &VideoFacts{
		DurationSeconds: result.GetDurationSeconds(),
		HasVideoStream:  result.HasVideoStream(),
		HasAudioStream:  result.HasAudioStream(),
		VideoCodec:      result.GetVideoCodec(),
		Width:           result.GetWidth(),
		Height:          result.GetHeight(),
	}
	for _, s := range result.Streams {
		if lang := s.Language(); lang != "" {
			facts.Languages = append(facts.Languages, lang)
		}
	}
	return facts
}

func probeImage(path string) *ImageFacts {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("Probe: open failed for %s: %v", path, err)
		return nil
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		log.Printf("Probe: image decode failed for %s: %v", path, err)
		return nil
	}

	return &ImageFacts{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   format,
		HasAlpha: modelHasAlpha(cfg.ColorModel),
	}
}

// modelHasAlpha reports whether the decoded color model carries an alpha
// channel. Header-level only; a fully opaque RGBA image still reports
// true, which is acceptable for the aspect/alpha asset checks.
func modelHasAlpha(m color.Model) bool {
	switch m {
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return true
	}
	return false
}

// ComputeDirectoryContext fills the directory-relative rank fields.
// Size ranks cover every probed file; duration ranks cover only files
// with a successful video probe. Rank 1 is the largest/longest.
func ComputeDirectoryContext(facts []*FileFacts) {
	bySize := make([]*FileFacts, len(facts))
	copy(bySize, facts)
	sort.SliceStable(bySize, func(i, j int) bool { return bySize[i].Size > bySize[j].Size })
	for i, f := range bySize {
		f.SizeRank = i + 1
		f.IsLargest = i == 0
	}

	var withDuration []*FileFacts
	for _, f := range facts {
		if f.Video != nil {
			withDuration = append(withDuration, f)
		}
	}
	sort.SliceStable(withDuration, func(i, j int) bool {
		return withDuration[i].Video.DurationSeconds > withDuration[j].Video.DurationSeconds
	})
	for i, f := range withDuration {
		f.DurationRank = i + 1
		f.IsLongest = i == 0
	}
}
