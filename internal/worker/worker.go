package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/NeelM47/video-to-book/internal/config"
	"github.com/NeelM47/video-to-book/internal/epub"
	"github.com/NeelM47/video-to-book/internal/ffmpeg"
	"github.com/NeelM47/video-to-book/internal/groq"
	"github.com/NeelM47/video-to-book/internal/pipeline"
	"github.com/NeelM47/video-to-book/internal/transcript"
	"github.com/NeelM47/video-to-book/internal/ytdlp"
)

// Options configures one conversion run.
type Options struct {
	Config *config.Config
	Client *groq.Client
}

// Run converts one video URL into a bionic-formatted EPUB. The returned
// Result always describes the outcome; the error return is reserved for
// context cancellation.
func Run(ctx context.Context, url string, opts Options) (Result, error) {
	runID := uuid.NewString()[:8]
	res := Result{RunID: runID, URL: url, Status: StatusFailed}

	log := slog.With("run", runID)
	log.Info("processing video", "url", url)

	tempDir := opts.Config.Paths.Temp
	base := "vid_" + runID

	// 1. Acquire audio and platform captions.
	content, err := ytdlp.Fetch(ctx, url, tempDir, base)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Reason = fmt.Sprintf("acquisition failed: %v", err)
		return res, nil
	}
	defer os.Remove(content.AudioPath)
	res.Title = content.Title

	// 2. Normalize the caption variant, when present.
	captions, err := captionVariant(content.CaptionVTT)
	if err != nil {
		res.Reason = err.Error()
		return res, nil
	}

	// 3. Transcribe. A failed transcription leaves the variant absent
	// rather than failing the video.
	transcribed := transcribeVariant(ctx, content.AudioPath, opts, log)
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	if captions == nil && transcribed == nil {
		res.Reason = "no transcript variant available"
		return res, nil
	}

	// 4. Chunk, reconcile, assemble, format.
	chunks := pipeline.BuildChunks(captions, transcribed,
		opts.Config.Pipeline.CharBudget, opts.Config.Pipeline.OverlapSegments)
	if len(chunks) == 0 {
		res.Reason = "transcript produced no chunks"
		return res, nil
	}
	res.TotalChunks = len(chunks)
	log.Info("reconciling chunks", "count", len(chunks))

	reconciler := &pipeline.Reconciler{
		Rewriter:   opts.Client,
		MaxRetries: opts.Config.Pipeline.MaxRetries,
	}
	rewritten, err := reconciler.Reconcile(ctx, chunks)
	if err != nil {
		return res, err
	}
	for _, rc := range rewritten {
		if rc.Degraded {
			res.DegradedChunks++
		}
	}

	narrative, err := pipeline.Assemble(rewritten)
	if err != nil {
		res.Reason = err.Error()
		return res, nil
	}

	tokens := pipeline.BionicTokens(narrative)

	// 5. Build the book.
	title := content.Title
	if title == "" {
		title = base
	}
	outPath := outputPath(opts.Config.Paths.Output, title, runID)
	if err := epub.Write(outPath, title, tokens); err != nil {
		res.Reason = fmt.Sprintf("epub write failed: %v", err)
		return res, nil
	}

	res.OutputPath = outPath
	if res.DegradedChunks > 0 {
		res.Status = StatusDegraded
		res.Reason = fmt.Sprintf("%d of %d chunks used raw fallback text", res.DegradedChunks, res.TotalChunks)
	} else {
		res.Status = StatusSuccess
	}
	log.Info("book created", "path", outPath, "status", res.Status)
	return res, nil
}

// outputPath picks the book's destination, suffixing the run ID when a
// same-titled book already exists.
func outputPath(dir, title, runID string) string {
	p := filepath.Join(dir, title+".epub")
	if _, err := os.Stat(p); err == nil {
		p = filepath.Join(dir, title+"_"+runID+".epub")
	}
	return p
}

// captionVariant parses and normalizes the platform caption payload. An
// empty payload means the variant is absent; a payload that parses to
// nothing is malformed input and fails the video.
func captionVariant(vtt string) (*transcript.Variant, error) {
	if vtt == "" {
		return nil, nil
	}
	segs, err := transcript.Normalize(transcript.SourceCaptions, transcript.ParseVTT(vtt))
	if err != nil {
		return nil, err
	}
	return &transcript.Variant{Source: transcript.SourceCaptions, Segments: segs}, nil
}

// transcribeVariant runs speech-to-text over the audio, splitting oversized
// files first. Any failure is logged and yields a nil variant.
func transcribeVariant(ctx context.Context, audioPath string, opts Options, log *slog.Logger) *transcript.Variant {
	segs, err := transcribeAudio(ctx, audioPath, opts)
	if err != nil {
		log.Warn("transcription unavailable", "err", err)
		return nil
	}

	normalized, err := transcript.Normalize(transcript.SourceTranscribed, segs)
	if err != nil {
		log.Warn("transcription yielded no usable segments", "err", err)
		return nil
	}
	return &transcript.Variant{Source: transcript.SourceTranscribed, Segments: normalized}
}

func transcribeAudio(ctx context.Context, audioPath string, opts Options) ([]transcript.Segment, error) {
	stat, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("stat audio: %w", err)
	}
	sizeMB := float64(stat.Size()) / (1024 * 1024)

	lang := opts.Config.Groq.Language

	if sizeMB <= ffmpeg.MaxUploadMB || !ffmpeg.Available() {
		return opts.Client.Transcribe(ctx, audioPath, lang)
	}

	slog.Info("audio exceeds upload limit, splitting", "size_mb", fmt.Sprintf("%.1f", sizeMB))
	parts, err := ffmpeg.SplitAudio(ctx, audioPath, filepath.Dir(audioPath), ffmpeg.DefaultSegmentSec)
	if err != nil {
		return nil, fmt.Errorf("split audio: %w", err)
	}
	defer func() {
		for _, p := range parts {
			os.Remove(p)
		}
	}()

	partSegs := make([][]transcript.Segment, 0, len(parts))
	durations := make([]float64, 0, len(parts))
	for i, part := range parts {
		segs, err := opts.Client.Transcribe(ctx, part, lang)
		if err != nil {
			return nil, fmt.Errorf("transcribe part %d/%d: %w", i+1, len(parts), err)
		}
		partSegs = append(partSegs, segs)

		// The copy-codec split cuts on frame boundaries, so parts are not
		// exactly the nominal length. Probe the real duration and fall back
		// to the nominal one only when ffprobe cannot answer.
		dur, err := ffmpeg.ProbeDuration(ctx, part)
		if err != nil || dur <= 0 {
			slog.Warn("probe failed, assuming nominal segment length", "part", filepath.Base(part), "err", err)
			dur = float64(ffmpeg.DefaultSegmentSec)
		}
		durations = append(durations, dur)
	}
	return mergeParts(partSegs, durations), nil
}

// mergeParts concatenates per-part transcription segments, shifting each
// part's timestamps by the combined duration of the parts before it.
func mergeParts(parts [][]transcript.Segment, durations []float64) []transcript.Segment {
	var all []transcript.Segment
	var offset float64
	for i, segs := range parts {
		for _, s := range segs {
			s.Start += offset
			s.End += offset
			all = append(all, s)
		}
		offset += durations[i]
	}
	return all
}
