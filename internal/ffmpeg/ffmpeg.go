package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// MaxUploadMB is the largest audio file sent to the transcription API in one
// request; anything bigger is split first.
const MaxUploadMB = 24

// DefaultSegmentSec is the split segment length. Fifteen minutes of 64kbps
// audio is ~7MB, comfortably under the upload limit.
const DefaultSegmentSec = 900

// Available returns true if ffmpeg is on the PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// probeOutput mirrors ffprobe JSON structure.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration uses ffprobe to get the media duration in seconds.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("ffprobe JSON parse error: %w", err)
	}

	dur, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	return dur, nil
}

// SplitAudio cuts an audio file into segments of segmentSec seconds without
// re-encoding. Returns the sorted list of segment file paths.
func SplitAudio(ctx context.Context, audioPath, outputDir string, segmentSec int) ([]string, error) {
	if segmentSec <= 0 {
		segmentSec = DefaultSegmentSec
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	outputTemplate := filepath.Join(outputDir, baseName+"_part_%03d.mp3")

	slog.Info("splitting audio for upload", "file", filepath.Base(audioPath), "segment_sec", segmentSec)

	cmd := exec.CommandContext(ctx,
		"ffmpeg", "-i", audioPath,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSec),
		"-c", "copy",
		"-y",
		outputTemplate,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg split failed: %w\n%s", err, string(out))
	}

	pattern := filepath.Join(outputDir, baseName+"_part_*.mp3")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob segment files: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no segment files")
	}

	sort.Strings(matches)
	return matches, nil
}
