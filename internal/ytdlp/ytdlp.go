package ytdlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var titleSanitizeRe = regexp.MustCompile(`[^\w\s-]`)

// Content is what acquisition yields for one video: audio for transcription
// and, when the platform provides them, raw VTT captions. Captions may be
// absent without being an error.
type Content struct {
	Title      string
	AudioPath  string
	CaptionVTT string
}

// Available returns true if yt-dlp is on the PATH.
func Available() bool {
	_, err := exec.LookPath("yt-dlp")
	return err == nil
}

// Fetch downloads the best-audio stream as mp3 plus any English subtitles
// (manual or auto-generated) for the given video URL. Files are written under
// dir with the given base name.
func Fetch(ctx context.Context, url, dir, base string) (*Content, error) {
	outTemplate := filepath.Join(dir, base+".%(ext)s")

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--user-agent", userAgent,
		"--referer", "https://www.youtube.com/",
		"--no-check-certificates",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "en.*",
		"--sub-format", "vtt",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "64K",
		"--format", "bestaudio/best",
		"--print", "after_move:title",
		"--no-warnings",
		"--quiet",
		"--output", outTemplate,
		url,
	)

	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("yt-dlp failed: %w\n%s", err, string(ee.Stderr))
		}
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}

	title := sanitizeTitle(strings.TrimSpace(string(out)))
	if title == "" {
		title = base
	}

	audioPath := filepath.Join(dir, base+".mp3")
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("yt-dlp produced no audio file: %w", err)
	}

	content := &Content{Title: title, AudioPath: audioPath}

	// Subtitle files land as <base>.<lang>.vtt; take the first match.
	// Missing captions are tolerated downstream.
	matches, _ := filepath.Glob(filepath.Join(dir, base+"*.vtt"))
	if len(matches) > 0 {
		raw, err := os.ReadFile(matches[0])
		if err != nil {
			slog.Warn("cannot read caption file", "path", matches[0], "err", err)
		} else {
			content.CaptionVTT = string(raw)
		}
		for _, m := range matches {
			os.Remove(m)
		}
	}

	return content, nil
}

// sanitizeTitle strips characters that are unsafe in filenames and collapses
// spaces to underscores.
func sanitizeTitle(title string) string {
	title = titleSanitizeRe.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)
	return strings.ReplaceAll(title, " ", "_")
}
