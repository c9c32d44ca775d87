package transcript

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	vttTimeRe = regexp.MustCompile(`(?:(\d{1,2}):)?(\d{2}):(\d{2})[.,](\d{3})`)
	vttCueRe  = regexp.MustCompile(`^\s*(?:(\d{1,2}):)?(\d{2}):(\d{2})[.,](\d{3})\s*-->\s*(?:(\d{1,2}):)?(\d{2}):(\d{2})[.,](\d{3})`)
	vttTagRe  = regexp.MustCompile(`<[^>]*>`)
)

// ParseVTT parses a WEBVTT caption payload into segments. Inline markup tags
// are stripped, NOTE/STYLE/REGION blocks are skipped, and consecutive
// duplicate lines (rolling auto-captions repeat the previous line) are
// dropped.
func ParseVTT(raw string) []Segment {
	var segs []Segment
	var lastText string

	lines := strings.Split(raw, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		// Skip header and metadata blocks up to their blank line.
		if line == "" || strings.HasPrefix(line, "WEBVTT") ||
			strings.HasPrefix(line, "NOTE") ||
			strings.HasPrefix(line, "STYLE") ||
			strings.HasPrefix(line, "REGION") ||
			strings.HasPrefix(line, "Kind:") ||
			strings.HasPrefix(line, "Language:") {
			i++
			continue
		}

		m := vttCueRe.FindStringSubmatch(line)
		if m == nil {
			// Cue identifier line or stray text outside a cue.
			i++
			continue
		}

		start := vttClock(m[1], m[2], m[3], m[4])
		end := vttClock(m[5], m[6], m[7], m[8])
		i++

		// Collect the cue's text lines.
		var parts []string
		for i < len(lines) {
			text := strings.TrimSpace(lines[i])
			if text == "" {
				break
			}
			text = vttTagRe.ReplaceAllString(text, "")
			text = vttTimeRe.ReplaceAllString(text, "")
			text = CleanText(text)
			if text != "" && text != lastText {
				parts = append(parts, text)
				lastText = text
			}
			i++
		}

		if len(parts) > 0 {
			segs = append(segs, Segment{
				Start: start,
				End:   end,
				Text:  strings.Join(parts, " "),
			})
		}
	}

	return segs
}

func vttClock(h, m, s, ms string) float64 {
	hours := 0.0
	if h != "" {
		hv, _ := strconv.Atoi(h)
		hours = float64(hv)
	}
	mv, _ := strconv.Atoi(m)
	sv, _ := strconv.Atoi(s)
	msv, _ := strconv.Atoi(ms)
	return hours*3600 + float64(mv)*60 + float64(sv) + float64(msv)/1000
}
