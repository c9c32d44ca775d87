package pipeline

import (
	"strings"

	"github.com/NeelM47/video-to-book/internal/transcript"
)

const (
	// DefaultCharBudget bounds the characters per chunk; the synthesis
	// prompt carries two transcripts, so the window stays well under the
	// rewrite model's input limit.
	DefaultCharBudget = 6000

	// DefaultOverlapSegments is how many trailing segments of a closed
	// chunk are repeated at the start of the next one.
	DefaultOverlapSegments = 2
)

// BuildChunks splits the transcript variants into bounded windows. Chunk
// boundaries follow the higher-trust variant's segment timing; the other
// variant's text is sliced to each chunk's time range. Either variant may be
// nil, but not both.
func BuildChunks(captions, transcribed *transcript.Variant, budget, overlap int) []Chunk {
	if budget <= 0 {
		budget = DefaultCharBudget
	}
	if overlap < 0 {
		overlap = DefaultOverlapSegments
	}

	primary := transcribed
	secondary := captions
	if primary == nil {
		primary, secondary = captions, nil
	}
	if primary == nil || len(primary.Segments) == 0 {
		return nil
	}

	var chunks []Chunk
	var window []transcript.Segment
	chars := 0
	fresh := 0 // segments appended since the last flush

	flush := func() {
		chunks = append(chunks, sliceChunk(len(chunks), window, primary.Source, secondary, budget))

		// Seed the next window with the trailing overlap segments.
		keep := overlap
		if keep > len(window) {
			keep = len(window)
		}
		window = append([]transcript.Segment(nil), window[len(window)-keep:]...)
		chars = 0
		for _, s := range window {
			chars += len(s.Text) + 1
		}
		fresh = 0
	}

	for _, seg := range primary.Segments {
		need := len(seg.Text) + 1
		// A single oversized segment is never split; it just produces a
		// chunk that exceeds the budget.
		if fresh > 0 && chars+need > budget {
			flush()
		}
		window = append(window, seg)
		chars += need
		fresh++
	}

	if fresh > 0 {
		chunks = append(chunks, sliceChunk(len(chunks), window, primary.Source, secondary, budget))
	}

	return chunks
}

// sliceChunk builds a Chunk from a window of primary segments, slicing the
// secondary variant's text to the window's time range.
func sliceChunk(index int, window []transcript.Segment, primarySource transcript.Source, secondary *transcript.Variant, budget int) Chunk {
	primaryText := joinSegments(window)
	secondaryText := ""
	if secondary != nil {
		start := window[0].Start
		end := window[len(window)-1].End
		secondaryText = sliceByTime(secondary.Segments, start, end)
	}

	c := Chunk{Index: index, Budget: budget}
	if primarySource == transcript.SourceTranscribed {
		c.Transcribed = primaryText
		c.Captions = secondaryText
	} else {
		c.Captions = primaryText
		c.Transcribed = secondaryText
	}
	return c
}

// sliceByTime joins the text of all segments overlapping [start, end].
func sliceByTime(segs []transcript.Segment, start, end float64) string {
	var parts []string
	for _, s := range segs {
		if s.End < start {
			continue
		}
		if s.Start > end {
			break
		}
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

func joinSegments(segs []transcript.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
