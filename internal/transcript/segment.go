package transcript

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Source identifies where a transcript variant came from.
type Source string

const (
	// SourceCaptions is the platform-provided caption track. Available
	// immediately but lower trust on wording.
	SourceCaptions Source = "captions"
	// SourceTranscribed is the speech-to-text output. Higher trust on
	// wording, may be absent if transcription failed.
	SourceTranscribed Source = "transcribed"
)

// Segment is one timestamped piece of transcript text.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Variant is one independently-sourced transcript of the same audio.
type Variant struct {
	Source   Source
	Segments []Segment
}

// Text joins all segment texts with single spaces.
func (v *Variant) Text() string {
	if v == nil {
		return ""
	}
	parts := make([]string, 0, len(v.Segments))
	for _, s := range v.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// MalformedInputError reports a source that was said to be present but
// yielded no usable segments.
type MalformedInputError struct {
	Source Source
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s input: %s", e.Source, e.Reason)
}

// Normalize canonicalizes raw segments: sorts them by start time (stable, so
// equal timestamps keep source order), strips control characters, collapses
// whitespace runs to single spaces, and drops segments left empty. Returns a
// MalformedInputError if nothing survives.
func Normalize(source Source, segs []Segment) ([]Segment, error) {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		text := CleanText(s.Text)
		if text == "" {
			continue
		}
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		out = append(out, Segment{Start: s.Start, End: s.End, Text: text})
	}

	if len(out) == 0 {
		return nil, &MalformedInputError{Source: source, Reason: "no segments"}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out, nil
}

// CleanText removes control characters and collapses internal whitespace
// runs to single spaces.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
