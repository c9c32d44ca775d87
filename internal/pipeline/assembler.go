package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// dedupeWindow is how many trailing sentences of the previous chunk are
// compared against the leading sentences of the next one.
const dedupeWindow = 3

// AssemblyError reports a gap in the rewritten chunk sequence.
type AssemblyError struct {
	MissingIndex int
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly: missing chunk %d", e.MissingIndex)
}

// Assemble concatenates rewritten chunks in index order into one narrative,
// stripping sentences at chunk boundaries that restate the previous chunk's
// tail (the chunker's overlap window makes adjacent chunks share context).
// Degraded chunks are assembled like any other; only a missing index fails.
func Assemble(chunks []RewrittenChunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	ordered := append([]RewrittenChunk(nil), chunks...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	for i, c := range ordered {
		if c.Index != i {
			return "", &AssemblyError{MissingIndex: i}
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(ordered[0].Prose))

	for i := 1; i < len(ordered); i++ {
		prev := strings.TrimSpace(ordered[i-1].Prose)
		next := strings.TrimSpace(ordered[i].Prose)

		trimmed, matched := stripOverlap(prev, next)
		if trimmed == "" {
			continue
		}
		if matched {
			b.WriteString(" ")
		} else {
			// No confident duplicate: keep everything, separated by a
			// paragraph break.
			b.WriteString("\n\n")
		}
		b.WriteString(trimmed)
	}

	return b.String(), nil
}

// stripOverlap drops leading sentences of next that exactly restate (after
// normalization) one of the last dedupeWindow sentences of prev. It stops at
// the first non-matching sentence and never drops on a partial match.
func stripOverlap(prev, next string) (string, bool) {
	prevSentences := splitSentences(prev)
	if len(prevSentences) > dedupeWindow {
		prevSentences = prevSentences[len(prevSentences)-dedupeWindow:]
	}

	tailSet := make(map[string]bool, len(prevSentences))
	for _, s := range prevSentences {
		if key := normalizeSentence(s); key != "" {
			tailSet[key] = true
		}
	}
	if len(tailSet) == 0 {
		return next, false
	}

	nextSentences := splitSentences(next)
	drop := 0
	for drop < len(nextSentences) && drop < dedupeWindow {
		key := normalizeSentence(nextSentences[drop])
		if key == "" || !tailSet[key] {
			break
		}
		drop++
	}

	if drop == 0 {
		return next, false
	}
	return strings.TrimSpace(strings.Join(nextSentences[drop:], " ")), true
}

// splitSentences breaks text at sentence-final punctuation followed by a
// space, keeping the punctuation with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 >= len(runes) || unicode.IsSpace(runes[i+1])) {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// normalizeSentence lowercases and strips everything but letters, digits and
// single spaces, so case and punctuation differences do not defeat the
// duplicate check.
func normalizeSentence(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}
