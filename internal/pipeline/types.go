package pipeline

// Chunk is one bounded window of both transcript variants covering the same
// time range. An absent variant is represented by an empty string.
type Chunk struct {
	Index       int
	Captions    string
	Transcribed string
	Budget      int
}

// Primary returns the higher-trust text of the chunk: the speech-to-text
// transcript when present, otherwise the captions.
func (c Chunk) Primary() string {
	if c.Transcribed != "" {
		return c.Transcribed
	}
	return c.Captions
}

// RewrittenChunk is the corrected prose for one chunk. Degraded marks a chunk
// whose rewrite could not be obtained; Prose then holds the raw fallback text.
type RewrittenChunk struct {
	Index    int
	Prose    string
	Degraded bool
}

// BionicToken is one token of the formatted narrative. Bold is the rune count
// of the emphasized core prefix (zero for punctuation-only tokens); Sep is the
// verbatim whitespace that followed the token. Concatenating Word+Sep over a
// token sequence reproduces the source text exactly.
type BionicToken struct {
	Word string
	Sep  string
	Bold int
}
