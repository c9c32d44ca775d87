package pipeline

import (
	"unicode"
)

// BionicTokens walks the narrative and emits one token per whitespace-
// separated word, preserving inter-word whitespace verbatim in Sep. For each
// token the emphasized prefix length is computed over its core (the token
// minus leading/trailing punctuation): ceil(n/2) runes for an n-rune core,
// zero for punctuation-only tokens. Pure and deterministic.
func BionicTokens(narrative string) []BionicToken {
	if narrative == "" {
		return nil
	}

	var tokens []BionicToken
	runes := []rune(narrative)
	i := 0

	// Leading whitespace belongs to a token with an empty word so the
	// round-trip stays exact.
	if unicode.IsSpace(runes[0]) {
		j := 0
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		tokens = append(tokens, BionicToken{Sep: string(runes[:j])})
		i = j
	}

	for i < len(runes) {
		j := i
		for j < len(runes) && !unicode.IsSpace(runes[j]) {
			j++
		}
		word := string(runes[i:j])

		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		sep := string(runes[j:k])
		i = k

		tokens = append(tokens, BionicToken{
			Word: word,
			Sep:  sep,
			Bold: boldPrefixLen(word),
		})
	}

	return tokens
}

// boldPrefixLen returns ceil(n/2) for an n-rune core, 0 when the token has no
// letters or digits.
func boldPrefixLen(word string) int {
	_, core, _ := SplitCore(word)
	n := len([]rune(core))
	if n == 0 {
		return 0
	}
	return (n + 1) / 2
}

// SplitCore splits a token into its leading punctuation, core, and trailing
// punctuation. The core spans from the first letter/digit to the last one,
// so interior punctuation (apostrophes, hyphens) stays inside the core.
func SplitCore(word string) (lead, core, trail string) {
	runes := []rune(word)

	start := 0
	for start < len(runes) && !isCoreRune(runes[start]) {
		start++
	}
	if start == len(runes) {
		return word, "", ""
	}

	end := len(runes)
	for end > start && !isCoreRune(runes[end-1]) {
		end--
	}

	return string(runes[:start]), string(runes[start:end]), string(runes[end:])
}

func isCoreRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
