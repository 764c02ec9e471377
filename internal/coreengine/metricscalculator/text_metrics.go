// Package metricscalculator scores how closely generated text tracks the
// text it was produced from.
package metricscalculator

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// wordRuneBase is the start of the Unicode private use area. Each distinct
// word is encoded as one rune from here so the edit distance runs per word.
const wordRuneBase = 0xE000

// Words lower-cases text and splits it on anything that is not a letter or
// digit.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CalculateWER returns the word-level edit distance between reference and
// hypothesis divided by the number of reference words. Case and
// punctuation are ignored. An empty reference scores 0 against an empty
// hypothesis and 1 otherwise.
func CalculateWER(reference, hypothesis string) float64 {
	ref := Words(reference)
	hyp := Words(hypothesis)
	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0
		}
		return 1
	}

	src, dst := encodeWords(ref, hyp)
	distance := levenshtein.DistanceForStrings(src, dst, levenshtein.DefaultOptionsWithSub)
	return float64(distance) / float64(len(ref))
}

// PromptDrift scores a caption against the prompt that produced the image,
// clamped to [0, 1]. 0 means the caption repeats the prompt word for word.
func PromptDrift(prompt, caption string) float64 {
	wer := CalculateWER(prompt, caption)
	if wer > 1 {
		return 1
	}
	return wer
}

// encodeWords maps both word lists onto a shared alphabet of runes.
func encodeWords(ref, hyp []string) ([]rune, []rune) {
	alphabet := make(map[string]rune, len(ref)+len(hyp))
	encode := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			r, ok := alphabet[w]
			if !ok {
				r = rune(wordRuneBase + len(alphabet))
				alphabet[w] = r
			}
			out[i] = r
		}
		return out
	}
	return encode(ref), encode(hyp)
}
