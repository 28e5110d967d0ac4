// Package simhash computes 64-bit SimHash fingerprints of extracted text and
// markup so near-duplicate blocks can be recognised by Hamming distance.
package simhash

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Fingerprint computes a 64-bit SimHash of text. Tokens are whitespace
// separated words, lower-cased, with surrounding punctuation stripped.
func Fingerprint(text string) uint64 {
	return fromTokens(tokens(text))
}

// FingerprintAll fingerprints several fragments as one text.
func FingerprintAll(fragments []string) uint64 {
	var toks []string
	for _, f := range fragments {
		toks = append(toks, tokens(f)...)
	}
	return fromTokens(toks)
}

// Hex formats a fingerprint as 16 lower-case hex digits.
func Hex(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func tokens(text string) []string {
	words := strings.Fields(text)
	out := words[:0]
	for _, w := range words {
		w = strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func fromTokens(toks []string) uint64 {
	if len(toks) == 0 {
		return 0
	}

	var vector [64]int
	h := fnv.New64a()
	for _, tok := range toks {
		h.Reset()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i, v := range vector {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}
