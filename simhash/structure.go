package simhash

import (
	"strings"

	"golang.org/x/net/html"
)

// shingleSize is the number of consecutive tags hashed as one token.
const shingleSize = 3

// FingerprintStructure fingerprints the tag sequence of markup, ignoring
// text and attributes. Blocks rendered from the same template land close
// together even when their text differs.
func FingerprintStructure(markup string) uint64 {
	tags := openTags(markup)
	if len(tags) == 0 {
		return 0
	}
	if len(tags) < shingleSize {
		return fromTokens(tags)
	}
	return fromTokens(shingles(tags, shingleSize))
}

func openTags(markup string) []string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var tags []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tags = append(tags, string(name))
		}
	}
}

func shingles(toks []string, n int) []string {
	out := make([]string, 0, len(toks)-n+1)
	for i := 0; i+n <= len(toks); i++ {
		out = append(out, strings.Join(toks[i:i+n], "_"))
	}
	return out
}
