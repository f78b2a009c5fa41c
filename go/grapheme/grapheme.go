// Package grapheme segments strings into grapheme clusters using a
// simplified joiner heuristic, and classifies clusters as emoji.
package grapheme

import (
	"unicode"
	"unicode/utf8"
)

const (
	// zwj is the zero-width joiner, binding adjacent code points into a
	// single glyph.
	zwj = '\u200d'
	// vs16 is the variation selector forcing emoji presentation of the
	// preceding code point.
	vs16 = '\ufe0f'
)

// Joiner reports whether r is a joining control: the zero-width joiner or
// the emoji presentation selector. Joiners bind clusters together but have
// no glyph of their own.
func Joiner(r rune) bool {
	return r == zwj || r == vs16
}

// Cluster is a single grapheme cluster: one or more code points a user
// perceives as a single character.
type Cluster string

// RuneCount returns the number of code points in the cluster.
func (c Cluster) RuneCount() int {
	return utf8.RuneCountInString(string(c))
}

// Emoji reports whether the cluster renders as emoji: it contains a joiner or
// a presentation selector, or any code point in Unicode category So.
func (c Cluster) Emoji() bool {
	for _, r := range string(c) {
		if Joiner(r) || unicode.Is(unicode.So, r) {
			return true
		}
	}
	return false
}

// Split breaks s into grapheme clusters. A code point joins the previous
// cluster when it is a joiner or a presentation selector, or when the
// previous code point is a joiner. This deliberately does not implement the
// full Unicode segmentation algorithm: joiner sequences stay intact, while
// regional-indicator pairs and bare skin-tone modifiers are split.
func Split(s string) []Cluster {
	if s == "" {
		return nil
	}
	var clusters []Cluster
	var current []rune
	var previous rune
	for _, r := range s {
		joins := len(current) > 0 && (Joiner(r) || previous == zwj)
		if !joins && len(current) > 0 {
			clusters = append(clusters, Cluster(current))
			current = current[:0]
		}
		current = append(current, r)
		previous = r
	}
	return append(clusters, Cluster(current))
}
