// Package textfit wraps grapheme clusters into lines and searches for the
// largest font size at which a caption fits its box.
package textfit

import (
	"strings"

	"github.com/malonaz/meme-api/go/grapheme"
)

// Measurer measures rendered text at a given font size.
type Measurer interface {
	// Advance returns the horizontal advance of text in pixels, and whether
	// the face could reliably measure it.
	Advance(text string, size int) (int, bool)
	// LineHeight returns the line height in pixels.
	LineHeight(size int) int
}

// Line is one wrapped line of grapheme clusters and its total advance.
type Line struct {
	Clusters []grapheme.Cluster
	Width    int
}

// Text returns the line's clusters joined back into a string.
func (l Line) Text() string {
	var b strings.Builder
	for _, cluster := range l.Clusters {
		b.WriteString(string(cluster))
	}
	return b.String()
}

// ClusterWidth measures one cluster, estimating for clusters the face cannot
// measure: one em per code point, floored at one pixel. The same width feeds
// wrapping, centering, and drawing so they stay aligned.
func ClusterWidth(cluster grapheme.Cluster, size int, measurer Measurer) int {
	if width, ok := measurer.Advance(string(cluster), size); ok {
		return width
	}
	return cluster.RuneCount() * max(1, size)
}

// Wrap greedily packs clusters into lines of at most maxWidth pixels. A
// cluster is never split: one wider than maxWidth occupies a line by itself.
func Wrap(clusters []grapheme.Cluster, size, maxWidth int, measurer Measurer) []Line {
	var lines []Line
	var current Line
	for _, cluster := range clusters {
		width := ClusterWidth(cluster, size, measurer)
		if len(current.Clusters) > 0 && current.Width+width > maxWidth {
			lines = append(lines, current)
			current = Line{}
		}
		current.Clusters = append(current.Clusters, cluster)
		current.Width += width
	}
	if len(current.Clusters) > 0 {
		lines = append(lines, current)
	}
	return lines
}

// Constraints bounds a fit: the box the wrapped caption must fit in, the
// line limit, the size search range, and the inter-line spacing rule.
type Constraints struct {
	BoxWidth    int
	BoxHeight   int
	MaxLines    int
	MinSize     int
	MaxSize     int
	LineSpacing func(size int) int
}

// Result is the outcome of a fit search.
type Result struct {
	// Size is the chosen font size.
	Size int
	// Lines is the caption wrapped at Size.
	Lines []Line
	// Fits reports whether Size satisfies the constraints. When false, Size
	// is the minimum of the search range and the caption may overflow.
	Fits bool
}

// Fit binary-searches for the largest size in the constraint range whose
// wrapped caption stays within the box and line limit. When even the
// minimum size does not fit, the result carries the minimum size with Fits
// set to false, so rendering degrades instead of failing.
func Fit(clusters []grapheme.Cluster, constraints Constraints, measurer Measurer) Result {
	best := Result{Size: constraints.MinSize}
	lo, hi := constraints.MinSize, constraints.MaxSize
	for lo <= hi {
		mid := lo + (hi-lo)/2
		lines, ok := attempt(clusters, mid, constraints, measurer)
		if ok {
			best = Result{Size: mid, Lines: lines, Fits: true}
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if !best.Fits {
		best.Lines = Wrap(clusters, best.Size, constraints.BoxWidth, measurer)
	}
	return best
}

// attempt wraps at one candidate size and checks the constraints.
func attempt(clusters []grapheme.Cluster, size int, constraints Constraints, measurer Measurer) ([]Line, bool) {
	lines := Wrap(clusters, size, constraints.BoxWidth, measurer)
	if len(lines) == 0 {
		return nil, true
	}
	if len(lines) > constraints.MaxLines {
		return nil, false
	}
	for _, line := range lines {
		if line.Width > constraints.BoxWidth {
			return nil, false
		}
	}
	height := len(lines)*measurer.LineHeight(size) + (len(lines)-1)*constraints.LineSpacing(size)
	if height > constraints.BoxHeight {
		return nil, false
	}
	return lines, true
}
